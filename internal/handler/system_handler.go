package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stemsi/exstem-console/internal/config"
)

const metricsInterval = 7 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the health probe and streams runtime metrics via SSE.
type SystemHandler struct {
	rdb       *redis.Client
	db        Pinger
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(rdb *redis.Client, db Pinger, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		db:        db,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /healthz
// Redis and Postgres are checked in parallel; either failing answers 503.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"redis": "ok", "postgres": "ok"}
	var redisErr, dbErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		redisErr = h.rdb.Ping(gctx).Err()
		return nil
	})
	g.Go(func() error {
		dbErr = h.db.Ping(gctx)
		return nil
	})
	_ = g.Wait()

	status := http.StatusOK
	if redisErr != nil {
		checks["redis"] = redisErr.Error()
		status = http.StatusServiceUnavailable
	}
	if dbErr != nil {
		checks["postgres"] = dbErr.Error()
		status = http.StatusServiceUnavailable
	}
	if status != http.StatusOK {
		h.log.Warn().Interface("checks", checks).Msg("Health check failed")
	}

	c.JSON(status, gin.H{
		"status": http.StatusText(status),
		"uptime": formatDuration(time.Since(h.startTime)),
		"checks": checks,
	})
}

// ---------- SSE Endpoint ----------

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	// Go Application
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	StackInuse uint64 `json:"stack_inuse"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`

	// Redis-side state
	QueueAudit      int64 `json:"queue_audit"`
	ConsoleSessions int64 `json:"console_sessions"`
}

// SystemMetricsSSE godoc
// GET /api/v1/admin/system/metrics
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	ctx := c.Request.Context()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	h.log.Debug().Msg("metrics stream opened")
	c.SSEvent("metrics", h.collect(ctx))
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			c.SSEvent("metrics", h.collect(ctx))
			return true
		}
	})
	h.log.Debug().Msg("metrics stream closed")
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	m := systemMetrics{
		Timestamp: time.Now().Unix(),
		Uptime:    formatDuration(time.Since(h.startTime)),
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.Goroutines = runtime.NumGoroutine()
	m.HeapAlloc = ms.HeapAlloc
	m.HeapSys = ms.Sys
	m.StackInuse = ms.StackInuse
	m.NumGC = ms.NumGC

	// Session count is a bounded SCAN; it is a gauge, not an exact figure.
	pipe := h.rdb.Pipeline()
	auditCmd := pipe.LLen(ctx, config.WorkerKey.SessionAuditQueue)
	if _, err := pipe.Exec(ctx); err == nil {
		m.QueueAudit, _ = auditCmd.Result()
	}
	m.ConsoleSessions = h.countSessions(ctx)

	return m
}

func (h *SystemHandler) countSessions(ctx context.Context) int64 {
	var n int64
	iter := h.rdb.Scan(ctx, 0, config.CacheKey.AuthContextKey("*"), 500).Iterator()
	for i := 0; i < 10000 && iter.Next(ctx); i++ {
		n++
	}
	return n
}

// ---------- Helpers ----------

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
