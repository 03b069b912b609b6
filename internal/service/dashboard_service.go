package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/poller"
	"github.com/stemsi/exstem-console/internal/schedule"
)

// DashboardSource is the upstream surface behind the proctor and admin dashboards.
type DashboardSource interface {
	ProctorDashboard(ctx context.Context, token string) (*model.ProctorDashboard, error)
	AssignedSessions(ctx context.Context, token string) ([]model.AssignedSession, error)
	AdminDashboard(ctx context.Context, token string) (model.AdminDashboard, error)
	AdminExams(ctx context.Context, token string) ([]model.Exam, error)
}

// MonitorSource lists the students of a live session.
type MonitorSource interface {
	SessionStudents(ctx context.Context, token string, sessionID int) ([]model.MonitorStudent, error)
}

// AssignedSessionView is an assigned session with its display status.
type AssignedSessionView struct {
	model.AssignedSession
	DisplayStatus model.SessionStatus `json:"display_status"`
}

// ProctorSnapshot is one fetch of the proctor overview.
type ProctorSnapshot struct {
	Dashboard *model.ProctorDashboard `json:"dashboard"`
	Sessions  []AssignedSessionView   `json:"sessions"`
	Counts    model.StatusCounts      `json:"counts"`
}

// AdminSnapshot is one fetch of the admin overview.
type AdminSnapshot struct {
	Stats model.AdminDashboard `json:"stats"`
	Exams []model.Exam         `json:"exams"`
}

// MonitorSnapshot is one fetch of a live session's students.
type MonitorSnapshot struct {
	SessionID         int                    `json:"session_id"`
	Students          []model.MonitorStudent `json:"students"`
	Total             int                    `json:"total"`
	StateCounts       map[string]int         `json:"state_counts"`
	CompletionPercent float64                `json:"completion_percent"`
	Violations        int                    `json:"violations"`
}

// DashboardService builds dashboard snapshots and the pollers that refresh them.
type DashboardService struct {
	source          DashboardSource
	monitor         MonitorSource
	dashboardPeriod time.Duration
	monitorPeriod   time.Duration
	now             func() time.Time
	log             zerolog.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(source DashboardSource, monitor MonitorSource, dashboardPeriod, monitorPeriod time.Duration, log zerolog.Logger) *DashboardService {
	return &DashboardService{
		source:          source,
		monitor:         monitor,
		dashboardPeriod: dashboardPeriod,
		monitorPeriod:   monitorPeriod,
		now:             time.Now,
		log:             log.With().Str("component", "dashboard").Logger(),
	}
}

// Proctor fetches the proctor dashboard and assigned sessions together.
func (s *DashboardService) Proctor(ctx context.Context, auth *model.AuthContext) (*ProctorSnapshot, error) {
	var (
		dash     *model.ProctorDashboard
		assigned []model.AssignedSession
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dash, err = s.source.ProctorDashboard(gctx, auth.UpstreamToken)
		if err != nil {
			return fmt.Errorf("proctor dashboard: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		assigned, err = s.source.AssignedSessions(gctx, auth.UpstreamToken)
		if err != nil {
			return fmt.Errorf("assigned sessions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	snap := &ProctorSnapshot{Dashboard: dash, Sessions: make([]AssignedSessionView, len(assigned))}
	for i, a := range assigned {
		status := schedule.ResolveStatus(now, a.StartAt, a.EndAt, a.Status)
		snap.Sessions[i] = AssignedSessionView{AssignedSession: a, DisplayStatus: status}
		snap.Counts.Add(status)
	}
	return snap, nil
}

// Admin fetches the admin stat cards and exam list concurrently.
func (s *DashboardService) Admin(ctx context.Context, auth *model.AuthContext) (*AdminSnapshot, error) {
	snap := &AdminSnapshot{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.source.AdminDashboard(gctx, auth.UpstreamToken)
		if err != nil {
			return fmt.Errorf("admin dashboard: %w", err)
		}
		snap.Stats = stats
		return nil
	})
	g.Go(func() error {
		exams, err := s.source.AdminExams(gctx, auth.UpstreamToken)
		if err != nil {
			return fmt.Errorf("admin exams: %w", err)
		}
		snap.Exams = exams
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Monitor fetches a session's students and tallies their attempt states.
func (s *DashboardService) Monitor(ctx context.Context, auth *model.AuthContext, sessionID int) (*MonitorSnapshot, error) {
	students, err := s.monitor.SessionStudents(ctx, auth.UpstreamToken, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session students: %w", err)
	}
	return summarizeMonitor(sessionID, students), nil
}

func summarizeMonitor(sessionID int, students []model.MonitorStudent) *MonitorSnapshot {
	snap := &MonitorSnapshot{
		SessionID:   sessionID,
		Students:    students,
		Total:       len(students),
		StateCounts: map[string]int{},
	}
	for _, st := range students {
		snap.StateCounts[st.Status]++
		snap.Violations += st.ViolationCount
	}
	if snap.Total > 0 {
		done := snap.StateCounts[model.AttemptStateSubmitted] +
			snap.StateCounts[model.AttemptStateDisconnected] +
			snap.StateCounts[model.AttemptStateAbsent]
		snap.CompletionPercent = math.Round(float64(done)/float64(snap.Total)*1000) / 10
	}
	return snap
}

// ────────────────────────────────────────────────────────────────────────────
// Pollers
// ────────────────────────────────────────────────────────────────────────────

// ProctorPoller refreshes the proctor snapshot on the dashboard interval.
func (s *DashboardService) ProctorPoller(auth *model.AuthContext, publish func(poller.Result[*ProctorSnapshot])) *poller.Poller[*ProctorSnapshot] {
	return poller.New(s.dashboardPeriod, func(ctx context.Context) (*ProctorSnapshot, error) {
		return s.Proctor(ctx, auth)
	}, publish, s.log)
}

// AdminPoller refreshes the admin snapshot on the dashboard interval.
func (s *DashboardService) AdminPoller(auth *model.AuthContext, publish func(poller.Result[*AdminSnapshot])) *poller.Poller[*AdminSnapshot] {
	return poller.New(s.dashboardPeriod, func(ctx context.Context) (*AdminSnapshot, error) {
		return s.Admin(ctx, auth)
	}, publish, s.log)
}

// MonitorPoller refreshes one session's monitor snapshot on the monitor interval.
func (s *DashboardService) MonitorPoller(auth *model.AuthContext, sessionID int, publish func(poller.Result[*MonitorSnapshot])) *poller.Poller[*MonitorSnapshot] {
	return poller.New(s.monitorPeriod, func(ctx context.Context) (*MonitorSnapshot, error) {
		return s.Monitor(ctx, auth, sessionID)
	}, publish, s.log)
}
