package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/middleware"
	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/response"
	"github.com/stemsi/exstem-console/internal/service"
	"github.com/stemsi/exstem-console/internal/validator"
)

// SessionHandler serves the teacher's exam session screens.
type SessionHandler struct {
	sessionService *service.ExamSessionService
	auditService   *service.AuditService
	log            zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.ExamSessionService, auditService *service.AuditService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		auditService:   auditService,
		log:            log.With().Str("component", "session_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/teacher/sessions?subject=&status=&q=
func (h *SessionHandler) List(c *gin.Context) {
	var filter model.SessionFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	list, err := h.sessionService.List(c.Request.Context(), middleware.GetAuth(c), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// Get godoc
// GET /api/v1/teacher/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Create godoc
// POST /api/v1/teacher/sessions
// A failed proctor assignment still answers 201, with a warning.
func (h *SessionHandler) Create(c *gin.Context) {
	var req model.SessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessionService.Create(c.Request.Context(), middleware.GetAuth(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.SuccessWithWarnings(c, http.StatusCreated, gin.H{"session": res.Session}, res.Warnings)
}

// Update godoc
// PUT /api/v1/teacher/sessions/:id
func (h *SessionHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.SessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessionService.Update(c.Request.Context(), middleware.GetAuth(c), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.SuccessWithWarnings(c, http.StatusOK, gin.H{"session": res.Session}, res.Warnings)
}

// Cancel godoc
// POST /api/v1/teacher/sessions/:id/cancel
func (h *SessionHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.sessionService.Cancel(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.SuccessWithWarnings(c, http.StatusOK, gin.H{"session": res.Session}, res.Warnings)
}

// Delete godoc
// DELETE /api/v1/teacher/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.sessionService.Delete(c.Request.Context(), middleware.GetAuth(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "session deleted"})
}

// Proctors godoc
// GET /api/v1/teacher/sessions/:id/proctors
func (h *SessionHandler) Proctors(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	proctors, err := h.sessionService.Proctors(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"proctors": proctors})
}

// AvailableProctors godoc
// GET /api/v1/teacher/proctors
func (h *SessionHandler) AvailableProctors(c *gin.Context) {
	proctors, err := h.sessionService.AvailableProctors(c.Request.Context(), middleware.GetAuth(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if proctors == nil {
		proctors = []model.Proctor{}
	}
	response.Success(c, http.StatusOK, gin.H{"proctors": proctors})
}

// EndTime godoc
// GET /api/v1/teacher/exams/:id/end-time?start_at=RFC3339
// Fills the disabled end-time field of the session form.
func (h *SessionHandler) EndTime(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}
	start, err := time.Parse(time.RFC3339, c.Query("start_at"))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"start_at": "start_at must be an RFC 3339 timestamp",
		})
		return
	}

	end, err := h.sessionService.EndTime(c.Request.Context(), middleware.GetAuth(c), examID, start)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"start_at": start, "end_at": end})
}

// Audit godoc
// GET /api/v1/teacher/sessions/:id/audit?limit=
func (h *SessionHandler) Audit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	// The log is local, so visibility is borrowed from upstream's own check.
	if _, err := h.sessionService.Get(c.Request.Context(), middleware.GetAuth(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	events, err := h.auditService.List(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if events == nil {
		events = []model.AuditEvent{}
	}
	response.Success(c, http.StatusOK, gin.H{"events": events})
}
