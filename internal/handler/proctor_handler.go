package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/middleware"
	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/response"
	"github.com/stemsi/exstem-console/internal/service"
	"github.com/stemsi/exstem-console/internal/validator"
)

// ProctorHandler handles violations, incidents, issue reports and attempt locks.
type ProctorHandler struct {
	proctorService *service.ProctorService
	log            zerolog.Logger
}

// NewProctorHandler creates a new ProctorHandler.
func NewProctorHandler(proctorService *service.ProctorService, log zerolog.Logger) *ProctorHandler {
	return &ProctorHandler{
		proctorService: proctorService,
		log:            log.With().Str("component", "proctor_handler").Logger(),
	}
}

// Violations godoc
// GET /api/v1/proctor/violations?session_id=&status=&severity=
func (h *ProctorHandler) Violations(c *gin.Context) {
	var filter model.ProctorFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	violations, err := h.proctorService.Violations(c.Request.Context(), middleware.GetAuth(c), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if violations == nil {
		violations = []model.Violation{}
	}
	response.Success(c, http.StatusOK, gin.H{"violations": violations})
}

// CreateViolation godoc
// POST /api/v1/proctor/violations
func (h *ProctorHandler) CreateViolation(c *gin.Context) {
	var req model.CreateViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	violation, err := h.proctorService.CreateViolation(c.Request.Context(), middleware.GetAuth(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"violation": violation})
}

// TransitionViolation godoc
// PATCH /api/v1/proctor/violations/:id
// pending moves to confirmed or dismissed.
func (h *ProctorHandler) TransitionViolation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ViolationTransitionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.proctorService.TransitionViolation(c.Request.Context(), middleware.GetAuth(c), id, req); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "violation updated"})
}

// Incidents godoc
// GET /api/v1/proctor/incidents?session_id=&status=&severity=
func (h *ProctorHandler) Incidents(c *gin.Context) {
	var filter model.ProctorFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	incidents, err := h.proctorService.Incidents(c.Request.Context(), middleware.GetAuth(c), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if incidents == nil {
		incidents = []model.Incident{}
	}
	response.Success(c, http.StatusOK, gin.H{"incidents": incidents})
}

// CreateIncident godoc
// POST /api/v1/proctor/incidents
func (h *ProctorHandler) CreateIncident(c *gin.Context) {
	var req model.CreateIncidentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	incident, err := h.proctorService.CreateIncident(c.Request.Context(), middleware.GetAuth(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"incident": incident})
}

// TransitionIncident godoc
// PATCH /api/v1/proctor/incidents/:id
func (h *ProctorHandler) TransitionIncident(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.IncidentTransitionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.proctorService.TransitionIncident(c.Request.Context(), middleware.GetAuth(c), id, req); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "incident updated"})
}

// IssueReports godoc
// GET /api/v1/proctor/issues
func (h *ProctorHandler) IssueReports(c *gin.Context) {
	issues, err := h.proctorService.IssueReports(c.Request.Context(), middleware.GetAuth(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if issues == nil {
		issues = []model.IssueReport{}
	}
	response.Success(c, http.StatusOK, gin.H{"issues": issues})
}

// ResolveIssue godoc
// POST /api/v1/proctor/issues/:id/resolve
func (h *ProctorHandler) ResolveIssue(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ResolveIssueRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.proctorService.ResolveIssue(c.Request.Context(), middleware.GetAuth(c), id, req); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "issue resolved"})
}

// SessionDetails godoc
// GET /api/v1/proctor/sessions/:id
func (h *ProctorHandler) SessionDetails(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	raw, err := h.proctorService.SessionDetails(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": raw})
}

// LockAttempt godoc
// POST /api/v1/proctor/attempts/:id/lock
func (h *ProctorHandler) LockAttempt(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.LockAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.proctorService.LockAttempt(c.Request.Context(), middleware.GetAuth(c), id, req); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Int("attempt_id", id).Int("proctor_id", middleware.GetAuth(c).User.ID).Msg("Attempt locked")
	response.Success(c, http.StatusOK, gin.H{"message": "attempt locked"})
}
