package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/middleware"
	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/response"
	"github.com/stemsi/exstem-console/internal/service"
	"github.com/stemsi/exstem-console/internal/validator"
)

// CompositionHandler drives the exam composition wizard.
type CompositionHandler struct {
	compositionService *service.CompositionService
	log                zerolog.Logger
}

// NewCompositionHandler creates a new CompositionHandler.
func NewCompositionHandler(compositionService *service.CompositionService, log zerolog.Logger) *CompositionHandler {
	return &CompositionHandler{
		compositionService: compositionService,
		log:                log.With().Str("component", "composition_handler").Logger(),
	}
}

// Start godoc
// POST /api/v1/teacher/compositions
func (h *CompositionHandler) Start(c *gin.Context) {
	draft, err := h.compositionService.Start(c.Request.Context(), middleware.GetAuth(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"draft": draft})
}

// List godoc
// GET /api/v1/teacher/compositions
func (h *CompositionHandler) List(c *gin.Context) {
	drafts, err := h.compositionService.List(c.Request.Context(), middleware.GetAuth(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if drafts == nil {
		drafts = []model.CompositionDraft{}
	}
	response.Success(c, http.StatusOK, gin.H{"drafts": drafts})
}

// Get godoc
// GET /api/v1/teacher/compositions/:id
func (h *CompositionHandler) Get(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	draft, err := h.compositionService.Get(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": draft})
}

// SelectSubject godoc
// PUT /api/v1/teacher/compositions/:id/subject
func (h *CompositionHandler) SelectSubject(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	var req model.SelectSubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	draft, chapters, err := h.compositionService.SelectSubject(c.Request.Context(), middleware.GetAuth(c), id, req.SubjectID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if chapters == nil {
		chapters = []model.Chapter{}
	}
	response.Success(c, http.StatusOK, gin.H{"draft": draft, "chapters": chapters})
}

// Validate godoc
// POST /api/v1/teacher/compositions/validate
// Live feedback for the distribution editor; never rejects.
func (h *CompositionHandler) Validate(c *gin.Context) {
	var req model.ValidateDistributionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	report := h.compositionService.ValidateDistribution(req)
	response.SuccessWithWarnings(c, http.StatusOK, gin.H{"report": report}, report.Warnings())
}

// Configure godoc
// PUT /api/v1/teacher/compositions/:id/config
func (h *CompositionHandler) Configure(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	var cfg model.CompositionConfig
	if fields := validator.Bind(c, &cfg); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.compositionService.Configure(c.Request.Context(), middleware.GetAuth(c), id, cfg)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.SuccessWithWarnings(c, http.StatusOK, gin.H{"draft": res.Draft}, res.Warnings)
}

// Preview godoc
// POST /api/v1/teacher/compositions/:id/preview
func (h *CompositionHandler) Preview(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	res, err := h.compositionService.GeneratePreview(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.SuccessWithWarnings(c, http.StatusOK, gin.H{"draft": res.Draft}, res.Warnings)
}

// Candidates godoc
// GET /api/v1/teacher/compositions/:id/preview/:index/candidates
func (h *CompositionHandler) Candidates(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questions, err := h.compositionService.ReplacementCandidates(c.Request.Context(), middleware.GetAuth(c), id, index)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// Replace godoc
// PUT /api/v1/teacher/compositions/:id/preview
func (h *CompositionHandler) Replace(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	var req model.ReplaceQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	draft, err := h.compositionService.Replace(c.Request.Context(), middleware.GetAuth(c), id, *req.Index, req.QuestionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": draft})
}

// Back godoc
// POST /api/v1/teacher/compositions/:id/back
func (h *CompositionHandler) Back(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	draft, err := h.compositionService.Back(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": draft})
}

// Confirm godoc
// POST /api/v1/teacher/compositions/:id/confirm
func (h *CompositionHandler) Confirm(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	summary, err := h.compositionService.Confirm(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info().Int("exam_id", summary.ExamID).Int("questions", summary.QuestionCount).Msg("Exam composed")
	response.Success(c, http.StatusCreated, gin.H{"summary": summary})
}

// Restart godoc
// POST /api/v1/teacher/compositions/:id/restart
func (h *CompositionHandler) Restart(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	draft, err := h.compositionService.Restart(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": draft})
}

// Discard godoc
// DELETE /api/v1/teacher/compositions/:id
func (h *CompositionHandler) Discard(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	if err := h.compositionService.Discard(c.Request.Context(), middleware.GetAuth(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "draft discarded"})
}

func draftID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
