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

type SubjectHandler struct {
	subjectService *service.SubjectService
	log            zerolog.Logger
}

func NewSubjectHandler(subjectService *service.SubjectService, log zerolog.Logger) *SubjectHandler {
	return &SubjectHandler{
		subjectService: subjectService,
		log:            log.With().Str("component", "subject_handler").Logger(),
	}
}

// GetAll godoc
// GET /api/v1/teacher/subjects
func (h *SubjectHandler) GetAll(c *gin.Context) {
	subjects, err := h.subjectService.List(c.Request.Context(), middleware.GetAuth(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if subjects == nil {
		subjects = []model.Subject{}
	}

	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}

// Create godoc
// POST /api/v1/teacher/subjects
func (h *SubjectHandler) Create(c *gin.Context) {
	var req model.SubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	subject, err := h.subjectService.Create(c.Request.Context(), middleware.GetAuth(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"subject": subject})
}

// Update godoc
// PUT /api/v1/teacher/subjects/:id
func (h *SubjectHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.SubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.subjectService.Update(c.Request.Context(), middleware.GetAuth(c), id, req); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "subject updated"})
}

// Delete godoc
// DELETE /api/v1/teacher/subjects/:id
func (h *SubjectHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.subjectService.Delete(c.Request.Context(), middleware.GetAuth(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "subject deleted"})
}

// Chapters godoc
// GET /api/v1/teacher/subjects/:id/chapters
func (h *SubjectHandler) Chapters(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	chapters, err := h.subjectService.Chapters(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if chapters == nil {
		chapters = []model.Chapter{}
	}
	response.Success(c, http.StatusOK, gin.H{"chapters": chapters})
}

// CreateChapter godoc
// POST /api/v1/teacher/subjects/:id/chapters
func (h *SubjectHandler) CreateChapter(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ChapterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	chapter, err := h.subjectService.CreateChapter(c.Request.Context(), middleware.GetAuth(c), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"chapter": chapter})
}

// UpdateChapter godoc
// PUT /api/v1/teacher/chapters/:id
func (h *SubjectHandler) UpdateChapter(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ChapterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.subjectService.UpdateChapter(c.Request.Context(), middleware.GetAuth(c), id, req); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "chapter updated"})
}

// DeleteChapter godoc
// DELETE /api/v1/teacher/chapters/:id
func (h *SubjectHandler) DeleteChapter(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.subjectService.DeleteChapter(c.Request.Context(), middleware.GetAuth(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "chapter deleted"})
}
