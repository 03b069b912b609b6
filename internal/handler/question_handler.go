package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/middleware"
	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/response"
	"github.com/stemsi/exstem-console/internal/service"
	"github.com/stemsi/exstem-console/internal/validator"
)

// QuestionHandler handles question bank endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
	log             zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		log:             log.With().Str("component", "question_handler").Logger(),
	}
}

// ListQuestions godoc
// GET /api/v1/teacher/questions?subject_id=
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	subjectID, _ := strconv.Atoi(c.Query("subject_id"))

	questions, err := h.questionService.List(c.Request.Context(), middleware.GetAuth(c), subjectID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// CreateQuestion godoc
// POST /api/v1/teacher/questions
// Answers are relabelled A, B, C... in order before forwarding.
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), middleware.GetAuth(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// UpdateQuestion godoc
// PUT /api/v1/teacher/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.questionService.Update(c.Request.Context(), middleware.GetAuth(c), id, req); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "question updated"})
}

// DeleteQuestion godoc
// DELETE /api/v1/teacher/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), middleware.GetAuth(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "question deleted"})
}
