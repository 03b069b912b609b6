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

// ExamHandler handles exam management and result endpoints.
type ExamHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		log:         log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/v1/teacher/exams
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.List(c.Request.Context(), middleware.GetAuth(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// GetExam godoc
// GET /api/v1/teacher/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.Get(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// CreateExam godoc
// POST /api/v1/teacher/exams
// Manual creation from an explicit question list.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), middleware.GetAuth(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/teacher/exams/:id
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), middleware.GetAuth(c), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/teacher/exams/:id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), middleware.GetAuth(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "exam deleted"})
}

// ListSets godoc
// GET /api/v1/teacher/exams/:id/sets
func (h *ExamHandler) ListSets(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	sets, err := h.examService.Sets(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if sets == nil {
		sets = []model.ExamSet{}
	}
	response.Success(c, http.StatusOK, gin.H{"sets": sets})
}

// ShuffleSets godoc
// POST /api/v1/teacher/exams/:id/shuffle
// Asks the upstream for count shuffled variants of the exam.
func (h *ExamHandler) ShuffleSets(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ShuffleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sets, err := h.examService.Shuffle(c.Request.Context(), middleware.GetAuth(c), id, req.Count)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"sets": sets})
}

// SetQuestions godoc
// GET /api/v1/teacher/sets/:id/questions
func (h *ExamHandler) SetQuestions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	questions, err := h.examService.SetQuestions(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ResultSessions godoc
// GET /api/v1/teacher/results/sessions
// The upstream shape is passed through untouched.
func (h *ExamHandler) ResultSessions(c *gin.Context) {
	raw, err := h.examService.ExamSessions(c.Request.Context(), middleware.GetAuth(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": raw})
}

// SessionResults godoc
// GET /api/v1/teacher/results/sessions/:id
func (h *ExamHandler) SessionResults(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	rows, err := h.examService.SessionResults(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if rows == nil {
		rows = []model.ExamResultRow{}
	}
	response.Success(c, http.StatusOK, gin.H{"results": rows})
}

// StudentAttempt godoc
// GET /api/v1/teacher/results/sessions/:id/students/:student_id
func (h *ExamHandler) StudentAttempt(c *gin.Context) {
	sessionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	studentID, ok := paramID(c, "student_id")
	if !ok {
		return
	}

	raw, err := h.examService.StudentAttempt(c.Request.Context(), middleware.GetAuth(c), sessionID, studentID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": raw})
}
