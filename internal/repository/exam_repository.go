package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stemsi/exstem-console/internal/model"
)

// ExamRepository talks to the teacher-scoped exam, exam-set and result endpoints.
type ExamRepository struct {
	client *Client
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(up *Upstream) *ExamRepository {
	return &ExamRepository{client: up.Client(ScopeTeacher)}
}

// List returns all exams.
func (r *ExamRepository) List(ctx context.Context, token string) ([]model.Exam, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, "/exams", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Exam](raw, "exams")
}

// GetByID retrieves one exam, including its question list when upstream sends it.
func (r *ExamRepository) GetByID(ctx context.Context, token string, id int) (*model.Exam, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, fmt.Sprintf("/exams/%d", id), nil, &raw); err != nil {
		return nil, err
	}
	return decodeOne[model.Exam](raw, "exam")
}

// Create persists an exam built from an explicit question list.
func (r *ExamRepository) Create(ctx context.Context, token string, req model.ExamRequest) (*model.Exam, error) {
	var raw json.RawMessage
	if err := r.client.Post(ctx, token, "/exams", req, &raw); err != nil {
		return nil, err
	}
	return decodeOne[model.Exam](raw, "exam")
}

// Update replaces an exam.
func (r *ExamRepository) Update(ctx context.Context, token string, id int, req model.ExamRequest) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/exams/%d", id), req, nil)
}

// Delete removes an exam.
func (r *ExamRepository) Delete(ctx context.Context, token string, id int) error {
	return r.client.Delete(ctx, token, fmt.Sprintf("/exams/%d", id))
}

// Sets lists the shuffled variants of an exam.
func (r *ExamRepository) Sets(ctx context.Context, token string, examID int) ([]model.ExamSet, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, fmt.Sprintf("/exams/%d/sets", examID), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.ExamSet](raw, "sets")
}

// Shuffle asks upstream to derive count new exam sets.
func (r *ExamRepository) Shuffle(ctx context.Context, token string, examID, count int) ([]model.ExamSet, error) {
	var raw json.RawMessage
	if err := r.client.Post(ctx, token, fmt.Sprintf("/exams/%d/shuffle", examID), model.ShuffleRequest{Count: count}, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.ExamSet](raw, "sets")
}

// SetQuestions lists the ordered questions of one exam set.
func (r *ExamRepository) SetQuestions(ctx context.Context, token string, setID int) ([]model.Question, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, fmt.Sprintf("/exam-sets/%d/questions", setID), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Question](raw, "questions")
}

// GeneratePreview asks upstream to draw questions per the chapter distribution.
// The result may hold fewer questions than requested.
func (r *ExamRepository) GeneratePreview(ctx context.Context, token string, p model.GeneratePreviewPayload) ([]model.Question, error) {
	var raw json.RawMessage
	if err := r.client.Post(ctx, token, "/exams/generate-preview", p, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Question](raw, "questions")
}

// ChapterQuestions lists every bank question of a chapter.
func (r *ExamRepository) ChapterQuestions(ctx context.Context, token string, chapterID int) ([]model.Question, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, fmt.Sprintf("/chapters/%d/questions", chapterID), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Question](raw, "questions")
}

// ExamSessions lists sessions that have results. Rows are passed through.
func (r *ExamRepository) ExamSessions(ctx context.Context, token string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, "/exam-sessions", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SessionResults lists every student's result in a session.
func (r *ExamRepository) SessionResults(ctx context.Context, token string, sessionID int) ([]model.ExamResultRow, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, fmt.Sprintf("/exam-sessions/%d/results", sessionID), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.ExamResultRow](raw, "results")
}

// StudentAttempt returns one student's answered attempt. The document is passed through.
func (r *ExamRepository) StudentAttempt(ctx context.Context, token string, sessionID, studentID int) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, fmt.Sprintf("/exam-sessions/%d/student/%d", sessionID, studentID), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
