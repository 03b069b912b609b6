package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stemsi/exstem-console/internal/model"
)

// ExamStore is the upstream exam surface.
type ExamStore interface {
	List(ctx context.Context, token string) ([]model.Exam, error)
	GetByID(ctx context.Context, token string, id int) (*model.Exam, error)
	Create(ctx context.Context, token string, req model.ExamRequest) (*model.Exam, error)
	Update(ctx context.Context, token string, id int, req model.ExamRequest) error
	Delete(ctx context.Context, token string, id int) error
	Sets(ctx context.Context, token string, examID int) ([]model.ExamSet, error)
	Shuffle(ctx context.Context, token string, examID, count int) ([]model.ExamSet, error)
	SetQuestions(ctx context.Context, token string, setID int) ([]model.Question, error)
	ExamSessions(ctx context.Context, token string) (json.RawMessage, error)
	SessionResults(ctx context.Context, token string, sessionID int) ([]model.ExamResultRow, error)
	StudentAttempt(ctx context.Context, token string, sessionID, studentID int) (json.RawMessage, error)
}

// ExamService handles exams built by direct question selection, exam sets and results.
type ExamService struct {
	exams ExamStore
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamStore) *ExamService {
	return &ExamService{exams: exams}
}

// List returns all exams.
func (s *ExamService) List(ctx context.Context, auth *model.AuthContext) ([]model.Exam, error) {
	exams, err := s.exams.List(ctx, auth.UpstreamToken)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// Get returns one exam with its questions.
func (s *ExamService) Get(ctx context.Context, auth *model.AuthContext, id int) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, auth.UpstreamToken, id)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam, nil
}

// Create persists an exam from an explicit question list.
func (s *ExamService) Create(ctx context.Context, auth *model.AuthContext, req model.ExamRequest) (*model.Exam, error) {
	req.QuestionIDs = uniqueInts(req.QuestionIDs)
	exam, err := s.exams.Create(ctx, auth.UpstreamToken, req)
	if err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	return exam, nil
}

// Update replaces an exam.
func (s *ExamService) Update(ctx context.Context, auth *model.AuthContext, id int, req model.ExamRequest) (*model.Exam, error) {
	req.QuestionIDs = uniqueInts(req.QuestionIDs)
	if err := s.exams.Update(ctx, auth.UpstreamToken, id, req); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	return s.Get(ctx, auth, id)
}

// Delete removes an exam.
func (s *ExamService) Delete(ctx context.Context, auth *model.AuthContext, id int) error {
	if err := s.exams.Delete(ctx, auth.UpstreamToken, id); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	return nil
}

// Sets lists the exam sets of an exam.
func (s *ExamService) Sets(ctx context.Context, auth *model.AuthContext, examID int) ([]model.ExamSet, error) {
	sets, err := s.exams.Sets(ctx, auth.UpstreamToken, examID)
	if err != nil {
		return nil, fmt.Errorf("list exam sets: %w", err)
	}
	return sets, nil
}

// Shuffle derives count new exam sets in one upstream batch.
func (s *ExamService) Shuffle(ctx context.Context, auth *model.AuthContext, examID, count int) ([]model.ExamSet, error) {
	sets, err := s.exams.Shuffle(ctx, auth.UpstreamToken, examID, count)
	if err != nil {
		return nil, fmt.Errorf("shuffle exam: %w", err)
	}
	return sets, nil
}

// SetQuestions lists the ordered questions of an exam set.
func (s *ExamService) SetQuestions(ctx context.Context, auth *model.AuthContext, setID int) ([]model.Question, error) {
	questions, err := s.exams.SetQuestions(ctx, auth.UpstreamToken, setID)
	if err != nil {
		return nil, fmt.Errorf("exam set questions: %w", err)
	}
	return questions, nil
}

// ExamSessions lists sessions with results.
func (s *ExamService) ExamSessions(ctx context.Context, auth *model.AuthContext) (json.RawMessage, error) {
	raw, err := s.exams.ExamSessions(ctx, auth.UpstreamToken)
	if err != nil {
		return nil, fmt.Errorf("list result sessions: %w", err)
	}
	return raw, nil
}

// SessionResults lists every student's result in a session.
func (s *ExamService) SessionResults(ctx context.Context, auth *model.AuthContext, sessionID int) ([]model.ExamResultRow, error) {
	rows, err := s.exams.SessionResults(ctx, auth.UpstreamToken, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session results: %w", err)
	}
	return rows, nil
}

// StudentAttempt returns one student's attempt in a session.
func (s *ExamService) StudentAttempt(ctx context.Context, auth *model.AuthContext, sessionID, studentID int) (json.RawMessage, error) {
	raw, err := s.exams.StudentAttempt(ctx, auth.UpstreamToken, sessionID, studentID)
	if err != nil {
		return nil, fmt.Errorf("student attempt: %w", err)
	}
	return raw, nil
}

// uniqueInts drops repeated values, keeping first-seen order.
func uniqueInts(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
