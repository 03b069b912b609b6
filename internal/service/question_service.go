package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsi/exstem-console/internal/model"
)

// ErrNoCorrectAnswer is returned when no answer is marked correct.
var ErrNoCorrectAnswer = errors.New("at least one answer must be correct")

// QuestionStore is the upstream question bank surface.
type QuestionStore interface {
	List(ctx context.Context, token string) ([]model.Question, error)
	ListBySubject(ctx context.Context, token string, subjectID int) ([]model.Question, error)
	Create(ctx context.Context, token string, req model.QuestionRequest) (*model.Question, error)
	Update(ctx context.Context, token string, id int, req model.QuestionRequest) error
	Delete(ctx context.Context, token string, id int) error
}

// QuestionService handles question bank business logic.
type QuestionService struct {
	questions QuestionStore
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions QuestionStore) *QuestionService {
	return &QuestionService{questions: questions}
}

// List returns the bank, optionally narrowed to a subject.
func (s *QuestionService) List(ctx context.Context, auth *model.AuthContext, subjectID int) ([]model.Question, error) {
	var (
		questions []model.Question
		err       error
	)
	if subjectID > 0 {
		questions, err = s.questions.ListBySubject(ctx, auth.UpstreamToken, subjectID)
	} else {
		questions, err = s.questions.List(ctx, auth.UpstreamToken)
	}
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// Create relabels the answers by position and stores the question.
func (s *QuestionService) Create(ctx context.Context, auth *model.AuthContext, req model.QuestionRequest) (*model.Question, error) {
	req, err := prepareQuestion(req)
	if err != nil {
		return nil, err
	}
	q, err := s.questions.Create(ctx, auth.UpstreamToken, req)
	if err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// Update relabels the answers by position and replaces the question.
func (s *QuestionService) Update(ctx context.Context, auth *model.AuthContext, id int, req model.QuestionRequest) error {
	req, err := prepareQuestion(req)
	if err != nil {
		return err
	}
	if err := s.questions.Update(ctx, auth.UpstreamToken, id, req); err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return nil
}

// Delete removes a question.
func (s *QuestionService) Delete(ctx context.Context, auth *model.AuthContext, id int) error {
	if err := s.questions.Delete(ctx, auth.UpstreamToken, id); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

func prepareQuestion(req model.QuestionRequest) (model.QuestionRequest, error) {
	if !model.HasCorrectAnswer(req.Answers) {
		return req, ErrNoCorrectAnswer
	}
	req.Answers = model.NormalizeAnswers(req.Answers)
	return req, nil
}
