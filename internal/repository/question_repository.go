package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stemsi/exstem-console/internal/model"
)

// QuestionRepository talks to the teacher-scoped question bank endpoints.
type QuestionRepository struct {
	client *Client
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(up *Upstream) *QuestionRepository {
	return &QuestionRepository{client: up.Client(ScopeTeacher)}
}

// List returns every question in the bank.
func (r *QuestionRepository) List(ctx context.Context, token string) ([]model.Question, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, "/questions", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Question](raw, "questions")
}

// ListBySubject returns the questions of one subject.
func (r *QuestionRepository) ListBySubject(ctx context.Context, token string, subjectID int) ([]model.Question, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, fmt.Sprintf("/questions/%d", subjectID), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Question](raw, "questions")
}

// Create inserts a question.
func (r *QuestionRepository) Create(ctx context.Context, token string, req model.QuestionRequest) (*model.Question, error) {
	var raw json.RawMessage
	if err := r.client.Post(ctx, token, "/questions", req, &raw); err != nil {
		return nil, err
	}
	return decodeOne[model.Question](raw, "question")
}

// Update replaces a question.
func (r *QuestionRepository) Update(ctx context.Context, token string, id int, req model.QuestionRequest) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/questions/%d", id), req, nil)
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, token string, id int) error {
	return r.client.Delete(ctx, token, fmt.Sprintf("/questions/%d", id))
}
