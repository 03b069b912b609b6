package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stemsi/exstem-console/internal/model"
)

// SubjectRepository talks to the subject and chapter endpoints.
type SubjectRepository struct {
	client *Client
}

// NewSubjectRepository creates a new SubjectRepository.
func NewSubjectRepository(up *Upstream) *SubjectRepository {
	return &SubjectRepository{client: up.Client(ScopeTeacher)}
}

// List returns all subjects.
func (r *SubjectRepository) List(ctx context.Context, token string) ([]model.Subject, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, "/subjects", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Subject](raw, "subjects")
}

// Create inserts a subject. Upstream wraps the created row under "subject".
func (r *SubjectRepository) Create(ctx context.Context, token string, req model.SubjectRequest) (*model.Subject, error) {
	var raw json.RawMessage
	if err := r.client.Post(ctx, token, "/subjects", req, &raw); err != nil {
		return nil, err
	}
	return decodeOne[model.Subject](raw, "subject")
}

// Update replaces a subject.
func (r *SubjectRepository) Update(ctx context.Context, token string, id int, req model.SubjectRequest) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/subjects/%d", id), req, nil)
}

// Delete removes a subject.
func (r *SubjectRepository) Delete(ctx context.Context, token string, id int) error {
	return r.client.Delete(ctx, token, fmt.Sprintf("/subjects/%d", id))
}

// Chapters lists the chapters of a subject.
func (r *SubjectRepository) Chapters(ctx context.Context, token string, subjectID int) ([]model.Chapter, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, token, fmt.Sprintf("/subjects/%d/chapters", subjectID), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Chapter](raw, "chapters")
}

// CreateChapter adds a chapter to a subject.
func (r *SubjectRepository) CreateChapter(ctx context.Context, token string, subjectID int, req model.ChapterRequest) (*model.Chapter, error) {
	var raw json.RawMessage
	if err := r.client.Post(ctx, token, fmt.Sprintf("/subjects/%d/chapters", subjectID), req, &raw); err != nil {
		return nil, err
	}
	return decodeOne[model.Chapter](raw, "chapter")
}

// UpdateChapter replaces a chapter.
func (r *SubjectRepository) UpdateChapter(ctx context.Context, token string, id int, req model.ChapterRequest) error {
	return r.client.Put(ctx, token, fmt.Sprintf("/chapters/%d", id), req, nil)
}

// DeleteChapter removes a chapter.
func (r *SubjectRepository) DeleteChapter(ctx context.Context, token string, id int) error {
	return r.client.Delete(ctx, token, fmt.Sprintf("/chapters/%d", id))
}
