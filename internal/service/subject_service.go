package service

import (
	"context"
	"fmt"

	"github.com/stemsi/exstem-console/internal/model"
)

// SubjectStore is the upstream subject and chapter surface.
type SubjectStore interface {
	List(ctx context.Context, token string) ([]model.Subject, error)
	Create(ctx context.Context, token string, req model.SubjectRequest) (*model.Subject, error)
	Update(ctx context.Context, token string, id int, req model.SubjectRequest) error
	Delete(ctx context.Context, token string, id int) error
	Chapters(ctx context.Context, token string, subjectID int) ([]model.Chapter, error)
	CreateChapter(ctx context.Context, token string, subjectID int, req model.ChapterRequest) (*model.Chapter, error)
	UpdateChapter(ctx context.Context, token string, id int, req model.ChapterRequest) error
	DeleteChapter(ctx context.Context, token string, id int) error
}

// SubjectService handles subject and chapter business logic.
type SubjectService struct {
	subjects SubjectStore
}

// NewSubjectService creates a new SubjectService.
func NewSubjectService(subjects SubjectStore) *SubjectService {
	return &SubjectService{subjects: subjects}
}

func (s *SubjectService) List(ctx context.Context, auth *model.AuthContext) ([]model.Subject, error) {
	subjects, err := s.subjects.List(ctx, auth.UpstreamToken)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

func (s *SubjectService) Create(ctx context.Context, auth *model.AuthContext, req model.SubjectRequest) (*model.Subject, error) {
	subject, err := s.subjects.Create(ctx, auth.UpstreamToken, req)
	if err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	return subject, nil
}

func (s *SubjectService) Update(ctx context.Context, auth *model.AuthContext, id int, req model.SubjectRequest) error {
	if err := s.subjects.Update(ctx, auth.UpstreamToken, id, req); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

func (s *SubjectService) Delete(ctx context.Context, auth *model.AuthContext, id int) error {
	if err := s.subjects.Delete(ctx, auth.UpstreamToken, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

// Chapters lists a subject's chapters ordered by chapter number as upstream sends them.
func (s *SubjectService) Chapters(ctx context.Context, auth *model.AuthContext, subjectID int) ([]model.Chapter, error) {
	chapters, err := s.subjects.Chapters(ctx, auth.UpstreamToken, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return chapters, nil
}

func (s *SubjectService) CreateChapter(ctx context.Context, auth *model.AuthContext, subjectID int, req model.ChapterRequest) (*model.Chapter, error) {
	chapter, err := s.subjects.CreateChapter(ctx, auth.UpstreamToken, subjectID, req)
	if err != nil {
		return nil, fmt.Errorf("create chapter: %w", err)
	}
	return chapter, nil
}

func (s *SubjectService) UpdateChapter(ctx context.Context, auth *model.AuthContext, id int, req model.ChapterRequest) error {
	if err := s.subjects.UpdateChapter(ctx, auth.UpstreamToken, id, req); err != nil {
		return fmt.Errorf("update chapter: %w", err)
	}
	return nil
}

func (s *SubjectService) DeleteChapter(ctx context.Context, auth *model.AuthContext, id int) error {
	if err := s.subjects.DeleteChapter(ctx, auth.UpstreamToken, id); err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	return nil
}
