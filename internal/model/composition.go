package model

import (
	"time"

	"github.com/google/uuid"
)

// CompositionStep is the position of a draft in the configure → preview → completed flow.
type CompositionStep string

const (
	StepConfigure CompositionStep = "configure"
	StepPreview   CompositionStep = "preview"
	StepCompleted CompositionStep = "completed"
)

// CompositionConfig is the form submitted at the configure step.
type CompositionConfig struct {
	SubjectID           int                        `json:"subject_id" binding:"required,min=1"`
	Title               string                     `json:"title" binding:"required,min=3,max=255"`
	Description         string                     `json:"description" binding:"omitempty,max=2000"`
	TotalQuestions      int                        `json:"total_questions" binding:"required,min=1,max=500"`
	DurationMinutes     int                        `json:"duration_minutes" binding:"required,min=1,max=600"`
	ChapterDistribution []ChapterDistributionEntry `json:"chapter_distribution" binding:"required,min=1"`
}

// CompositionDraft is the state carried across the steps of one composition.
type CompositionDraft struct {
	ID        uuid.UUID         `json:"id"`
	OwnerID   int               `json:"owner_id"`
	Step      CompositionStep   `json:"step"`
	Config    CompositionConfig `json:"config"`
	Preview   []Question        `json:"preview"`
	ExamID    *int              `json:"exam_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SelectSubjectRequest switches the draft's subject.
type SelectSubjectRequest struct {
	SubjectID int `json:"subject_id" binding:"required,min=1"`
}

// ValidateDistributionRequest is the stateless re-validation payload.
type ValidateDistributionRequest struct {
	TotalQuestions      int                        `json:"total_questions"`
	ChapterDistribution []ChapterDistributionEntry `json:"chapter_distribution"`
}

// ReplaceQuestionRequest swaps the preview question at Index.
type ReplaceQuestionRequest struct {
	Index      *int `json:"index" binding:"required,min=0"`
	QuestionID int  `json:"question_id" binding:"required,min=1"`
}

// CompositionSummary is returned once the exam has been persisted.
type CompositionSummary struct {
	ExamID        int          `json:"exam_id"`
	Title         string       `json:"title"`
	QuestionCount int          `json:"question_count"`
	Duration      int          `json:"duration"`
	NextActions   []NextAction `json:"next_actions"`
}

// NextAction is one follow-up offered after completion.
type NextAction struct {
	Key  string `json:"key"`
	Href string `json:"href"`
}
