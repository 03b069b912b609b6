package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Exam is a question paper owned by a subject.
type Exam struct {
	ID          int        `json:"id"`
	SubjectID   int        `json:"subject_id"`
	SubjectName string     `json:"subject_name,omitempty"`
	Title       string     `json:"title"`
	Duration    int        `json:"duration"`
	Description string     `json:"description,omitempty"`
	QuestionIDs []int      `json:"question_ids,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
}

// ExamRequest is the payload for creating or updating an exam by direct question selection.
type ExamRequest struct {
	SubjectID   int    `json:"subject_id" binding:"required,min=1"`
	Title       string `json:"title" binding:"required,min=3,max=255"`
	Duration    int    `json:"duration" binding:"required,min=1,max=600"`
	Description string `json:"description" binding:"omitempty,max=2000"`
	QuestionIDs []int  `json:"question_ids" binding:"required,min=1,dive,min=1"`
}

// ExamSet is a shuffled variant of an exam.
type ExamSet struct {
	ID          int       `json:"id"`
	ExamID      int       `json:"exam_id"`
	Code        string    `json:"code"`
	QuestionIDs []int     `json:"question_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// ShuffleRequest asks upstream to generate Count exam sets in one batch.
type ShuffleRequest struct {
	Count int `json:"count" binding:"required,min=1,max=50"`
}

// QuestionCount is a per-chapter count that decodes leniently: numbers and numeric
// strings keep their value, anything else (null, text, objects) becomes 0.
type QuestionCount int

// UnmarshalJSON implements json.Unmarshaler.
func (q *QuestionCount) UnmarshalJSON(data []byte) error {
	*q = 0
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		raw = n.String()
	} else {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	if v, err := strconv.Atoi(raw); err == nil {
		*q = QuestionCount(v)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*q = QuestionCount(int(f))
	}
	return nil
}

// ChapterDistributionEntry says how many questions to draw from one chapter.
type ChapterDistributionEntry struct {
	ChapterID     int           `json:"chapter_id"`
	QuestionCount QuestionCount `json:"question_count"`
}

// GeneratePreviewPayload is the upstream body for POST /exams/generate-preview.
type GeneratePreviewPayload struct {
	SubjectID           int                        `json:"subject_id"`
	TotalQuestions      int                        `json:"total_questions"`
	ChapterDistribution []ChapterDistributionEntry `json:"chapter_distribution"`
}

// ExamResultRow is one student's result in an exam session.
type ExamResultRow struct {
	StudentID   int        `json:"student_id"`
	StudentName string     `json:"student_name"`
	Score       *float64   `json:"score"`
	Status      string     `json:"status"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}
