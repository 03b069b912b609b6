package model

// Subject is a course whose chapters group bank questions.
type Subject struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
}

// SubjectRequest is the payload for creating or updating a subject.
type SubjectRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=255"`
	Code        string `json:"code" binding:"omitempty,max=50"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

// Chapter is a syllabus unit of a subject.
type Chapter struct {
	ID            int    `json:"id"`
	SubjectID     int    `json:"subject_id"`
	ChapterNumber int    `json:"chapter_number"`
	Name          string `json:"name"`
}

// ChapterRequest is the payload for creating or updating a chapter.
type ChapterRequest struct {
	ChapterNumber int    `json:"chapter_number" binding:"required,min=1"`
	Name          string `json:"name" binding:"required,min=1,max=255"`
}
