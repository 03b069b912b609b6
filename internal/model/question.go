package model

// Question is a bank question with its ordered answers.
type Question struct {
	ID          int      `json:"id"`
	SubjectID   int      `json:"subject_id"`
	ChapterID   int      `json:"chapter_id"`
	ChapterName string   `json:"chapter_name,omitempty"`
	Content     string   `json:"content"`
	Answers     []Answer `json:"answers,omitempty"`
}

// Answer is one option of a question. Label is positional, see NormalizeAnswers.
type Answer struct {
	Label     string `json:"label"`
	Content   string `json:"content" binding:"required,max=2000"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionRequest is the payload for creating or updating a question.
type QuestionRequest struct {
	SubjectID int      `json:"subject_id" binding:"required,min=1"`
	ChapterID int      `json:"chapter_id" binding:"required,min=1"`
	Content   string   `json:"content" binding:"required,min=1,max=5000"`
	Answers   []Answer `json:"answers" binding:"required,min=2,max=26,dive"`
}

// NormalizeAnswers returns a copy of answers labelled A, B, C… by position,
// overwriting whatever labels the client sent.
func NormalizeAnswers(answers []Answer) []Answer {
	out := make([]Answer, len(answers))
	for i, a := range answers {
		a.Label = string(rune('A' + i))
		out[i] = a
	}
	return out
}

// HasCorrectAnswer reports whether at least one answer is marked correct.
func HasCorrectAnswer(answers []Answer) bool {
	for _, a := range answers {
		if a.IsCorrect {
			return true
		}
	}
	return false
}
