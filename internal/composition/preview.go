package composition

import (
	"errors"
	"fmt"

	"github.com/stemsi/exstem-console/internal/model"
)

// Preview editing errors.
var (
	ErrIndexOutOfRange   = errors.New("preview index out of range")
	ErrDuplicateQuestion = errors.New("question is already in the preview")
	ErrChapterMismatch   = errors.New("replacement must come from the same chapter")
	ErrEmptyPreview      = errors.New("preview has no questions")
)

// Candidates returns the questions of the chapter at preview[index] that are not
// already anywhere in the preview. chapterQuestions is the full chapter listing.
func Candidates(preview []model.Question, index int, chapterQuestions []model.Question) ([]model.Question, error) {
	if index < 0 || index >= len(preview) {
		return nil, ErrIndexOutOfRange
	}
	chapterID := preview[index].ChapterID
	used := questionSet(preview)

	out := make([]model.Question, 0, len(chapterQuestions))
	for _, q := range chapterQuestions {
		if _, taken := used[q.ID]; taken {
			continue
		}
		if q.ChapterID != 0 && q.ChapterID != chapterID {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// Replace returns a copy of preview with the question at index swapped for
// candidate. Every other position is left untouched.
func Replace(preview []model.Question, index int, candidate model.Question) ([]model.Question, error) {
	if index < 0 || index >= len(preview) {
		return nil, ErrIndexOutOfRange
	}
	if candidate.ChapterID != preview[index].ChapterID {
		return nil, ErrChapterMismatch
	}
	for i, q := range preview {
		if i != index && q.ID == candidate.ID {
			return nil, fmt.Errorf("%w: id %d at position %d", ErrDuplicateQuestion, candidate.ID, i)
		}
	}

	out := make([]model.Question, len(preview))
	copy(out, preview)
	out[index] = candidate
	return out, nil
}

// Shortfall returns a warning when upstream generated fewer questions than requested.
func Shortfall(requested int, preview []model.Question) *model.Warning {
	if len(preview) >= requested {
		return nil
	}
	return &model.Warning{
		Code:    "PREVIEW_SHORTFALL",
		Message: fmt.Sprintf("only %d of %d requested questions are available", len(preview), requested),
	}
}

// QuestionIDs lists preview ids in order.
func QuestionIDs(preview []model.Question) []int {
	ids := make([]int, len(preview))
	for i, q := range preview {
		ids[i] = q.ID
	}
	return ids
}

func questionSet(preview []model.Question) map[int]struct{} {
	set := make(map[int]struct{}, len(preview))
	for _, q := range preview {
		set[q.ID] = struct{}{}
	}
	return set
}
