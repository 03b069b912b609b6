// Package composition holds the pure rules of building an exam from a chapter
// distribution: the sum check that gates the configure step and the constraints
// on swapping questions in a generated preview.
package composition

import (
	"fmt"
	"math"
	"sort"

	"github.com/stemsi/exstem-console/internal/model"
)

// Reasons a distribution is rejected.
const (
	ReasonEmpty          = "empty_distribution"
	ReasonMissingChapter = "missing_chapter"
	ReasonNonPositive    = "non_positive_count"
	ReasonSumMismatch    = "sum_mismatch"
	ReasonInvalidTotal   = "invalid_total"
	ReasonExceedsTotal   = "count_exceeds_total"
)

// DistributionReport is the outcome of checking a distribution against a total.
// Mismatch is ActualSum minus Required; negative means questions are missing.
type DistributionReport struct {
	Valid               bool     `json:"valid"`
	ActualSum           int      `json:"actual_sum"`
	Required            int      `json:"required"`
	Mismatch            int      `json:"mismatch"`
	Reasons             []string `json:"reasons,omitempty"`
	DuplicateChapterIDs []int    `json:"duplicate_chapter_ids,omitempty"`
}

// DistributionError is returned when a distribution cannot be submitted.
type DistributionError struct {
	Reason    string
	ActualSum int
	Required  int
}

func (e *DistributionError) Error() string {
	if e.Reason == ReasonSumMismatch {
		return fmt.Sprintf("chapter distribution sums to %d, expected %d", e.ActualSum, e.Required)
	}
	return fmt.Sprintf("invalid chapter distribution: %s", e.Reason)
}

// Mismatch is ActualSum minus Required.
func (e *DistributionError) Mismatch() int {
	return e.ActualSum - e.Required
}

// ValidateDistribution checks entries against total. It never fails on malformed
// counts: model.QuestionCount already decoded those to 0, which then shows up
// as a non-positive count. Repeated chapter ids are summed and reported.
func ValidateDistribution(entries []model.ChapterDistributionEntry, total int) *DistributionReport {
	r := &DistributionReport{Required: total}

	seen := make(map[int]int, len(entries))
	missingChapter, nonPositive, exceeds := false, false, false
	for _, e := range entries {
		count := int(e.QuestionCount)
		if total >= 1 && count > total {
			exceeds = true
		}
		r.ActualSum = addSaturating(r.ActualSum, count)
		if e.ChapterID <= 0 {
			missingChapter = true
		} else {
			seen[e.ChapterID]++
		}
		if e.QuestionCount < 1 {
			nonPositive = true
		}
	}
	r.Mismatch = subSaturating(r.ActualSum, r.Required)

	for id, n := range seen {
		if n > 1 {
			r.DuplicateChapterIDs = append(r.DuplicateChapterIDs, id)
		}
	}
	sort.Ints(r.DuplicateChapterIDs)

	if total < 1 {
		r.Reasons = append(r.Reasons, ReasonInvalidTotal)
	}
	if len(entries) == 0 {
		r.Reasons = append(r.Reasons, ReasonEmpty)
	}
	if missingChapter {
		r.Reasons = append(r.Reasons, ReasonMissingChapter)
	}
	if nonPositive {
		r.Reasons = append(r.Reasons, ReasonNonPositive)
	}
	if exceeds {
		r.Reasons = append(r.Reasons, ReasonExceedsTotal)
	}
	if r.ActualSum != r.Required {
		r.Reasons = append(r.Reasons, ReasonSumMismatch)
	}
	r.Valid = len(r.Reasons) == 0
	return r
}

// addSaturating adds without wrapping, so huge counts can never cancel out.
func addSaturating(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}

func subSaturating(a, b int) int {
	if b == math.MinInt {
		if a >= 0 {
			return math.MaxInt
		}
		return a - b
	}
	return addSaturating(a, -b)
}

// Err returns nil for a valid report, otherwise a *DistributionError carrying
// the first reason.
func (r *DistributionReport) Err() error {
	if r.Valid {
		return nil
	}
	return &DistributionError{Reason: r.Reasons[0], ActualSum: r.ActualSum, Required: r.Required}
}

// Warnings lists the non-fatal findings of a report.
func (r *DistributionReport) Warnings() []model.Warning {
	if len(r.DuplicateChapterIDs) == 0 {
		return nil
	}
	return []model.Warning{{
		Code:    "DUPLICATE_CHAPTER",
		Message: fmt.Sprintf("chapters listed more than once were summed: %v", r.DuplicateChapterIDs),
	}}
}
