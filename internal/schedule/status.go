// Package schedule holds the time rules of exam sessions: status resolution,
// scheduling windows, end-time derivation and access codes. Nothing here reads
// the clock; callers pass now.
package schedule

import (
	"time"

	"github.com/stemsi/exstem-console/internal/model"
)

// ResolveStatus derives the display status of a session.
//
// A known authoritative status wins unchanged. Otherwise the time window decides:
// before start is scheduled, start..end inclusive is ongoing, after end is completed.
func ResolveStatus(now, startAt, endAt time.Time, authoritative model.SessionStatus) model.SessionStatus {
	if authoritative.Valid() {
		return authoritative
	}
	switch {
	case now.Before(startAt):
		return model.SessionStatusScheduled
	case now.After(endAt):
		return model.SessionStatusCompleted
	default:
		return model.SessionStatusOngoing
	}
}

// View decorates a session with its status at now.
func View(s model.ExamSession, now time.Time) model.SessionView {
	return model.SessionView{
		ExamSession:   s,
		DisplayStatus: ResolveStatus(now, s.StartAt, s.EndAt, s.Status),
	}
}

// Views decorates every session with the same now so one response never mixes instants.
func Views(sessions []model.ExamSession, now time.Time) []model.SessionView {
	out := make([]model.SessionView, len(sessions))
	for i, s := range sessions {
		out[i] = View(s, now)
	}
	return out
}

// Count tallies views by display status.
func Count(views []model.SessionView) model.StatusCounts {
	var c model.StatusCounts
	for _, v := range views {
		c.Add(v.DisplayStatus)
	}
	return c
}
