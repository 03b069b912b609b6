package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stemsi/exstem-console/internal/model"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func TestResolveStatusTimeWindow(t *testing.T) {
	start := mustTime(t, "2025-01-01T08:00:00Z")
	end := mustTime(t, "2025-01-01T10:00:00Z")

	tests := []struct {
		name string
		now  string
		want model.SessionStatus
	}{
		{name: "well before start", now: "2024-12-31T08:00:00Z", want: model.SessionStatusScheduled},
		{name: "one second before start", now: "2025-01-01T07:59:59Z", want: model.SessionStatusScheduled},
		{name: "exactly start", now: "2025-01-01T08:00:00Z", want: model.SessionStatusOngoing},
		{name: "middle", now: "2025-01-01T09:00:00Z", want: model.SessionStatusOngoing},
		{name: "exactly end", now: "2025-01-01T10:00:00Z", want: model.SessionStatusOngoing},
		{name: "one second after end", now: "2025-01-01T10:00:01Z", want: model.SessionStatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveStatus(mustTime(t, tt.now), start, end, "")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveStatusPartitionsTimeline(t *testing.T) {
	start := mustTime(t, "2025-03-10T12:00:00Z")
	end := start.Add(90 * time.Minute)

	prev := model.SessionStatusScheduled
	transitions := 0
	for now := start.Add(-10 * time.Minute); !now.After(end.Add(10 * time.Minute)); now = now.Add(30 * time.Second) {
		got := ResolveStatus(now, start, end, "")
		assert.Contains(t, []model.SessionStatus{
			model.SessionStatusScheduled, model.SessionStatusOngoing, model.SessionStatusCompleted,
		}, got)
		if got != prev {
			transitions++
			prev = got
		}
	}
	assert.Equal(t, 2, transitions, "scheduled -> ongoing -> completed exactly once each")
}

func TestResolveStatusAuthoritativeWins(t *testing.T) {
	start := mustTime(t, "2025-01-01T08:00:00Z")
	end := mustTime(t, "2025-01-01T10:00:00Z")
	instants := []time.Time{
		start.Add(-time.Hour),
		start.Add(time.Hour),
		end.Add(time.Hour),
	}

	for _, status := range []model.SessionStatus{
		model.SessionStatusScheduled,
		model.SessionStatusOngoing,
		model.SessionStatusCompleted,
		model.SessionStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			for _, now := range instants {
				assert.Equal(t, status, ResolveStatus(now, start, end, status))
			}
		})
	}
}

func TestResolveStatusUnknownAuthoritativeFallsBack(t *testing.T) {
	start := mustTime(t, "2025-01-01T08:00:00Z")
	end := mustTime(t, "2025-01-01T10:00:00Z")

	got := ResolveStatus(mustTime(t, "2025-01-01T09:00:00Z"), start, end, "paused")
	assert.Equal(t, model.SessionStatusOngoing, got)
}

func TestViewsAndCount(t *testing.T) {
	now := mustTime(t, "2025-01-01T09:00:00Z")
	sessions := []model.ExamSession{
		{ID: 1, StartAt: now.Add(time.Hour), EndAt: now.Add(2 * time.Hour)},
		{ID: 2, StartAt: now.Add(-time.Hour), EndAt: now.Add(time.Hour)},
		{ID: 3, StartAt: now.Add(-3 * time.Hour), EndAt: now.Add(-2 * time.Hour)},
		{ID: 4, StartAt: now.Add(time.Hour), EndAt: now.Add(2 * time.Hour), Status: model.SessionStatusCancelled},
		{ID: 5, StartAt: now.Add(-time.Hour), EndAt: now.Add(time.Hour), Status: model.SessionStatusOngoing},
	}

	views := Views(sessions, now)
	assert.Equal(t, model.SessionStatusScheduled, views[0].DisplayStatus)
	assert.Equal(t, model.SessionStatusOngoing, views[1].DisplayStatus)
	assert.Equal(t, model.SessionStatusCompleted, views[2].DisplayStatus)
	assert.Equal(t, model.SessionStatusCancelled, views[3].DisplayStatus)

	assert.Equal(t, model.StatusCounts{Scheduled: 1, Ongoing: 2, Completed: 1, Cancelled: 1}, Count(views))
}
