package service

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-console/internal/config"
	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/repository"
	"github.com/stemsi/exstem-console/internal/schedule"
)

var sessionNow = time.Date(2026, 3, 10, 8, 0, 30, 0, time.UTC)

func sessionFixtures() []model.ExamSession {
	return []model.ExamSession{
		{ID: 1, ExamID: 10, ExamTitle: "Algebra midterm", SubjectName: "Mathematics", AccessCode: "MATH01",
			StartAt: sessionNow.Add(time.Hour), EndAt: sessionNow.Add(2 * time.Hour)},
		{ID: 2, ExamID: 10, ExamTitle: "Algebra retake", SubjectName: "Mathematics", AccessCode: "MATH02",
			StartAt: sessionNow.Add(-10 * time.Minute), EndAt: sessionNow.Add(50 * time.Minute)},
		{ID: 3, ExamID: 11, ExamTitle: "Cells and tissues", SubjectName: "Biology", AccessCode: "BIO001",
			StartAt: sessionNow.Add(-3 * time.Hour), EndAt: sessionNow.Add(-2 * time.Hour)},
		{ID: 4, ExamID: 11, ExamTitle: "Genetics", SubjectName: "Biology", AccessCode: "BIO002",
			StartAt: sessionNow.Add(time.Hour), EndAt: sessionNow.Add(2 * time.Hour), Status: model.SessionStatusCancelled},
	}
}

type sessionHarness struct {
	svc      *ExamSessionService
	sessions *fakeSessions
	exams    *fakeExams
	auditor  *recordingAuditor
}

func newSessionHarness(policy config.OngoingPolicy) *sessionHarness {
	h := &sessionHarness{
		sessions: newFakeSessions(sessionFixtures()...),
		exams: &fakeExams{exams: map[int]model.Exam{
			10: {ID: 10, Title: "Algebra", Duration: 90},
			12: {ID: 12, Title: "Open-ended project", Duration: 0},
		}},
		auditor: &recordingAuditor{},
	}
	h.svc = NewExamSessionService(h.sessions, h.exams, h.auditor, policy, zerolog.Nop())
	h.svc.now = func() time.Time { return sessionNow }
	return h
}

func TestCreateRejectsInvalidWindowBeforeAnyUpstreamCall(t *testing.T) {
	past := sessionNow.Add(-2 * time.Minute)
	start := sessionNow.Add(time.Hour)
	sameAsStart := start
	tooShort := start.Add(30 * time.Second)

	tests := []struct {
		name    string
		req     model.SessionRequest
		wantErr error
	}{
		{"start in the past", model.SessionRequest{ExamID: 10, StartAt: past}, schedule.ErrStartInPast},
		{"end equals start", model.SessionRequest{ExamID: 12, StartAt: start, EndAt: &sameAsStart}, schedule.ErrInvalidWindow},
		{"shorter than a minute", model.SessionRequest{ExamID: 12, StartAt: start, EndAt: &tooShort}, schedule.ErrWindowTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newSessionHarness(config.OngoingPolicyBlock)

			_, err := h.svc.Create(context.Background(), testAuth, tt.req)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, h.sessions.callCount())
			assert.Empty(t, h.auditor.actions())
		})
	}
}

func TestCreateStartInPastSkipsExamLookup(t *testing.T) {
	h := newSessionHarness(config.OngoingPolicyBlock)

	_, err := h.svc.Create(context.Background(), testAuth, model.SessionRequest{ExamID: 10, StartAt: sessionNow.Add(-time.Hour)})

	assert.ErrorIs(t, err, schedule.ErrStartInPast)
	assert.Zero(t, h.exams.calls)
}

func TestCreateIgnoresStaleClientEnd(t *testing.T) {
	h := newSessionHarness(config.OngoingPolicyBlock)
	start := sessionNow.Add(3 * time.Hour)
	stale := sessionNow.Add(2 * time.Hour)

	res, err := h.svc.Create(context.Background(), testAuth, model.SessionRequest{ExamID: 10, StartAt: start, EndAt: &stale})

	require.NoError(t, err)
	assert.True(t, res.Session.EndAt.Equal(start.Add(90*time.Minute)))
	require.Len(t, h.sessions.created, 1)
}

func TestCreateAcceptsCurrentMinute(t *testing.T) {
	h := newSessionHarness(config.OngoingPolicyBlock)

	res, err := h.svc.Create(context.Background(), testAuth, model.SessionRequest{
		ExamID:  10,
		StartAt: sessionNow.Truncate(time.Minute),
	})

	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusScheduled, res.Session.Status)
}

func TestCreateDerivesEndFromExamDuration(t *testing.T) {
	h := newSessionHarness(config.OngoingPolicyBlock)
	start := sessionNow.Add(time.Hour)
	clientEnd := start.Add(10 * time.Minute)

	res, err := h.svc.Create(context.Background(), testAuth, model.SessionRequest{
		ExamID:  10,
		StartAt: start,
		EndAt:   &clientEnd,
	})

	require.NoError(t, err)
	require.Len(t, h.sessions.created, 1)
	assert.True(t, h.sessions.created[0].EndAt.Equal(start.Add(90*time.Minute)))
	assert.True(t, res.Session.EndAt.Equal(start.Add(90*time.Minute)))
}

func TestCreateWithoutDurationNeedsEnd(t *testing.T) {
	h := newSessionHarness(config.OngoingPolicyBlock)
	start := sessionNow.Add(time.Hour)

	_, err := h.svc.Create(context.Background(), testAuth, model.SessionRequest{ExamID: 12, StartAt: start})
	assert.ErrorIs(t, err, schedule.ErrMissingEndTime)

	end := start.Add(45 * time.Minute)
	_, err = h.svc.Create(context.Background(), testAuth, model.SessionRequest{ExamID: 12, StartAt: start, EndAt: &end})
	require.NoError(t, err)
	assert.True(t, h.sessions.created[0].EndAt.Equal(end))
}

func TestCreateAccessCode(t *testing.T) {
	h := newSessionHarness(config.OngoingPolicyBlock)
	start := sessionNow.Add(time.Hour)

	_, err := h.svc.Create(context.Background(), testAuth, model.SessionRequest{ExamID: 10, StartAt: start})
	require.NoError(t, err)
	_, err = h.svc.Create(context.Background(), testAuth, model.SessionRequest{ExamID: 10, StartAt: start, AccessCode: " room4b "})
	require.NoError(t, err)

	require.Len(t, h.sessions.created, 2)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), h.sessions.created[0].AccessCode)
	assert.Equal(t, "ROOM4B", h.sessions.created[1].AccessCode)
}

func TestCreateProctorFailureIsAWarningNotARollback(t *testing.T) {
	h := newSessionHarness(config.OngoingPolicyBlock)
	h.sessions.assignErr = &repository.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}

	res, err := h.svc.Create(context.Background(), testAuth, model.SessionRequest{
		ExamID:     10,
		StartAt:    sessionNow.Add(time.Hour),
		ProctorIDs: []int{1, 2},
	})

	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "PROCTOR_ASSIGNMENT_FAILED", res.Warnings[0].Code)

	_, stillThere := h.sessions.rows[res.Session.ID]
	assert.True(t, stillThere)
	assert.NotContains(t, h.sessions.calls, "delete")
	assert.Equal(t, []string{"create", "assign"}, h.sessions.calls)
	assert.Equal(t, []model.AuditAction{model.AuditSessionCreated, model.AuditProctorAssignmentFailed}, h.auditor.actions())
}

func TestCreateAssignsProctorsAfterCreation(t *testing.T) {
	h := newSessionHarness(config.OngoingPolicyBlock)

	res, err := h.svc.Create(context.Background(), testAuth, model.SessionRequest{
		ExamID:     10,
		StartAt:    sessionNow.Add(time.Hour),
		ProctorIDs: []int{2},
	})

	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []int{2}, h.sessions.assigned[res.Session.ID])
}

func TestCreateUpstreamFailureSkipsProctors(t *testing.T) {
	h := newSessionHarness(config.OngoingPolicyBlock)
	h.sessions.createErr = &repository.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "exam archived"}

	_, err := h.svc.Create(context.Background(), testAuth, model.SessionRequest{
		ExamID:     10,
		StartAt:    sessionNow.Add(time.Hour),
		ProctorIDs: []int{1},
	})

	var apiErr *repository.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "exam archived", apiErr.Message)
	assert.NotContains(t, h.sessions.calls, "assign")
}

func TestCancel(t *testing.T) {
	t.Run("blocked locally while ongoing", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)

		_, err := h.svc.Cancel(context.Background(), testAuth, 2)

		assert.ErrorIs(t, err, ErrCancelOngoing)
		assert.NotContains(t, h.sessions.calls, "cancel")
	})

	t.Run("server policy maps upstream conflict", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyServer)
		h.sessions.cancelErr = conflict("session is ongoing")

		_, err := h.svc.Cancel(context.Background(), testAuth, 2)

		assert.ErrorIs(t, err, ErrCancelOngoing)
		assert.Contains(t, h.sessions.calls, "cancel")
	})

	t.Run("result is re-read from upstream", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)

		res, err := h.svc.Cancel(context.Background(), testAuth, 1)

		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusCancelled, res.Session.DisplayStatus)
		assert.Empty(t, res.Warnings)
		assert.Equal(t, []model.AuditAction{model.AuditSessionCancelled}, h.auditor.actions())
	})

	t.Run("no optimistic status when upstream did not persist it", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)
		h.sessions.cancelStatus = ""

		res, err := h.svc.Cancel(context.Background(), testAuth, 1)

		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusScheduled, res.Session.DisplayStatus)
	})

	t.Run("failed re-read is a warning, not an error", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)
		h.sessions.failGetFrom = 2

		res, err := h.svc.Cancel(context.Background(), testAuth, 1)

		require.NoError(t, err)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, "SESSION_REFRESH_FAILED", res.Warnings[0].Code)
		assert.Equal(t, model.SessionStatusScheduled, res.Session.DisplayStatus, "status comes from the last read, never guessed")
		assert.Equal(t, model.SessionStatusCancelled, h.sessions.rows[1].Status)
		assert.Equal(t, []model.AuditAction{model.AuditSessionCancelled}, h.auditor.actions())
	})

	t.Run("failed re-read under server policy carries only the id", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyServer)
		h.sessions.failGetFrom = 1

		res, err := h.svc.Cancel(context.Background(), testAuth, 1)

		require.NoError(t, err)
		assert.Equal(t, 1, res.Session.ID)
		assert.Empty(t, res.Session.DisplayStatus)
		require.Len(t, res.Warnings, 1)
	})
}

func TestDelete(t *testing.T) {
	t.Run("blocked locally while ongoing", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)

		err := h.svc.Delete(context.Background(), testAuth, 2)

		assert.ErrorIs(t, err, ErrDeleteOngoing)
		assert.NotContains(t, h.sessions.calls, "delete")
	})

	t.Run("upstream conflict means active attempts", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)
		h.sessions.deleteErr = conflict("session has attempts")

		err := h.svc.Delete(context.Background(), testAuth, 3)

		assert.ErrorIs(t, err, ErrSessionHasAttempts)
	})

	t.Run("other failures stay generic", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)
		h.sessions.deleteErr = &repository.APIError{StatusCode: http.StatusInternalServerError, Message: "db down"}

		err := h.svc.Delete(context.Background(), testAuth, 3)

		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrSessionHasAttempts))
		assert.True(t, repository.IsStatus(err, http.StatusInternalServerError))
	})

	t.Run("success is audited", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)

		require.NoError(t, h.svc.Delete(context.Background(), testAuth, 3))
		_, exists := h.sessions.rows[3]
		assert.False(t, exists)
		assert.Equal(t, []model.AuditAction{model.AuditSessionDeleted}, h.auditor.actions())
	})
}

func TestUpdate(t *testing.T) {
	req := model.SessionRequest{ExamID: 10, StartAt: sessionNow.Add(3 * time.Hour)}

	t.Run("ongoing session refused", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)
		_, err := h.svc.Update(context.Background(), testAuth, 2, req)
		assert.ErrorIs(t, err, ErrEditOngoing)
		assert.NotContains(t, h.sessions.calls, "update")
	})

	t.Run("cancelled session refused", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)
		_, err := h.svc.Update(context.Background(), testAuth, 4, req)
		assert.ErrorIs(t, err, ErrSessionCancelled)
	})

	t.Run("server policy maps upstream conflict", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyServer)
		h.sessions.updateErr = conflict("ongoing")
		_, err := h.svc.Update(context.Background(), testAuth, 2, req)
		assert.ErrorIs(t, err, ErrEditOngoing)
	})

	t.Run("scheduled session updated and re-read", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)
		res, err := h.svc.Update(context.Background(), testAuth, 1, req)
		require.NoError(t, err)
		assert.True(t, res.Session.StartAt.Equal(req.StartAt))
		assert.True(t, res.Session.EndAt.Equal(req.StartAt.Add(90*time.Minute)))
		assert.NotContains(t, h.sessions.calls, "assign")
	})

	t.Run("failed re-read keeps proctor warnings", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)
		h.sessions.failGetFrom = 2
		h.sessions.assignErr = &repository.APIError{StatusCode: http.StatusInternalServerError, Message: "x"}
		withProctors := req
		withProctors.ProctorIDs = []int{5}

		res, err := h.svc.Update(context.Background(), testAuth, 1, withProctors)

		require.NoError(t, err)
		codes := []string{}
		for _, w := range res.Warnings {
			codes = append(codes, w.Code)
		}
		assert.Equal(t, []string{"PROCTOR_ASSIGNMENT_FAILED", "SESSION_REFRESH_FAILED"}, codes)
	})

	t.Run("empty proctor list clears the assignment", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)
		h.sessions.assigned[1] = []int{5, 6}
		cleared := req
		cleared.ProctorIDs = []int{}

		_, err := h.svc.Update(context.Background(), testAuth, 1, cleared)

		require.NoError(t, err)
		assert.Contains(t, h.sessions.calls, "assign")
		assert.Empty(t, h.sessions.assigned[1])
	})

	t.Run("missing proctor list leaves the assignment alone", func(t *testing.T) {
		h := newSessionHarness(config.OngoingPolicyBlock)
		h.sessions.assigned[1] = []int{5, 6}

		_, err := h.svc.Update(context.Background(), testAuth, 1, req)

		require.NoError(t, err)
		assert.Equal(t, []int{5, 6}, h.sessions.assigned[1])
	})
}

func TestListFiltersAndCounts(t *testing.T) {
	h := newSessionHarness(config.OngoingPolicyBlock)

	all, err := h.svc.List(context.Background(), testAuth, model.SessionFilter{})
	require.NoError(t, err)
	assert.Len(t, all.Sessions, 4)
	assert.Equal(t, model.StatusCounts{Scheduled: 1, Ongoing: 1, Completed: 1, Cancelled: 1}, all.Counts)
	assert.Equal(t, []string{"Biology", "Mathematics"}, all.Subjects)

	tests := []struct {
		name   string
		filter model.SessionFilter
		want   []int
	}{
		{"by subject", model.SessionFilter{SubjectName: "Biology"}, []int{3, 4}},
		{"by display status", model.SessionFilter{Status: model.SessionStatusOngoing}, []int{2}},
		{"search access code", model.SessionFilter{Search: "math01"}, []int{1}},
		{"search title", model.SessionFilter{Search: "retake"}, []int{2}},
		{"combined", model.SessionFilter{SubjectName: "Mathematics", Status: model.SessionStatusCompleted}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := h.svc.List(context.Background(), testAuth, tt.filter)
			require.NoError(t, err)

			ids := make([]int, 0, len(list.Sessions))
			for _, s := range list.Sessions {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, all.Counts, list.Counts)
		})
	}
}

func TestEndTime(t *testing.T) {
	h := newSessionHarness(config.OngoingPolicyBlock)
	start := sessionNow.Add(time.Hour)

	end, err := h.svc.EndTime(context.Background(), testAuth, 10, start)
	require.NoError(t, err)
	assert.True(t, end.Equal(start.Add(90*time.Minute)))

	_, err = h.svc.EndTime(context.Background(), testAuth, 12, start)
	assert.ErrorIs(t, err, schedule.ErrInvalidDuration)
}
