package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/config"
	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/poller"
	"github.com/stemsi/exstem-console/internal/repository"
	"github.com/stemsi/exstem-console/internal/schedule"
)

// Session conflicts. Each one maps to its own error code so the browser can
// tell the user exactly why the action was refused.
var (
	ErrCancelOngoing      = errors.New("cannot cancel an ongoing session")
	ErrEditOngoing        = errors.New("cannot edit an ongoing session")
	ErrDeleteOngoing      = errors.New("cannot delete an ongoing session")
	ErrSessionHasAttempts = errors.New("cannot delete a session with active attempts")
	ErrSessionCancelled   = errors.New("session is cancelled")
)

// SessionStore is the upstream session surface used by the orchestrator.
type SessionStore interface {
	List(ctx context.Context, token string) ([]model.ExamSession, error)
	GetByID(ctx context.Context, token string, id int) (*model.ExamSession, error)
	Create(ctx context.Context, token string, p model.UpstreamSessionPayload) (*model.ExamSession, error)
	Update(ctx context.Context, token string, id int, p model.UpstreamSessionPayload) error
	Cancel(ctx context.Context, token string, id int) error
	Delete(ctx context.Context, token string, id int) error
	AssignProctors(ctx context.Context, token string, id int, proctorIDs []int) error
	Proctors(ctx context.Context, token string, id int) ([]model.Proctor, error)
	AvailableProctors(ctx context.Context, token string) ([]model.Proctor, error)
}

// ExamLookup resolves an exam for its duration.
type ExamLookup interface {
	GetByID(ctx context.Context, token string, id int) (*model.Exam, error)
}

// SessionList is a filtered session list plus counts over the unfiltered one.
type SessionList struct {
	Sessions []model.SessionView `json:"sessions"`
	Counts   model.StatusCounts  `json:"counts"`
	Subjects []string            `json:"subjects"`
}

// ExamSessionService orchestrates session create/update/cancel/delete.
// It applies every local rule before any upstream call and never changes a
// status optimistically: results are always re-read from upstream.
type ExamSessionService struct {
	sessions SessionStore
	exams    ExamLookup
	auditor  Auditor
	policy   config.OngoingPolicy
	now      func() time.Time
	log      zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	sessions SessionStore,
	exams ExamLookup,
	auditor Auditor,
	policy config.OngoingPolicy,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		sessions: sessions,
		exams:    exams,
		auditor:  auditor,
		policy:   policy,
		now:      time.Now,
		log:      log.With().Str("component", "session_orchestrator").Logger(),
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Reads
// ────────────────────────────────────────────────────────────────────────────

// List returns sessions with their display status, narrowed by filter.
func (s *ExamSessionService) List(ctx context.Context, auth *model.AuthContext, filter model.SessionFilter) (*SessionList, error) {
	sessions, err := s.sessions.List(ctx, auth.UpstreamToken)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	views := schedule.Views(sessions, s.now())
	out := &SessionList{
		Sessions: make([]model.SessionView, 0, len(views)),
		Counts:   schedule.Count(views),
		Subjects: subjectNames(views),
	}
	for _, v := range views {
		if matchesFilter(v, filter) {
			out.Sessions = append(out.Sessions, v)
		}
	}
	return out, nil
}

// Get returns one session with its display status.
func (s *ExamSessionService) Get(ctx context.Context, auth *model.AuthContext, id int) (*model.SessionView, error) {
	session, err := s.sessions.GetByID(ctx, auth.UpstreamToken, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	view := schedule.View(*session, s.now())
	return &view, nil
}

// Proctors returns the proctors assigned to a session.
func (s *ExamSessionService) Proctors(ctx context.Context, auth *model.AuthContext, id int) ([]model.Proctor, error) {
	proctors, err := s.sessions.Proctors(ctx, auth.UpstreamToken, id)
	if err != nil {
		return nil, fmt.Errorf("session proctors: %w", err)
	}
	return proctors, nil
}

// AvailableProctors lists users that can be assigned.
func (s *ExamSessionService) AvailableProctors(ctx context.Context, auth *model.AuthContext) ([]model.Proctor, error) {
	proctors, err := s.sessions.AvailableProctors(ctx, auth.UpstreamToken)
	if err != nil {
		return nil, fmt.Errorf("available proctors: %w", err)
	}
	return proctors, nil
}

// EndTime derives the end of a session starting at start for examID.
func (s *ExamSessionService) EndTime(ctx context.Context, auth *model.AuthContext, examID int, start time.Time) (time.Time, error) {
	exam, err := s.exams.GetByID(ctx, auth.UpstreamToken, examID)
	if err != nil {
		return time.Time{}, fmt.Errorf("get exam: %w", err)
	}
	return schedule.EndTime(start, exam.Duration)
}

// ListPoller refreshes a filtered session list every interval.
func (s *ExamSessionService) ListPoller(auth *model.AuthContext, filter model.SessionFilter, interval time.Duration, publish func(poller.Result[*SessionList])) *poller.Poller[*SessionList] {
	return poller.New(interval, func(ctx context.Context) (*SessionList, error) {
		return s.List(ctx, auth, filter)
	}, publish, s.log)
}

// ────────────────────────────────────────────────────────────────────────────
// Mutations
// ────────────────────────────────────────────────────────────────────────────

// Create validates the window, creates the session, then assigns proctors.
// A failed assignment is reported as a warning and never undoes the session.
func (s *ExamSessionService) Create(ctx context.Context, auth *model.AuthContext, req model.SessionRequest) (*model.SessionMutationResult, error) {
	now := s.now()
	payload, err := s.buildPayload(ctx, auth, req, now)
	if err != nil {
		return nil, err
	}

	created, err := s.sessions.Create(ctx, auth.UpstreamToken, *payload)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.audit(ctx, auth, created.ID, model.AuditSessionCreated, fmt.Sprintf("exam %d, %s - %s",
		payload.ExamID, payload.StartAt.Format(time.RFC3339), payload.EndAt.Format(time.RFC3339)))

	result := &model.SessionMutationResult{Session: schedule.View(*created, now)}
	if len(req.ProctorIDs) > 0 {
		if w := s.assignProctors(ctx, auth, created.ID, req.ProctorIDs); w != nil {
			result.Warnings = append(result.Warnings, *w)
		}
	}
	return result, nil
}

// Update validates and replaces a session. Ongoing sessions are refused.
// A nil ProctorIDs leaves the assignment alone; an empty one clears it.
func (s *ExamSessionService) Update(ctx context.Context, auth *model.AuthContext, id int, req model.SessionRequest) (*model.SessionMutationResult, error) {
	now := s.now()
	before, err := s.guard(ctx, auth, id, now, ErrEditOngoing)
	if err != nil {
		return nil, err
	}
	payload, err := s.buildPayload(ctx, auth, req, now)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Update(ctx, auth.UpstreamToken, id, *payload); err != nil {
		if repository.IsStatus(err, http.StatusConflict) {
			return nil, ErrEditOngoing
		}
		return nil, fmt.Errorf("update session: %w", err)
	}
	s.audit(ctx, auth, id, model.AuditSessionUpdated, fmt.Sprintf("%s - %s",
		payload.StartAt.Format(time.RFC3339), payload.EndAt.Format(time.RFC3339)))

	var warnings []model.Warning
	if req.ProctorIDs != nil {
		if w := s.assignProctors(ctx, auth, id, req.ProctorIDs); w != nil {
			warnings = append(warnings, *w)
		}
	}

	return s.reread(ctx, auth, id, before, warnings), nil
}

// Cancel cancels a session. The returned session is re-read from upstream.
func (s *ExamSessionService) Cancel(ctx context.Context, auth *model.AuthContext, id int) (*model.SessionMutationResult, error) {
	before, err := s.guard(ctx, auth, id, s.now(), ErrCancelOngoing)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Cancel(ctx, auth.UpstreamToken, id); err != nil {
		if repository.IsStatus(err, http.StatusConflict) {
			return nil, ErrCancelOngoing
		}
		return nil, fmt.Errorf("cancel session: %w", err)
	}
	s.audit(ctx, auth, id, model.AuditSessionCancelled, "")
	return s.reread(ctx, auth, id, before, nil), nil
}

// Delete removes a session.
func (s *ExamSessionService) Delete(ctx context.Context, auth *model.AuthContext, id int) error {
	if _, err := s.guard(ctx, auth, id, s.now(), ErrDeleteOngoing); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, auth.UpstreamToken, id); err != nil {
		if repository.IsStatus(err, http.StatusConflict) {
			return ErrSessionHasAttempts
		}
		return fmt.Errorf("delete session: %w", err)
	}
	s.audit(ctx, auth, id, model.AuditSessionDeleted, "")
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

// guard applies the ongoing policy and returns the session it checked. With the
// server policy upstream's 409 is the only check and no session is read.
func (s *ExamSessionService) guard(ctx context.Context, auth *model.AuthContext, id int, now time.Time, ongoingErr error) (*model.ExamSession, error) {
	if s.policy == config.OngoingPolicyServer {
		return nil, nil
	}
	session, err := s.sessions.GetByID(ctx, auth.UpstreamToken, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	switch schedule.ResolveStatus(now, session.StartAt, session.EndAt, session.Status) {
	case model.SessionStatusOngoing:
		return nil, ongoingErr
	case model.SessionStatusCancelled:
		if ongoingErr == ErrEditOngoing {
			return nil, ErrSessionCancelled
		}
	}
	return session, nil
}

// reread fetches the session after a successful mutation. When that read fails the
// mutation still stands: the last known state is returned untouched with a warning.
func (s *ExamSessionService) reread(ctx context.Context, auth *model.AuthContext, id int, before *model.ExamSession, warnings []model.Warning) *model.SessionMutationResult {
	view, err := s.Get(ctx, auth, id)
	if err == nil {
		return &model.SessionMutationResult{Session: *view, Warnings: warnings}
	}

	s.log.Warn().Err(err).Int("session_id", id).Msg("session refresh after mutation failed")
	last := model.SessionView{ExamSession: model.ExamSession{ID: id}}
	if before != nil {
		last = schedule.View(*before, s.now())
	}
	warnings = append(warnings, model.Warning{
		Code:    "SESSION_REFRESH_FAILED",
		Message: "The change was saved, but the session could not be reloaded. Refresh the list to see its current state.",
	})
	return &model.SessionMutationResult{Session: last, Warnings: warnings}
}

// buildPayload runs the local checks and derives the end time and access code.
// The start check needs no network, so it runs before the exam lookup. A client
// end is only read when the exam has no duration, so only the resolved window is validated.
func (s *ExamSessionService) buildPayload(ctx context.Context, auth *model.AuthContext, req model.SessionRequest, now time.Time) (*model.UpstreamSessionPayload, error) {
	start := req.StartAt
	if err := schedule.ValidateStart(now, start); err != nil {
		return nil, err
	}

	exam, err := s.exams.GetByID(ctx, auth.UpstreamToken, req.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	end, err := schedule.ResolveEndTime(start, exam.Duration, req.EndAt)
	if err != nil {
		return nil, err
	}
	if err := schedule.ValidateWindow(now, start, end); err != nil {
		return nil, err
	}

	code, err := schedule.NormalizeAccessCode(req.AccessCode)
	if err != nil {
		return nil, fmt.Errorf("generate access code: %w", err)
	}
	return &model.UpstreamSessionPayload{
		ExamID:     req.ExamID,
		StartAt:    start.UTC(),
		EndAt:      end.UTC(),
		AccessCode: code,
	}, nil
}

func (s *ExamSessionService) assignProctors(ctx context.Context, auth *model.AuthContext, sessionID int, proctorIDs []int) *model.Warning {
	if err := s.sessions.AssignProctors(ctx, auth.UpstreamToken, sessionID, proctorIDs); err != nil {
		s.log.Warn().Err(err).Int("session_id", sessionID).Ints("proctor_ids", proctorIDs).Msg("proctor assignment failed")
		s.audit(ctx, auth, sessionID, model.AuditProctorAssignmentFailed, err.Error())
		return &model.Warning{
			Code:    "PROCTOR_ASSIGNMENT_FAILED",
			Message: "Session saved, but assigning proctors failed. Assign them again from the session list.",
		}
	}
	s.audit(ctx, auth, sessionID, model.AuditProctorAssignmentApplied, fmt.Sprint(proctorIDs))
	return nil
}

func (s *ExamSessionService) audit(ctx context.Context, auth *model.AuthContext, sessionID int, action model.AuditAction, detail string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, model.AuditEvent{
		SessionID:  sessionID,
		ActorID:    auth.User.ID,
		Action:     action,
		Detail:     detail,
		OccurredAt: s.now().UTC(),
	})
}

func matchesFilter(v model.SessionView, f model.SessionFilter) bool {
	if f.SubjectName != "" && v.SubjectName != f.SubjectName {
		return false
	}
	if f.Status != "" && v.DisplayStatus != f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(v.AccessCode), q) ||
			strings.Contains(strings.ToLower(v.ExamTitle), q) ||
			strings.Contains(strings.ToLower(v.SubjectName), q)
	}
	return true
}

func subjectNames(views []model.SessionView) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, v := range views {
		if v.SubjectName == "" {
			continue
		}
		if _, ok := seen[v.SubjectName]; ok {
			continue
		}
		seen[v.SubjectName] = struct{}{}
		names = append(names, v.SubjectName)
	}
	sort.Strings(names)
	return names
}
