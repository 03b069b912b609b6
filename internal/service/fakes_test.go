package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/repository"
)

var testAuth = &model.AuthContext{
	UpstreamToken: "upstream-token",
	User:          model.User{ID: 7, FullName: "Dewi", Roles: model.Roles{model.RoleTeacher}},
}

func conflict(msg string) error {
	return &repository.APIError{StatusCode: http.StatusConflict, Message: msg}
}

// fakeSessions is an in-memory SessionStore that records every upstream call.
type fakeSessions struct {
	mu       sync.Mutex
	rows     map[int]model.ExamSession
	nextID   int
	calls    []string
	created  []model.UpstreamSessionPayload
	assigned map[int][]int

	createErr, updateErr, cancelErr, deleteErr, assignErr error
	// cancelStatus is what upstream stores on a successful cancel.
	cancelStatus model.SessionStatus
	// failGetFrom makes the n-th and every later GetByID fail; zero disables it.
	failGetFrom int
	gets        int
}

func newFakeSessions(rows ...model.ExamSession) *fakeSessions {
	f := &fakeSessions{rows: map[int]model.ExamSession{}, nextID: 100, assigned: map[int][]int{}, cancelStatus: model.SessionStatusCancelled}
	for _, r := range rows {
		f.rows[r.ID] = r
	}
	return f
}

func (f *fakeSessions) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeSessions) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSessions) List(ctx context.Context, token string) ([]model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list")
	out := make([]model.ExamSession, 0, len(f.rows))
	for id := 1; id <= f.nextID; id++ {
		if r, ok := f.rows[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSessions) GetByID(ctx context.Context, token string, id int) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get")
	f.gets++
	if f.failGetFrom > 0 && f.gets >= f.failGetFrom {
		return nil, &repository.APIError{StatusCode: http.StatusBadGateway, Message: "blip"}
	}
	r, ok := f.rows[id]
	if !ok {
		return nil, &repository.APIError{StatusCode: http.StatusNotFound, Message: "session not found"}
	}
	return &r, nil
}

func (f *fakeSessions) Create(ctx context.Context, token string, p model.UpstreamSessionPayload) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	s := model.ExamSession{ID: f.nextID, ExamID: p.ExamID, StartAt: p.StartAt, EndAt: p.EndAt, AccessCode: p.AccessCode, Status: model.SessionStatusScheduled}
	f.rows[s.ID] = s
	f.created = append(f.created, p)
	return &s, nil
}

func (f *fakeSessions) Update(ctx context.Context, token string, id int, p model.UpstreamSessionPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update")
	if f.updateErr != nil {
		return f.updateErr
	}
	r := f.rows[id]
	r.StartAt, r.EndAt, r.AccessCode = p.StartAt, p.EndAt, p.AccessCode
	f.rows[id] = r
	return nil
}

func (f *fakeSessions) Cancel(ctx context.Context, token string, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("cancel")
	if f.cancelErr != nil {
		return f.cancelErr
	}
	r := f.rows[id]
	r.Status = f.cancelStatus
	f.rows[id] = r
	return nil
}

func (f *fakeSessions) Delete(ctx context.Context, token string, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeSessions) AssignProctors(ctx context.Context, token string, id int, proctorIDs []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("assign")
	if f.assignErr != nil {
		return f.assignErr
	}
	f.assigned[id] = proctorIDs
	return nil
}

func (f *fakeSessions) Proctors(ctx context.Context, token string, id int) ([]model.Proctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Proctor, 0)
	for _, pid := range f.assigned[id] {
		out = append(out, model.Proctor{ID: pid})
	}
	return out, nil
}

func (f *fakeSessions) AvailableProctors(ctx context.Context, token string) ([]model.Proctor, error) {
	return []model.Proctor{{ID: 1, FullName: "Budi"}, {ID: 2, FullName: "Sari"}}, nil
}

type fakeExams struct {
	exams map[int]model.Exam
	calls int
}

func (f *fakeExams) GetByID(ctx context.Context, token string, id int) (*model.Exam, error) {
	f.calls++
	e, ok := f.exams[id]
	if !ok {
		return nil, &repository.APIError{StatusCode: http.StatusNotFound, Message: "exam not found"}
	}
	return &e, nil
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []model.AuditEvent
}

func (a *recordingAuditor) Record(ctx context.Context, e model.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAuditor) actions() []model.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.AuditAction, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}

// fakeDrafts copies on the way in and out, like a real database round trip.
type fakeDrafts struct {
	mu      sync.Mutex
	rows    map[uuid.UUID][]byte
	saveErr error
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{rows: map[uuid.UUID][]byte{}}
}

func (f *fakeDrafts) put(d *model.CompositionDraft) {
	raw, _ := json.Marshal(d)
	f.rows[d.ID] = raw
}

func (f *fakeDrafts) Create(ctx context.Context, d *model.CompositionDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(d)
	return nil
}

func (f *fakeDrafts) Get(ctx context.Context, id uuid.UUID, ownerID int) (*model.CompositionDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrDraftNotFound
	}
	var d model.CompositionDraft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	if d.OwnerID != ownerID {
		return nil, repository.ErrDraftNotFound
	}
	return &d, nil
}

func (f *fakeDrafts) Save(ctx context.Context, d *model.CompositionDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.rows[d.ID]; !ok {
		return repository.ErrDraftNotFound
	}
	f.put(d)
	return nil
}

func (f *fakeDrafts) Delete(ctx context.Context, id uuid.UUID, ownerID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrDraftNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeDrafts) ListByOwner(ctx context.Context, ownerID int) ([]model.CompositionDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.CompositionDraft, 0)
	for _, raw := range f.rows {
		var d model.CompositionDraft
		_ = json.Unmarshal(raw, &d)
		if d.OwnerID == ownerID && d.Step != model.StepCompleted {
			out = append(out, d)
		}
	}
	return out, nil
}
