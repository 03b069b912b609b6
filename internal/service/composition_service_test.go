package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-console/internal/composition"
	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/repository"
)

type fakeCompositionUpstream struct {
	bank       map[int][]model.Question // chapter id -> questions
	previewErr error
	createErr  error
	created    []model.ExamRequest
	short      int // drop this many questions from every preview
}

func (f *fakeCompositionUpstream) GeneratePreview(ctx context.Context, token string, p model.GeneratePreviewPayload) ([]model.Question, error) {
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	out := make([]model.Question, 0, p.TotalQuestions)
	for _, entry := range p.ChapterDistribution {
		pool := f.bank[entry.ChapterID]
		n := int(entry.QuestionCount)
		if n > len(pool) {
			n = len(pool)
		}
		out = append(out, pool[:n]...)
	}
	if f.short > 0 && f.short <= len(out) {
		out = out[:len(out)-f.short]
	}
	return out, nil
}

func (f *fakeCompositionUpstream) ChapterQuestions(ctx context.Context, token string, chapterID int) ([]model.Question, error) {
	return f.bank[chapterID], nil
}

func (f *fakeCompositionUpstream) Create(ctx context.Context, token string, req model.ExamRequest) (*model.Exam, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &model.Exam{ID: 500 + len(f.created), Title: req.Title}, nil
}

type fakeChapters struct{}

func (fakeChapters) Chapters(ctx context.Context, token string, subjectID int) ([]model.Chapter, error) {
	return []model.Chapter{{ID: 1, SubjectID: subjectID, Name: "Limits"}, {ID: 2, SubjectID: subjectID, Name: "Derivatives"}}, nil
}

func chapterBank() map[int][]model.Question {
	bank := map[int][]model.Question{}
	for ch := 1; ch <= 2; ch++ {
		for i := 1; i <= 6; i++ {
			bank[ch] = append(bank[ch], model.Question{ID: ch*100 + i, SubjectID: 3, ChapterID: ch, Content: "q"})
		}
	}
	return bank
}

func validConfig() model.CompositionConfig {
	return model.CompositionConfig{
		SubjectID:       3,
		Title:           "Calculus quiz",
		TotalQuestions:  5,
		DurationMinutes: 40,
		ChapterDistribution: []model.ChapterDistributionEntry{
			{ChapterID: 1, QuestionCount: 3},
			{ChapterID: 2, QuestionCount: 2},
		},
	}
}

type compositionHarness struct {
	svc      *CompositionService
	drafts   *fakeDrafts
	upstream *fakeCompositionUpstream
}

func newCompositionHarness() *compositionHarness {
	h := &compositionHarness{drafts: newFakeDrafts(), upstream: &fakeCompositionUpstream{bank: chapterBank()}}
	h.svc = NewCompositionService(h.drafts, h.upstream, fakeChapters{}, zerolog.Nop())
	return h
}

// previewDraft walks a fresh draft up to the preview step.
func (h *compositionHarness) previewDraft(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	d, err := h.svc.Start(ctx, testAuth)
	require.NoError(t, err)
	_, _, err = h.svc.SelectSubject(ctx, testAuth, d.ID, 3)
	require.NoError(t, err)
	_, err = h.svc.Configure(ctx, testAuth, d.ID, validConfig())
	require.NoError(t, err)
	res, err := h.svc.GeneratePreview(ctx, testAuth, d.ID)
	require.NoError(t, err)
	require.Equal(t, model.StepPreview, res.Draft.Step)
	return d.ID
}

func TestCompositionHappyPath(t *testing.T) {
	h := newCompositionHarness()
	ctx := context.Background()
	id := h.previewDraft(t)

	d, err := h.svc.Get(ctx, testAuth, id)
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 103, 201, 202}, composition.QuestionIDs(d.Preview))

	summary, err := h.svc.Confirm(ctx, testAuth, id)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.QuestionCount)
	assert.Equal(t, "Calculus quiz", summary.Title)

	keys := make([]string, 0, len(summary.NextActions))
	for _, a := range summary.NextActions {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []string{"restart", "exam_list", "shuffle"}, keys)

	require.Len(t, h.upstream.created, 1)
	assert.Equal(t, []int{101, 102, 103, 201, 202}, h.upstream.created[0].QuestionIDs)
	assert.Equal(t, 40, h.upstream.created[0].Duration)

	d, err = h.svc.Get(ctx, testAuth, id)
	require.NoError(t, err)
	assert.Equal(t, model.StepCompleted, d.Step)
	require.NotNil(t, d.ExamID)
	assert.Equal(t, summary.ExamID, *d.ExamID)
}

func TestConfigureRejectsMismatchedDistribution(t *testing.T) {
	h := newCompositionHarness()
	ctx := context.Background()
	d, err := h.svc.Start(ctx, testAuth)
	require.NoError(t, err)

	cfg := validConfig()
	cfg.TotalQuestions = 6

	_, err = h.svc.Configure(ctx, testAuth, d.ID, cfg)

	var distErr *composition.DistributionError
	require.ErrorAs(t, err, &distErr)
	assert.Equal(t, -1, distErr.Mismatch())

	stored, err := h.svc.Get(ctx, testAuth, d.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Config.TotalQuestions)
	assert.Equal(t, model.StepConfigure, stored.Step)
}

func TestSelectSubjectClearsDistribution(t *testing.T) {
	h := newCompositionHarness()
	ctx := context.Background()
	d, err := h.svc.Start(ctx, testAuth)
	require.NoError(t, err)
	_, err = h.svc.Configure(ctx, testAuth, d.ID, validConfig())
	require.NoError(t, err)

	updated, chapters, err := h.svc.SelectSubject(ctx, testAuth, d.ID, 9)

	require.NoError(t, err)
	assert.Len(t, chapters, 2)
	assert.Equal(t, 9, updated.Config.SubjectID)
	assert.Empty(t, updated.Config.ChapterDistribution)
	assert.Equal(t, "Calculus quiz", updated.Config.Title)
}

func TestPreviewShortfallIsAWarning(t *testing.T) {
	h := newCompositionHarness()
	h.upstream.short = 1
	ctx := context.Background()
	d, err := h.svc.Start(ctx, testAuth)
	require.NoError(t, err)
	_, err = h.svc.Configure(ctx, testAuth, d.ID, validConfig())
	require.NoError(t, err)

	res, err := h.svc.GeneratePreview(ctx, testAuth, d.ID)

	require.NoError(t, err)
	assert.Len(t, res.Draft.Preview, 4)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "PREVIEW_SHORTFALL", res.Warnings[0].Code)
}

func TestPreviewFailureKeepsStep(t *testing.T) {
	h := newCompositionHarness()
	h.upstream.previewErr = &repository.APIError{StatusCode: http.StatusInternalServerError, Message: "not enough questions"}
	ctx := context.Background()
	d, err := h.svc.Start(ctx, testAuth)
	require.NoError(t, err)
	_, err = h.svc.Configure(ctx, testAuth, d.ID, validConfig())
	require.NoError(t, err)

	_, err = h.svc.GeneratePreview(ctx, testAuth, d.ID)

	assert.ErrorIs(t, err, ErrPreviewFailed)
	var apiErr *repository.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not enough questions", apiErr.Message)

	stored, err := h.svc.Get(ctx, testAuth, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StepConfigure, stored.Step)
	assert.Empty(t, stored.Preview)
}

func TestPreviewNeedsSubject(t *testing.T) {
	h := newCompositionHarness()
	ctx := context.Background()
	d, err := h.svc.Start(ctx, testAuth)
	require.NoError(t, err)

	_, err = h.svc.GeneratePreview(ctx, testAuth, d.ID)
	assert.ErrorIs(t, err, ErrSubjectNotSelected)
}

func TestConfirmFailureKeepsPreview(t *testing.T) {
	h := newCompositionHarness()
	ctx := context.Background()
	id := h.previewDraft(t)
	h.upstream.createErr = errors.New("connection reset")

	_, err := h.svc.Confirm(ctx, testAuth, id)

	assert.ErrorIs(t, err, ErrCompositionSave)
	stored, err := h.svc.Get(ctx, testAuth, id)
	require.NoError(t, err)
	assert.Equal(t, model.StepPreview, stored.Step)
	assert.Len(t, stored.Preview, 5)
	assert.Nil(t, stored.ExamID)
}

func TestReplaceQuestion(t *testing.T) {
	h := newCompositionHarness()
	ctx := context.Background()
	id := h.previewDraft(t)

	candidates, err := h.svc.ReplacementCandidates(ctx, testAuth, id, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{104, 105, 106}, composition.QuestionIDs(candidates))

	d, err := h.svc.Replace(ctx, testAuth, id, 1, 105)
	require.NoError(t, err)
	assert.Equal(t, []int{101, 105, 103, 201, 202}, composition.QuestionIDs(d.Preview))

	t.Run("duplicate rejected", func(t *testing.T) {
		_, err := h.svc.Replace(ctx, testAuth, id, 0, 103)
		assert.ErrorIs(t, err, composition.ErrDuplicateQuestion)
	})

	t.Run("other chapter rejected", func(t *testing.T) {
		_, err := h.svc.Replace(ctx, testAuth, id, 0, 204)
		assert.ErrorIs(t, err, composition.ErrChapterMismatch)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := h.svc.Replace(ctx, testAuth, id, 5, 104)
		assert.ErrorIs(t, err, composition.ErrIndexOutOfRange)
	})

	stored, err := h.svc.Get(ctx, testAuth, id)
	require.NoError(t, err)
	assert.Equal(t, []int{101, 105, 103, 201, 202}, composition.QuestionIDs(stored.Preview))
}

func TestBackPreservesConfigAndDiscardsEdits(t *testing.T) {
	h := newCompositionHarness()
	ctx := context.Background()
	id := h.previewDraft(t)
	_, err := h.svc.Replace(ctx, testAuth, id, 0, 106)
	require.NoError(t, err)

	d, err := h.svc.Back(ctx, testAuth, id)
	require.NoError(t, err)
	assert.Equal(t, model.StepConfigure, d.Step)
	assert.Empty(t, d.Preview)
	assert.Equal(t, validConfig().ChapterDistribution, d.Config.ChapterDistribution)

	res, err := h.svc.GeneratePreview(ctx, testAuth, id)
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 103, 201, 202}, composition.QuestionIDs(res.Draft.Preview))
}

func TestStepGuards(t *testing.T) {
	h := newCompositionHarness()
	ctx := context.Background()
	d, err := h.svc.Start(ctx, testAuth)
	require.NoError(t, err)

	_, err = h.svc.Confirm(ctx, testAuth, d.ID)
	assert.ErrorIs(t, err, ErrWrongStep)
	_, err = h.svc.Back(ctx, testAuth, d.ID)
	assert.ErrorIs(t, err, ErrWrongStep)

	id := h.previewDraft(t)
	_, err = h.svc.Configure(ctx, testAuth, id, validConfig())
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestRestartClearsEverything(t *testing.T) {
	h := newCompositionHarness()
	ctx := context.Background()
	id := h.previewDraft(t)
	_, err := h.svc.Confirm(ctx, testAuth, id)
	require.NoError(t, err)

	d, err := h.svc.Restart(ctx, testAuth, id)
	require.NoError(t, err)
	assert.Equal(t, model.StepConfigure, d.Step)
	assert.Equal(t, model.CompositionConfig{}, d.Config)
	assert.Nil(t, d.ExamID)
	assert.Empty(t, d.Preview)
}

func TestDraftsAreOwnerScoped(t *testing.T) {
	h := newCompositionHarness()
	ctx := context.Background()
	d, err := h.svc.Start(ctx, testAuth)
	require.NoError(t, err)

	other := &model.AuthContext{UpstreamToken: "x", User: model.User{ID: 99}}
	_, err = h.svc.Get(ctx, other, d.ID)
	assert.ErrorIs(t, err, repository.ErrDraftNotFound)
}

func TestDiscardDraft(t *testing.T) {
	h := newCompositionHarness()
	ctx := context.Background()
	id := h.previewDraft(t)

	require.NoError(t, h.svc.Discard(ctx, testAuth, id))
	_, err := h.svc.Get(ctx, testAuth, id)
	assert.ErrorIs(t, err, repository.ErrDraftNotFound)

	id = h.previewDraft(t)
	_, err = h.svc.Confirm(ctx, testAuth, id)
	require.NoError(t, err)
	assert.ErrorIs(t, h.svc.Discard(ctx, testAuth, id), ErrWrongStep)
}
