package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/composition"
	"github.com/stemsi/exstem-console/internal/model"
)

// Composition workflow errors.
var (
	ErrWrongStep          = errors.New("action not available at the current step")
	ErrSubjectNotSelected = errors.New("no subject selected")
	ErrPreviewFailed      = errors.New("preview generation failed")
	ErrCompositionSave    = errors.New("saving the exam failed")
)

// DraftStore persists composition drafts.
type DraftStore interface {
	Create(ctx context.Context, d *model.CompositionDraft) error
	Get(ctx context.Context, id uuid.UUID, ownerID int) (*model.CompositionDraft, error)
	Save(ctx context.Context, d *model.CompositionDraft) error
	ListByOwner(ctx context.Context, ownerID int) ([]model.CompositionDraft, error)
	Delete(ctx context.Context, id uuid.UUID, ownerID int) error
}

// CompositionUpstream is the upstream surface the workflow needs.
type CompositionUpstream interface {
	GeneratePreview(ctx context.Context, token string, p model.GeneratePreviewPayload) ([]model.Question, error)
	ChapterQuestions(ctx context.Context, token string, chapterID int) ([]model.Question, error)
	Create(ctx context.Context, token string, req model.ExamRequest) (*model.Exam, error)
}

// ChapterLister lists the chapters of a subject.
type ChapterLister interface {
	Chapters(ctx context.Context, token string, subjectID int) ([]model.Chapter, error)
}

// DraftResult is a draft plus the non-fatal findings of the step that produced it.
type DraftResult struct {
	Draft    *model.CompositionDraft
	Warnings []model.Warning
}

// CompositionService runs the configure → preview → completed workflow.
// A failing step leaves the draft exactly where it was.
type CompositionService struct {
	drafts   DraftStore
	upstream CompositionUpstream
	chapters ChapterLister
	log      zerolog.Logger
}

// NewCompositionService creates a new CompositionService.
func NewCompositionService(drafts DraftStore, upstream CompositionUpstream, chapters ChapterLister, log zerolog.Logger) *CompositionService {
	return &CompositionService{
		drafts:   drafts,
		upstream: upstream,
		chapters: chapters,
		log:      log.With().Str("component", "composition").Logger(),
	}
}

// Start opens an empty draft at the configure step.
func (s *CompositionService) Start(ctx context.Context, auth *model.AuthContext) (*model.CompositionDraft, error) {
	d := &model.CompositionDraft{
		ID:      uuid.New(),
		OwnerID: auth.User.ID,
		Step:    model.StepConfigure,
	}
	if err := s.drafts.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	return d, nil
}

// Get loads one of the caller's drafts.
func (s *CompositionService) Get(ctx context.Context, auth *model.AuthContext, id uuid.UUID) (*model.CompositionDraft, error) {
	d, err := s.drafts.Get(ctx, id, auth.User.ID)
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return d, nil
}

// List returns the caller's unfinished drafts.
func (s *CompositionService) List(ctx context.Context, auth *model.AuthContext) ([]model.CompositionDraft, error) {
	drafts, err := s.drafts.ListByOwner(ctx, auth.User.ID)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return drafts, nil
}

// SelectSubject switches the draft's subject, clears its distribution and
// returns the subject's chapters.
func (s *CompositionService) SelectSubject(ctx context.Context, auth *model.AuthContext, id uuid.UUID, subjectID int) (*model.CompositionDraft, []model.Chapter, error) {
	d, err := s.load(ctx, auth, id, model.StepConfigure)
	if err != nil {
		return nil, nil, err
	}

	chapters, err := s.chapters.Chapters(ctx, auth.UpstreamToken, subjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("list chapters: %w", err)
	}

	d.Config.SubjectID = subjectID
	d.Config.ChapterDistribution = nil
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, nil, fmt.Errorf("save draft: %w", err)
	}
	return d, chapters, nil
}

// ValidateDistribution re-checks a distribution without touching any draft.
func (s *CompositionService) ValidateDistribution(req model.ValidateDistributionRequest) *composition.DistributionReport {
	return composition.ValidateDistribution(req.ChapterDistribution, req.TotalQuestions)
}

// Configure stores the exam settings once the distribution adds up.
func (s *CompositionService) Configure(ctx context.Context, auth *model.AuthContext, id uuid.UUID, cfg model.CompositionConfig) (*DraftResult, error) {
	d, err := s.load(ctx, auth, id, model.StepConfigure)
	if err != nil {
		return nil, err
	}

	report := composition.ValidateDistribution(cfg.ChapterDistribution, cfg.TotalQuestions)
	if err := report.Err(); err != nil {
		return nil, err
	}

	d.Config = cfg
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return &DraftResult{Draft: d, Warnings: report.Warnings()}, nil
}

// GeneratePreview draws questions for the stored configuration and moves the
// draft to the preview step. Fewer questions than requested is a warning.
func (s *CompositionService) GeneratePreview(ctx context.Context, auth *model.AuthContext, id uuid.UUID) (*DraftResult, error) {
	d, err := s.load(ctx, auth, id, model.StepConfigure, model.StepPreview)
	if err != nil {
		return nil, err
	}
	if d.Config.SubjectID == 0 {
		return nil, ErrSubjectNotSelected
	}
	report := composition.ValidateDistribution(d.Config.ChapterDistribution, d.Config.TotalQuestions)
	if err := report.Err(); err != nil {
		return nil, err
	}

	questions, err := s.upstream.GeneratePreview(ctx, auth.UpstreamToken, model.GeneratePreviewPayload{
		SubjectID:           d.Config.SubjectID,
		TotalQuestions:      d.Config.TotalQuestions,
		ChapterDistribution: d.Config.ChapterDistribution,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("draft_id", d.ID.String()).Msg("generate preview failed")
		return nil, fmt.Errorf("%w: %w", ErrPreviewFailed, err)
	}

	var warnings []model.Warning
	if w := composition.Shortfall(d.Config.TotalQuestions, questions); w != nil {
		warnings = append(warnings, *w)
	}

	d.Preview = questions
	d.Step = model.StepPreview
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return &DraftResult{Draft: d, Warnings: append(warnings, report.Warnings()...)}, nil
}

// ReplacementCandidates lists same-chapter questions not yet in the preview.
func (s *CompositionService) ReplacementCandidates(ctx context.Context, auth *model.AuthContext, id uuid.UUID, index int) ([]model.Question, error) {
	d, err := s.load(ctx, auth, id, model.StepPreview)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(d.Preview) {
		return nil, composition.ErrIndexOutOfRange
	}

	pool, err := s.upstream.ChapterQuestions(ctx, auth.UpstreamToken, d.Preview[index].ChapterID)
	if err != nil {
		return nil, fmt.Errorf("chapter questions: %w", err)
	}
	return composition.Candidates(d.Preview, index, pool)
}

// Replace swaps the preview question at index for questionID.
func (s *CompositionService) Replace(ctx context.Context, auth *model.AuthContext, id uuid.UUID, index, questionID int) (*model.CompositionDraft, error) {
	d, err := s.load(ctx, auth, id, model.StepPreview)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(d.Preview) {
		return nil, composition.ErrIndexOutOfRange
	}

	chapterID := d.Preview[index].ChapterID
	pool, err := s.upstream.ChapterQuestions(ctx, auth.UpstreamToken, chapterID)
	if err != nil {
		return nil, fmt.Errorf("chapter questions: %w", err)
	}
	candidate, found := findQuestion(pool, questionID)
	if !found {
		return nil, composition.ErrChapterMismatch
	}
	if candidate.ChapterID == 0 {
		candidate.ChapterID = chapterID
	}

	preview, err := composition.Replace(d.Preview, index, candidate)
	if err != nil {
		return nil, err
	}
	d.Preview = preview
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return d, nil
}

// Back returns from preview to configure. The configuration survives, preview edits do not.
func (s *CompositionService) Back(ctx context.Context, auth *model.AuthContext, id uuid.UUID) (*model.CompositionDraft, error) {
	d, err := s.load(ctx, auth, id, model.StepPreview)
	if err != nil {
		return nil, err
	}
	d.Preview = nil
	d.Step = model.StepConfigure
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return d, nil
}

// Confirm persists the exam with the previewed questions and completes the draft.
func (s *CompositionService) Confirm(ctx context.Context, auth *model.AuthContext, id uuid.UUID) (*model.CompositionSummary, error) {
	d, err := s.load(ctx, auth, id, model.StepPreview)
	if err != nil {
		return nil, err
	}
	if len(d.Preview) == 0 {
		return nil, composition.ErrEmptyPreview
	}

	exam, err := s.upstream.Create(ctx, auth.UpstreamToken, model.ExamRequest{
		SubjectID:   d.Config.SubjectID,
		Title:       d.Config.Title,
		Duration:    d.Config.DurationMinutes,
		Description: d.Config.Description,
		QuestionIDs: composition.QuestionIDs(d.Preview),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("draft_id", d.ID.String()).Msg("save composed exam failed")
		return nil, fmt.Errorf("%w: %w", ErrCompositionSave, err)
	}

	examID := exam.ID
	d.ExamID = &examID
	d.Step = model.StepCompleted
	if err := s.drafts.Save(ctx, d); err != nil {
		// The exam exists upstream; only the draft bookkeeping is behind.
		s.log.Error().Err(err).Str("draft_id", d.ID.String()).Int("exam_id", examID).Msg("mark draft completed")
	}

	return &model.CompositionSummary{
		ExamID:        examID,
		Title:         d.Config.Title,
		QuestionCount: len(d.Preview),
		Duration:      d.Config.DurationMinutes,
		NextActions: []model.NextAction{
			{Key: "restart", Href: fmt.Sprintf("/api/v1/teacher/compositions/%s/restart", d.ID)},
			{Key: "exam_list", Href: "/exams"},
			{Key: "shuffle", Href: fmt.Sprintf("/exams/%d/shuffle", examID)},
		},
	}, nil
}

// Restart resets the draft to an empty configure step.
func (s *CompositionService) Restart(ctx context.Context, auth *model.AuthContext, id uuid.UUID) (*model.CompositionDraft, error) {
	d, err := s.drafts.Get(ctx, id, auth.User.ID)
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	d.Step = model.StepConfigure
	d.Config = model.CompositionConfig{}
	d.Preview = nil
	d.ExamID = nil
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return d, nil
}

// Discard drops an abandoned draft. A completed draft is kept as the record of its exam.
func (s *CompositionService) Discard(ctx context.Context, auth *model.AuthContext, id uuid.UUID) error {
	if _, err := s.load(ctx, auth, id, model.StepConfigure, model.StepPreview); err != nil {
		return err
	}
	if err := s.drafts.Delete(ctx, id, auth.User.ID); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

func (s *CompositionService) load(ctx context.Context, auth *model.AuthContext, id uuid.UUID, steps ...model.CompositionStep) (*model.CompositionDraft, error) {
	d, err := s.drafts.Get(ctx, id, auth.User.ID)
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	for _, step := range steps {
		if d.Step == step {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: draft is at %s", ErrWrongStep, d.Step)
}

func findQuestion(pool []model.Question, id int) (model.Question, bool) {
	for _, q := range pool {
		if q.ID == id {
			return q, true
		}
	}
	return model.Question{}, false
}
