package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-console/internal/model"
)

// ErrDraftNotFound is returned when a draft does not exist or belongs to someone else.
var ErrDraftNotFound = errors.New("composition draft not found")

// DraftRepository persists composition drafts in PostgreSQL.
type DraftRepository struct {
	pool *pgxpool.Pool
}

// NewDraftRepository creates a new DraftRepository.
func NewDraftRepository(pool *pgxpool.Pool) *DraftRepository {
	return &DraftRepository{pool: pool}
}

// Create inserts d and fills its timestamps.
func (r *DraftRepository) Create(ctx context.Context, d *model.CompositionDraft) error {
	config, preview, err := marshalDraft(d)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO composition_drafts (id, owner_id, step, config, preview, exam_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		d.ID, d.OwnerID, d.Step, config, preview, d.ExamID,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

// Get loads a draft owned by ownerID.
func (r *DraftRepository) Get(ctx context.Context, id uuid.UUID, ownerID int) (*model.CompositionDraft, error) {
	d := &model.CompositionDraft{}
	var config, preview []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, step, config, preview, exam_id, created_at, updated_at
		 FROM composition_drafts
		 WHERE id = $1 AND owner_id = $2`, id, ownerID,
	).Scan(&d.ID, &d.OwnerID, &d.Step, &config, &preview, &d.ExamID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(config, &d.Config); err != nil {
		return nil, fmt.Errorf("decode draft config: %w", err)
	}
	if err := json.Unmarshal(preview, &d.Preview); err != nil {
		return nil, fmt.Errorf("decode draft preview: %w", err)
	}
	return d, nil
}

// Save overwrites the mutable columns of d.
func (r *DraftRepository) Save(ctx context.Context, d *model.CompositionDraft) error {
	config, preview, err := marshalDraft(d)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE composition_drafts
		 SET step = $1, config = $2, preview = $3, exam_id = $4, updated_at = NOW()
		 WHERE id = $5 AND owner_id = $6`,
		d.Step, config, preview, d.ExamID, d.ID, d.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDraftNotFound
	}
	return nil
}

// Delete removes a draft.
func (r *DraftRepository) Delete(ctx context.Context, id uuid.UUID, ownerID int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM composition_drafts WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDraftNotFound
	}
	return nil
}

// ListByOwner returns the caller's unfinished drafts, newest first.
func (r *DraftRepository) ListByOwner(ctx context.Context, ownerID int) ([]model.CompositionDraft, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, step, config, exam_id, created_at, updated_at
		 FROM composition_drafts
		 WHERE owner_id = $1 AND step <> 'completed'
		 ORDER BY updated_at DESC
		 LIMIT 50`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drafts []model.CompositionDraft
	for rows.Next() {
		var d model.CompositionDraft
		var config []byte
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Step, &config, &d.ExamID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(config, &d.Config); err != nil {
			return nil, fmt.Errorf("decode draft config: %w", err)
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func marshalDraft(d *model.CompositionDraft) ([]byte, []byte, error) {
	config, err := json.Marshal(d.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("encode draft config: %w", err)
	}
	preview := d.Preview
	if preview == nil {
		preview = []model.Question{}
	}
	previewJSON, err := json.Marshal(preview)
	if err != nil {
		return nil, nil, fmt.Errorf("encode draft preview: %w", err)
	}
	return config, previewJSON, nil
}
