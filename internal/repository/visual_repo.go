package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"piktor/internal/model"
)

type VisualRepository interface {
	CreateVisual(ctx context.Context, v *model.Visual) error
	GetVisualByID(ctx context.Context, visualID string) (*model.Visual, error)
	ListVisualsByUser(ctx context.Context, userID string, projectID string, limit, offset int) ([]model.Visual, error)
	UpdateMetadata(ctx context.Context, visualID string, metadata model.VisualMetadata) error
	RenameVisual(ctx context.Context, visualID, name string) error
	DeleteVisual(ctx context.Context, visualID string) error
}

type visualRepo struct {
	db *sql.DB
}

func NewVisualRepo(db *sql.DB) VisualRepository {
	return &visualRepo{db: db}
}

const visualColumns = `id, user_id, project_id, name, prompt, specs, settings, metadata, views, downloads, created_at, updated_at`

func (r *visualRepo) CreateVisual(ctx context.Context, v *model.Visual) error {
	specs, err := json.Marshal(v.Specs)
	if err != nil {
		return fmt.Errorf("marshal specs: %w", err)
	}
	settings, err := json.Marshal(v.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	metadata, err := json.Marshal(v.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `INSERT INTO visuals (id, user_id, project_id, name, prompt, specs, settings, metadata)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at, updated_at`
	if err := r.db.QueryRowContext(ctx, query,
		v.ID, v.UserID, v.ProjectID, v.Name, v.Prompt, specs, settings, metadata,
	).Scan(&v.CreatedAt, &v.UpdatedAt); err != nil {
		return fmt.Errorf("create visual: %w", err)
	}
	return nil
}

func (r *visualRepo) GetVisualByID(ctx context.Context, visualID string) (*model.Visual, error) {
	query := `SELECT ` + visualColumns + ` FROM visuals WHERE id=$1`
	v, err := scanVisual(r.db.QueryRowContext(ctx, query, visualID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch visual %s: %w", visualID, err)
	}
	return v, nil
}

// ListVisualsByUser returns the user's visuals newest first. An empty
// projectID means all visuals; "dashboard" means visuals outside any project.
func (r *visualRepo) ListVisualsByUser(ctx context.Context, userID string, projectID string, limit, offset int) ([]model.Visual, error) {
	query := `SELECT ` + visualColumns + ` FROM visuals WHERE user_id=$1`
	args := []any{userID}
	switch projectID {
	case "":
	case "dashboard":
		query += ` AND project_id IS NULL`
	default:
		query += ` AND project_id=$2`
		args = append(args, projectID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list visuals for user %s: %w", userID, err)
	}
	defer rows.Close()

	var visuals []model.Visual
	for rows.Next() {
		v, err := scanVisual(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visual row: %w", err)
		}
		visuals = append(visuals, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return visuals, nil
}

func (r *visualRepo) UpdateMetadata(ctx context.Context, visualID string, metadata model.VisualMetadata) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	query := `UPDATE visuals SET metadata=$1, updated_at=NOW() WHERE id=$2`
	if _, err := r.db.ExecContext(ctx, query, raw, visualID); err != nil {
		return fmt.Errorf("update metadata for visual %s: %w", visualID, err)
	}
	return nil
}

func (r *visualRepo) RenameVisual(ctx context.Context, visualID, name string) error {
	query := `UPDATE visuals SET name=$1, updated_at=NOW() WHERE id=$2`
	if _, err := r.db.ExecContext(ctx, query, name, visualID); err != nil {
		return fmt.Errorf("rename visual %s: %w", visualID, err)
	}
	return nil
}

// DeleteVisual removes the row; generated_images and image_edits cascade.
func (r *visualRepo) DeleteVisual(ctx context.Context, visualID string) error {
	query := `DELETE FROM visuals WHERE id=$1`
	if _, err := r.db.ExecContext(ctx, query, visualID); err != nil {
		return fmt.Errorf("delete visual %s: %w", visualID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisual(row rowScanner) (*model.Visual, error) {
	var v model.Visual
	var specs, settings, metadata []byte
	if err := row.Scan(
		&v.ID, &v.UserID, &v.ProjectID, &v.Name, &v.Prompt,
		&specs, &settings, &metadata,
		&v.Views, &v.Downloads, &v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(specs, &v.Specs); err != nil {
		return nil, fmt.Errorf("unmarshal specs: %w", err)
	}
	if err := json.Unmarshal(settings, &v.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := json.Unmarshal(metadata, &v.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &v, nil
}
