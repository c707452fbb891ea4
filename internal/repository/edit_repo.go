package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"piktor/internal/model"
)

// ErrParentEditNotFound is returned when an edit references a parent that
// does not exist or belongs to a different source image.
var ErrParentEditNotFound = errors.New("parent edit not found")

type EditRepository interface {
	// CreateEdit inserts the edit and assigns its version number inside one
	// transaction: version 1 when there is no parent, parent version + 1
	// otherwise. The previous latest version of the lineage is demoted in
	// the same transaction.
	CreateEdit(ctx context.Context, e *model.ImageEdit) error
	GetEditByID(ctx context.Context, editID string) (*model.ImageEdit, error)
	ListEditsBySourceImage(ctx context.Context, sourceImageID string) ([]model.ImageEdit, error)
	ListEditsByVisual(ctx context.Context, visualID string) ([]model.ImageEdit, error)
}

type editRepo struct {
	db *sql.DB
}

func NewEditRepo(db *sql.DB) EditRepository {
	return &editRepo{db: db}
}

const editColumns = `id, visual_id, user_id, source_image_id, parent_edit_id, asset_type, version_number, is_latest_version, storage_path, thumbnail_path, url, prompt, metadata, created_at`

func (r *editRepo) CreateEdit(ctx context.Context, e *model.ImageEdit) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal edit metadata: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin edit transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	version := 1
	if e.ParentEditID != nil {
		// Lock the parent row so two concurrent edits of the same parent
		// cannot both claim the same version number.
		const parentQ = `SELECT version_number FROM image_edits WHERE id=$1 AND source_image_id=$2 FOR UPDATE`
		var parentVersion int
		if err := tx.QueryRowContext(ctx, parentQ, *e.ParentEditID, e.SourceImageID).Scan(&parentVersion); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrParentEditNotFound
			}
			return fmt.Errorf("fetch parent edit %s: %w", *e.ParentEditID, err)
		}
		version = parentVersion + 1
	}
	e.VersionNumber = version
	e.IsLatestVersion = true

	const demoteQ = `UPDATE image_edits SET is_latest_version=FALSE WHERE source_image_id=$1 AND is_latest_version`
	if _, err := tx.ExecContext(ctx, demoteQ, e.SourceImageID); err != nil {
		return fmt.Errorf("demote previous latest version: %w", err)
	}

	const insertQ = `
        INSERT INTO image_edits (id, visual_id, user_id, source_image_id, parent_edit_id, asset_type, version_number, is_latest_version, storage_path, thumbnail_path, url, prompt, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9, $10, $11, $12)
        RETURNING created_at
    `
	if err := tx.QueryRowContext(ctx, insertQ,
		e.ID, e.VisualID, e.UserID, e.SourceImageID, e.ParentEditID, e.AssetType,
		e.VersionNumber, e.StoragePath, e.ThumbnailPath, e.URL, e.Prompt, metadata,
	).Scan(&e.CreatedAt); err != nil {
		return fmt.Errorf("insert edit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit edit transaction: %w", err)
	}
	return nil
}

func (r *editRepo) GetEditByID(ctx context.Context, editID string) (*model.ImageEdit, error) {
	query := `SELECT ` + editColumns + ` FROM image_edits WHERE id=$1`
	e, err := scanEdit(r.db.QueryRowContext(ctx, query, editID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch edit %s: %w", editID, err)
	}
	return e, nil
}

func (r *editRepo) ListEditsBySourceImage(ctx context.Context, sourceImageID string) ([]model.ImageEdit, error) {
	query := `SELECT ` + editColumns + ` FROM image_edits WHERE source_image_id=$1 ORDER BY version_number ASC, created_at ASC`
	return r.listEdits(ctx, query, sourceImageID)
}

func (r *editRepo) ListEditsByVisual(ctx context.Context, visualID string) ([]model.ImageEdit, error) {
	query := `SELECT ` + editColumns + ` FROM image_edits WHERE visual_id=$1 ORDER BY created_at ASC`
	return r.listEdits(ctx, query, visualID)
}

func (r *editRepo) listEdits(ctx context.Context, query string, arg any) ([]model.ImageEdit, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	defer rows.Close()

	var edits []model.ImageEdit
	for rows.Next() {
		e, err := scanEdit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edit row: %w", err)
		}
		edits = append(edits, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return edits, nil
}

func scanEdit(row rowScanner) (*model.ImageEdit, error) {
	var e model.ImageEdit
	var metadata []byte
	if err := row.Scan(
		&e.ID, &e.VisualID, &e.UserID, &e.SourceImageID, &e.ParentEditID, &e.AssetType,
		&e.VersionNumber, &e.IsLatestVersion, &e.StoragePath, &e.ThumbnailPath, &e.URL,
		&e.Prompt, &metadata, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal edit metadata: %w", err)
	}
	return &e, nil
}
