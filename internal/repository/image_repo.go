package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"piktor/internal/model"
)

type ImageRepository interface {
	CreateImage(ctx context.Context, img *model.GeneratedImage) error
	GetImageByID(ctx context.Context, imageID string) (*model.GeneratedImage, error)
	ListImagesByVisual(ctx context.Context, visualID string) ([]model.GeneratedImage, error)
}

type imageRepo struct {
	db *sql.DB
}

func NewImageRepo(db *sql.DB) ImageRepository {
	return &imageRepo{db: db}
}

const imageColumns = `id, visual_id, storage_path, thumbnail_path, url, prompt, generation_source, metadata, created_at`

func (r *imageRepo) CreateImage(ctx context.Context, img *model.GeneratedImage) error {
	metadata, err := json.Marshal(img.Metadata)
	if err != nil {
		return fmt.Errorf("marshal image metadata: %w", err)
	}
	query := `INSERT INTO generated_images (id, visual_id, storage_path, thumbnail_path, url, prompt, generation_source, metadata)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`
	if err := r.db.QueryRowContext(ctx, query,
		img.ID, img.VisualID, img.StoragePath, img.ThumbnailPath, img.URL, img.Prompt, img.GenerationSource, metadata,
	).Scan(&img.CreatedAt); err != nil {
		return fmt.Errorf("create generated image: %w", err)
	}
	return nil
}

func (r *imageRepo) GetImageByID(ctx context.Context, imageID string) (*model.GeneratedImage, error) {
	query := `SELECT ` + imageColumns + ` FROM generated_images WHERE id=$1`
	img, err := scanImage(r.db.QueryRowContext(ctx, query, imageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch image %s: %w", imageID, err)
	}
	return img, nil
}

func (r *imageRepo) ListImagesByVisual(ctx context.Context, visualID string) ([]model.GeneratedImage, error) {
	query := `SELECT ` + imageColumns + ` FROM generated_images WHERE visual_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, visualID)
	if err != nil {
		return nil, fmt.Errorf("list images for visual %s: %w", visualID, err)
	}
	defer rows.Close()

	var images []model.GeneratedImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		images = append(images, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return images, nil
}

func scanImage(row rowScanner) (*model.GeneratedImage, error) {
	var img model.GeneratedImage
	var metadata []byte
	if err := row.Scan(
		&img.ID, &img.VisualID, &img.StoragePath, &img.ThumbnailPath, &img.URL,
		&img.Prompt, &img.GenerationSource, &metadata, &img.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &img.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal image metadata: %w", err)
	}
	return &img, nil
}
