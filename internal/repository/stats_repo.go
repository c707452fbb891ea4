package repository

import (
	"context"
	"database/sql"
	"fmt"

	"piktor/internal/model"
)

// StatsRepository is a typed gateway over the Postgres functions that back
// dashboard analytics. Counters are plain SQL functions so concurrent
// increments serialize in the database, not in the app.
type StatsRepository interface {
	IncrementViews(ctx context.Context, visualID string) error
	IncrementDownloads(ctx context.Context, visualID string) error
	GetDashboardStats(ctx context.Context, userID string) (*model.DashboardStats, error)
	GetStorageUsageBytes(ctx context.Context, userID string) (int64, error)
}

type statsRepo struct {
	db *sql.DB
}

func NewStatsRepo(db *sql.DB) StatsRepository {
	return &statsRepo{db: db}
}

func (r *statsRepo) IncrementViews(ctx context.Context, visualID string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT increment_visual_views($1)`, visualID); err != nil {
		return fmt.Errorf("increment views for visual %s: %w", visualID, err)
	}
	return nil
}

func (r *statsRepo) IncrementDownloads(ctx context.Context, visualID string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT increment_visual_downloads($1)`, visualID); err != nil {
		return fmt.Errorf("increment downloads for visual %s: %w", visualID, err)
	}
	return nil
}

func (r *statsRepo) GetDashboardStats(ctx context.Context, userID string) (*model.DashboardStats, error) {
	const q = `SELECT total_visuals, total_edits, total_views, total_downloads, storage_bytes
               FROM get_user_dashboard_stats($1)`
	var stats model.DashboardStats
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&stats.TotalVisuals,
		&stats.TotalEdits,
		&stats.TotalViews,
		&stats.TotalDownloads,
		&stats.StorageBytes,
	); err != nil {
		return nil, fmt.Errorf("fetch dashboard stats for user %s: %w", userID, err)
	}
	return &stats, nil
}

func (r *statsRepo) GetStorageUsageBytes(ctx context.Context, userID string) (int64, error) {
	var bytes int64
	if err := r.db.QueryRowContext(ctx, `SELECT get_user_storage_usage($1)`, userID).Scan(&bytes); err != nil {
		return 0, fmt.Errorf("fetch storage usage for user %s: %w", userID, err)
	}
	return bytes, nil
}
