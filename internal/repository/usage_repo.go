package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrGenerationLimitExceeded is returned when a user has exhausted their
// plan's generation credits for the billing period.
var ErrGenerationLimitExceeded = errors.New("generation_limit_exceeded")

// ErrEditLimitExceeded is returned when a user has exhausted their plan's
// edit credits for the billing period.
var ErrEditLimitExceeded = errors.New("edit_limit_exceeded")

// Usage event types recorded per credit-consuming action.
const (
	EventGeneration = "visual_generation"
	EventEdit       = "image_edit"
)

// UsageRepository tracks user actions for usage-based limits.
type UsageRepository interface {
	// CheckAndRecordEvent atomically checks the user's count of eventType in
	// the period and records a new event. Returns the matching limit error
	// when the cap is reached. A max of 0 or less means unlimited.
	CheckAndRecordEvent(ctx context.Context, userID, eventType string, start, end time.Time, max int) error
	// CountEventsInTimeRange counts events of one type in the given period.
	CountEventsInTimeRange(ctx context.Context, userID, eventType string, start, end time.Time) (int, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

// CheckAndRecordEvent atomically checks the user's event count for the period
// and records a new usage event. Serializable isolation makes two concurrent
// calls for the last credit conflict instead of both passing.
func (r *usageRepo) CheckAndRecordEvent(ctx context.Context, userID, eventType string, start, end time.Time, max int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("starting transaction for usage check: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var count int
	const countQ = `
		SELECT COUNT(*)
		FROM usage_events
		WHERE user_id = $1
		  AND event_type = $2
		  AND created_at >= $3
		  AND created_at < $4
	`
	if err := tx.QueryRow(ctx, countQ, userID, eventType, start, end).Scan(&count); err != nil {
		return fmt.Errorf("counting %s events for user %s: %w", eventType, userID, err)
	}
	if max > 0 && count >= max {
		return limitError(eventType)
	}

	const insertQ = `INSERT INTO usage_events (user_id, event_type) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, insertQ, userID, eventType); err != nil {
		return fmt.Errorf("recording %s event for user %s: %w", eventType, userID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing %s event for user %s: %w", eventType, userID, err)
	}
	return nil
}

// CountEventsInTimeRange counts events of one type in the given period.
func (r *usageRepo) CountEventsInTimeRange(ctx context.Context, userID, eventType string, start, end time.Time) (int, error) {
	var count int
	const q = `
        SELECT COUNT(*)
        FROM usage_events
        WHERE user_id = $1
          AND event_type = $2
          AND created_at >= $3
          AND created_at < $4
    `
	if err := r.pool.QueryRow(ctx, q, userID, eventType, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting %s events for user %s: %w", eventType, userID, err)
	}
	return count, nil
}

func limitError(eventType string) error {
	if eventType == EventEdit {
		return ErrEditLimitExceeded
	}
	return ErrGenerationLimitExceeded
}
