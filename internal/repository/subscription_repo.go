package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"piktor/internal/model"
)

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	GetActiveSubscription(ctx context.Context, userID string) (*model.UserSubscription, error)
	GetSubscription(ctx context.Context, userID string) (*model.UserSubscription, error)
	GetPlanByID(ctx context.Context, planID string) (*model.SubscriptionPlan, error)
	// UpsertSubscription creates a subscription with the given planID for a new user if none exists, using the plan's billing_period.
	UpsertSubscription(ctx context.Context, userID, planID string) error
	UpsertStripeSubscription(ctx context.Context, userID, planID string, startsAt, endsAt time.Time, status, stripeSubscriptionID string) error
	DowngradeUserToFreePlan(ctx context.Context, userID, freePlanID string) error
	UpsertInvoice(ctx context.Context, inv *model.Invoice) error
	ListInvoicesByUser(ctx context.Context, userID string, limit int) ([]model.Invoice, error)
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

// GetActiveSubscription returns the current active subscription for a user.
func (r *subscriptionRepo) GetActiveSubscription(ctx context.Context, userID string) (*model.UserSubscription, error) {
	const q = `
        SELECT user_id, plan_id, stripe_subscription_id, starts_at, ends_at, status, created_at, updated_at
        FROM user_subscriptions
        WHERE user_id = $1
          AND status IN ('active', 'cancelled') -- Cancelled users keep access until the paid period ends
          AND (ends_at + INTERVAL '6 hours') > NOW() -- Grace period covers the gap before the renewal cron runs
    `
	var us model.UserSubscription
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&us.UserID,
		&us.PlanID,
		&us.StripeSubscriptionID,
		&us.StartsAt,
		&us.EndsAt,
		&us.Status,
		&us.CreatedAt,
		&us.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch active subscription for user %s: %w", userID, err)
	}
	return &us, nil
}

// GetSubscription returns the user's subscription regardless of status.
func (r *subscriptionRepo) GetSubscription(ctx context.Context, userID string) (*model.UserSubscription, error) {
	const q = `
        SELECT user_id, plan_id, stripe_subscription_id, starts_at, ends_at, status, created_at, updated_at
        FROM user_subscriptions
        WHERE user_id = $1
    `
	var us model.UserSubscription
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&us.UserID,
		&us.PlanID,
		&us.StripeSubscriptionID,
		&us.StartsAt,
		&us.EndsAt,
		&us.Status,
		&us.CreatedAt,
		&us.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	return &us, nil
}

// GetPlanByID returns the subscription plan with its limits.
func (r *subscriptionRepo) GetPlanByID(ctx context.Context, planID string) (*model.SubscriptionPlan, error) {
	const q = `
        SELECT id,
               name,
               price_cents,
               billing_period::text AS billing_period,
               max_generations,
               max_edits,
               max_storage_mb,
               feature_flags
        FROM subscription_plans
        WHERE id = $1
    `
	var sp model.SubscriptionPlan
	var rawFlags []byte
	err := r.pool.QueryRow(ctx, q, planID).Scan(
		&sp.ID,
		&sp.Name,
		&sp.PriceCents,
		&sp.BillingPeriod,
		&sp.MaxGenerations,
		&sp.MaxEdits,
		&sp.MaxStorageMB,
		&rawFlags,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch plan %s: %w", planID, err)
	}
	if err := json.Unmarshal(rawFlags, &sp.FeatureFlags); err != nil {
		return nil, fmt.Errorf("unmarshal feature_flags for plan %s: %w", planID, err)
	}
	return &sp, nil
}

// UpsertSubscription creates a subscription for a user with the given planID if none exists.
func (r *subscriptionRepo) UpsertSubscription(ctx context.Context, userID, planID string) error {
	const q = `
        INSERT INTO user_subscriptions (user_id, plan_id, starts_at, ends_at, status, created_at, updated_at)
        SELECT $1, $2, NOW(), NOW() + billing_period, 'active', NOW(), NOW()
        FROM subscription_plans
        WHERE id = $2
        ON CONFLICT (user_id) DO NOTHING;
    `
	_, err := r.pool.Exec(ctx, q, userID, planID)
	if err != nil {
		return fmt.Errorf("upserting subscription %s for user %s: %w", planID, userID, err)
	}
	return nil
}

func (r *subscriptionRepo) UpsertStripeSubscription(ctx context.Context, userID, planID string, startsAt, endsAt time.Time, status, stripeSubscriptionID string) error {
	var q string
	var args []interface{}

	if stripeSubscriptionID == "" {
		q = `
			INSERT INTO user_subscriptions (user_id, plan_id, stripe_subscription_id, starts_at, ends_at, status, created_at, updated_at)
			VALUES ($1, $2, NULL, $3, $4, $5, NOW(), NOW())
			ON CONFLICT (user_id) DO UPDATE
			SET plan_id = EXCLUDED.plan_id,
				stripe_subscription_id = EXCLUDED.stripe_subscription_id,
				starts_at = EXCLUDED.starts_at,
				ends_at = EXCLUDED.ends_at,
				status = EXCLUDED.status,
				updated_at = NOW();
		`
		args = []interface{}{userID, planID, startsAt, endsAt, status}
	} else {
		q = `
			INSERT INTO user_subscriptions (user_id, plan_id, stripe_subscription_id, starts_at, ends_at, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			ON CONFLICT (user_id) DO UPDATE
			SET plan_id = EXCLUDED.plan_id,
				stripe_subscription_id = EXCLUDED.stripe_subscription_id,
				starts_at = EXCLUDED.starts_at,
				ends_at = EXCLUDED.ends_at,
				status = EXCLUDED.status,
				updated_at = NOW();
		`
		args = []interface{}{userID, planID, stripeSubscriptionID, startsAt, endsAt, status}
	}

	_, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("upsert stripe subscription for user %s: %w", userID, err)
	}
	return nil
}

// DowngradeUserToFreePlan downgrades a user to the free plan when their subscription is deleted
func (r *subscriptionRepo) DowngradeUserToFreePlan(ctx context.Context, userID, freePlanID string) error {
	const q = `
		UPDATE user_subscriptions
		SET
			plan_id = $2,
			status = 'active',
			starts_at = NOW(),
			ends_at = NOW() + INTERVAL '31 days',
			stripe_subscription_id = NULL,
			updated_at = NOW()
		WHERE
			user_id = $1;
	`
	_, err := r.pool.Exec(ctx, q, userID, freePlanID)
	if err != nil {
		return fmt.Errorf("downgrade user %s to free plan: %w", userID, err)
	}
	return nil
}

// UpsertInvoice records a billing line from a Stripe invoice event. Replays
// of the same event overwrite the existing row.
func (r *subscriptionRepo) UpsertInvoice(ctx context.Context, inv *model.Invoice) error {
	const q = `
        INSERT INTO invoices (id, user_id, stripe_invoice_id, amount_cents, currency, status, period_start, period_end, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
        ON CONFLICT (stripe_invoice_id) DO UPDATE
        SET amount_cents = EXCLUDED.amount_cents,
            currency = EXCLUDED.currency,
            status = EXCLUDED.status,
            period_start = EXCLUDED.period_start,
            period_end = EXCLUDED.period_end;
    `
	_, err := r.pool.Exec(ctx, q,
		inv.ID, inv.UserID, inv.StripeInvoiceID, inv.AmountCents, inv.Currency,
		inv.Status, inv.PeriodStart, inv.PeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("upsert invoice %s for user %s: %w", inv.StripeInvoiceID, inv.UserID, err)
	}
	return nil
}

// ListInvoicesByUser returns billing history newest first.
func (r *subscriptionRepo) ListInvoicesByUser(ctx context.Context, userID string, limit int) ([]model.Invoice, error) {
	const q = `
        SELECT id, user_id, stripe_invoice_id, amount_cents, currency, status, period_start, period_end, created_at
        FROM invoices
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list invoices for user %s: %w", userID, err)
	}
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.UserID, &inv.StripeInvoiceID, &inv.AmountCents, &inv.Currency,
			&inv.Status, &inv.PeriodStart, &inv.PeriodEnd, &inv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan invoice row: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return invoices, nil
}
