package model

import "time"

// SubscriptionPlan describes a purchasable plan with its generation limits.
type SubscriptionPlan struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	PriceCents     int            `db:"price_cents" json:"price_cents"`
	BillingPeriod  string         `db:"billing_period" json:"billing_period"`
	MaxGenerations int            `db:"max_generations" json:"max_generations"`
	MaxEdits       int            `db:"max_edits" json:"max_edits"`
	MaxStorageMB   int            `db:"max_storage_mb" json:"max_storage_mb"`
	FeatureFlags   map[string]any `db:"feature_flags" json:"feature_flags"`
}

// UserSubscription mirrors Stripe subscription state for one user.
type UserSubscription struct {
	UserID               string    `db:"user_id" json:"user_id"`
	PlanID               string    `db:"plan_id" json:"plan_id"`
	StripeSubscriptionID *string   `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	StartsAt             time.Time `db:"starts_at" json:"starts_at"`
	EndsAt               time.Time `db:"ends_at" json:"ends_at"`
	Status               string    `db:"status" json:"status"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// Invoice is one billing-history line sourced from the invoices table.
type Invoice struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	StripeInvoiceID string    `db:"stripe_invoice_id" json:"stripe_invoice_id"`
	AmountCents     int       `db:"amount_cents" json:"amount_cents"`
	Currency        string    `db:"currency" json:"currency"`
	Status          string    `db:"status" json:"status"`
	PeriodStart     time.Time `db:"period_start" json:"period_start"`
	PeriodEnd       time.Time `db:"period_end" json:"period_end"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// CreditUsage is the account-page view of credits within the billing period.
type CreditUsage struct {
	UserID             string    `json:"user_id"`
	PlanID             string    `json:"plan_id"`
	PlanName           string    `json:"plan_name"`
	Status             string    `json:"status"`
	CreditsUsed        int       `json:"credits_used"`
	CreditsTotal       int       `json:"credits_total"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
}
