package dto

import "time"

// SubscriptionCheckoutRequest selects the plan for a Stripe Checkout session.
type SubscriptionCheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=monthly annual"`
}

// SubscriptionResponseDTO is returned in API responses for the current
// subscription state.
type SubscriptionResponseDTO struct {
	PlanID   string    `json:"plan_id"`
	PlanName string    `json:"plan_name"`
	Status   string    `json:"status"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// InvoiceResponseDTO is one billing-history line.
type InvoiceResponseDTO struct {
	InvoiceID   string    `json:"invoice_id"`
	AmountCents int       `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	CreatedAt   time.Time `json:"created_at"`
}
