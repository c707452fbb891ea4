package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"piktor/internal/model"
	"piktor/internal/repository"
)

// SubscriptionService defines business logic methods for subscriptions.
type SubscriptionService interface {
	GetActiveSubscription(ctx context.Context, userID string) (*model.UserSubscription, error)
	GetSubscription(ctx context.Context, userID string) (*model.UserSubscription, error)
	GetPlan(ctx context.Context, planID string) (*model.SubscriptionPlan, error)
	UpsertStripeSubscription(ctx context.Context, userID, planID string, startsAt, endsAt time.Time, status, stripeSubscriptionID string) error
	DowngradeUserToFreePlan(ctx context.Context, userID, freePlanID string) error
	RecordInvoice(ctx context.Context, inv *model.Invoice) error
	ListInvoices(ctx context.Context, userID string) ([]model.Invoice, error)
}

type subscriptionService struct {
	repo   repository.SubscriptionRepository
	logger zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(repo repository.SubscriptionRepository, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		repo:   repo,
		logger: logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

// GetActiveSubscription returns the current active subscription for a user.
func (s *subscriptionService) GetActiveSubscription(ctx context.Context, userID string) (*model.UserSubscription, error) {
	sub, err := s.repo.GetActiveSubscription(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch active subscription")
		return nil, err
	}
	return sub, nil
}

// GetSubscription returns the user's subscription regardless of status.
func (s *subscriptionService) GetSubscription(ctx context.Context, userID string) (*model.UserSubscription, error) {
	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription")
		return nil, err
	}
	return sub, nil
}

// GetPlan returns the details of a subscription plan.
func (s *subscriptionService) GetPlan(ctx context.Context, planID string) (*model.SubscriptionPlan, error) {
	plan, err := s.repo.GetPlanByID(ctx, planID)
	if err != nil {
		s.logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to fetch subscription plan")
	}
	return plan, err
}

func (s *subscriptionService) UpsertStripeSubscription(ctx context.Context, userID, planID string, startsAt, endsAt time.Time, status, stripeSubscriptionID string) error {
	if err := s.repo.UpsertStripeSubscription(ctx, userID, planID, startsAt, endsAt, status, stripeSubscriptionID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("plan_id", planID).Str("status", status).Msg("Failed to upsert stripe subscription")
		return err
	}
	return nil
}

// DowngradeUserToFreePlan downgrades a user to the free plan when their subscription is deleted
func (s *subscriptionService) DowngradeUserToFreePlan(ctx context.Context, userID, freePlanID string) error {
	if err := s.repo.DowngradeUserToFreePlan(ctx, userID, freePlanID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to downgrade user to free plan")
		return err
	}
	return nil
}

// RecordInvoice stores a billing line extracted from a Stripe invoice event.
func (s *subscriptionService) RecordInvoice(ctx context.Context, inv *model.Invoice) error {
	if err := s.repo.UpsertInvoice(ctx, inv); err != nil {
		s.logger.Error().Err(err).Str("user_id", inv.UserID).Str("stripe_invoice_id", inv.StripeInvoiceID).Msg("Failed to record invoice")
		return err
	}
	return nil
}

// ListInvoices returns the user's billing history, newest first.
func (s *subscriptionService) ListInvoices(ctx context.Context, userID string) ([]model.Invoice, error) {
	invoices, err := s.repo.ListInvoicesByUser(ctx, userID, 24)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list invoices")
		return nil, err
	}
	return invoices, nil
}
