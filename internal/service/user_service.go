package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"piktor/internal/model"
	"piktor/internal/repository"
)

type UserService interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	// GetCreditUsage composes the account page's credits view from the
	// subscription, its plan, and the usage counters.
	GetCreditUsage(ctx context.Context, userID string) (*model.CreditUsage, error)
	// DeleteAccount removes the user's stored objects and profile row.
	// Database rows cascade from the profile.
	DeleteAccount(ctx context.Context, userID string) error
}

// SubscriptionCanceler cancels a user's billing subscription on account deletion.
type SubscriptionCanceler interface {
	CancelSubscription(ctx context.Context, userID string) error
}

type userService struct {
	userRepo   repository.UserRepository
	usageRepo  repository.UsageRepository
	subSvc     SubscriptionService
	canceler   SubscriptionCanceler
	store      ObjectStore
	userLogger zerolog.Logger
}

func NewUserService(
	userRepo repository.UserRepository,
	usageRepo repository.UsageRepository,
	subSvc SubscriptionService,
	canceler SubscriptionCanceler,
	store ObjectStore,
	logger zerolog.Logger,
) UserService {
	return &userService{
		userRepo:   userRepo,
		usageRepo:  usageRepo,
		subSvc:     subSvc,
		canceler:   canceler,
		store:      store,
		userLogger: logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) Create(ctx context.Context, u *model.User) (*model.User, error) {
	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *userService) GetCreditUsage(ctx context.Context, userID string) (*model.CreditUsage, error) {
	sub, err := s.subSvc.GetActiveSubscription(ctx, userID)
	if err != nil || sub == nil {
		return nil, ErrNoActiveSubscription
	}
	plan, err := s.subSvc.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("fetch plan %s: %w", sub.PlanID, err)
	}
	used, err := s.usageRepo.CountEventsInTimeRange(ctx, userID, repository.EventGeneration, sub.StartsAt, sub.EndsAt)
	if err != nil {
		return nil, fmt.Errorf("count generation usage: %w", err)
	}
	return &model.CreditUsage{
		UserID:             userID,
		PlanID:             plan.ID,
		PlanName:           plan.Name,
		Status:             sub.Status,
		CreditsUsed:        used,
		CreditsTotal:       plan.MaxGenerations,
		CurrentPeriodStart: sub.StartsAt,
		CurrentPeriodEnd:   sub.EndsAt,
	}, nil
}

func (s *userService) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	// Best effort: a dangling Stripe subscription still churns on its own,
	// so deletion proceeds even if the cancel call fails.
	if err := s.canceler.CancelSubscription(ctx, userID); err != nil {
		s.userLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to cancel subscription for account")
	}

	prefix := fmt.Sprintf("users/%s", userID)
	if err := s.store.DeletePrefix(ctx, prefix); err != nil {
		s.userLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to delete stored objects for account")
	}

	if err := s.userRepo.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete account %s: %w", userID, err)
	}
	s.userLogger.Info().Str("user_id", userID).Msg("Account deleted")
	return nil
}
