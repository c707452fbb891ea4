package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"piktor/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error
	DeleteUser(ctx context.Context, userID string) error
}

type userRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	query := `INSERT INTO user_profiles (user_id, name, email, avatar_url)
              VALUES ($1, $2, $3, $4)
              ON CONFLICT (user_id) DO UPDATE
              SET name = EXCLUDED.name, email = EXCLUDED.email, avatar_url = EXCLUDED.avatar_url, updated_at = NOW()
              RETURNING user_id, name, email, avatar_url, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, u.UserID, u.Name, u.Email, u.AvatarURL).
		Scan(&u.UserID, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return err
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	query := `SELECT user_id, email, name, avatar_url, stripe_customer_id, created_at, updated_at
              FROM user_profiles WHERE user_id=$1`
	row := r.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&u.UserID, &u.Email, &u.Name, &u.AvatarURL, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	var u model.User
	query := `SELECT user_id, email, name, avatar_url, stripe_customer_id, created_at, updated_at
              FROM user_profiles WHERE stripe_customer_id=$1`
	row := r.db.QueryRowContext(ctx, query, customerID)
	if err := row.Scan(&u.UserID, &u.Email, &u.Name, &u.AvatarURL, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	query := `UPDATE user_profiles SET stripe_customer_id=$1, updated_at=NOW() WHERE user_id=$2`
	if _, err := r.db.ExecContext(ctx, query, customerID, userID); err != nil {
		return fmt.Errorf("set stripe customer for user %s: %w", userID, err)
	}
	return nil
}

// DeleteUser removes the profile row; visuals, edits, subscriptions and
// tickets cascade via foreign keys.
func (r *userRepo) DeleteUser(ctx context.Context, userID string) error {
	query := `DELETE FROM user_profiles WHERE user_id=$1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	return nil
}
