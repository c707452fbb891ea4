package dto

import "time"

// UserCreateDTO is used for incoming create requests
type UserCreateDTO struct {
	Name      string `json:"name"`
	Email     string `json:"email" validate:"required,email"`
	AvatarURL string `json:"avatar_url"`
}

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreditUsageResponseDTO summarizes the current billing period for the
// account page.
type CreditUsageResponseDTO struct {
	PlanID             string    `json:"plan_id"`
	PlanName           string    `json:"plan_name"`
	Status             string    `json:"status"`
	CreditsUsed        int       `json:"credits_used"`
	CreditsTotal       int       `json:"credits_total"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
}
