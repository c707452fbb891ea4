package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrVisualNotFound       = errors.New("visual not found")
	ErrImageNotFound        = errors.New("image not found")
	ErrProjectNotFound      = errors.New("project not found")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrNotOwner             = errors.New("resource does not belong to the user")
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrAllVariationsFailed is returned when every requested variation of a
	// generation or edit batch failed. A partially failed batch is not an
	// error; the succeeded variations are returned instead.
	ErrAllVariationsFailed = errors.New("all variations failed")
)
