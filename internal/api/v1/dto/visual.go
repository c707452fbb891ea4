package dto

import (
	"time"

	"piktor/internal/model"
)

// GenerateRequestDTO triggers generation from a completed wizard session.
type GenerateRequestDTO struct {
	SessionID string `json:"session_id" validate:"required"`
	Name      string `json:"name" validate:"max=200"`
}

// GeneratedImageDTO is one succeeded variation in API responses.
type GeneratedImageDTO struct {
	ImageID       string    `json:"image_id"`
	VisualID      string    `json:"visual_id"`
	URL           string    `json:"url"`
	ThumbnailPath string    `json:"thumbnail_path"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	Variation     int       `json:"variation"`
	CreatedAt     time.Time `json:"created_at"`
}

// GenerateResponseDTO reports the outcome of a generation batch. A partial
// batch lists only the succeeded variations and counts the failures.
type GenerateResponseDTO struct {
	Visual      VisualResponseDTO   `json:"visual"`
	Images      []GeneratedImageDTO `json:"images"`
	FailedCount int                 `json:"failed_count"`
}

// VisualResponseDTO is returned in API responses for visuals
type VisualResponseDTO struct {
	VisualID  string               `json:"visual_id"`
	ProjectID string               `json:"project_id,omitempty"`
	Name      string               `json:"name"`
	Specs     model.ProductSpecs   `json:"specs"`
	Settings  model.UISettings     `json:"settings"`
	Metadata  model.VisualMetadata `json:"metadata"`
	Views     int                  `json:"views"`
	Downloads int                  `json:"downloads"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// VisualDetailResponseDTO is the full gallery detail view.
type VisualDetailResponseDTO struct {
	Visual VisualResponseDTO   `json:"visual"`
	Images []GeneratedImageDTO `json:"images"`
	Edits  []EditResponseDTO   `json:"edits"`
}

// VisualUpdateDTO is used for incoming rename requests
type VisualUpdateDTO struct {
	Name string `json:"name" validate:"required,max=200"`
}

// VisualListResponseDTO pages through a user's visuals.
type VisualListResponseDTO struct {
	Visuals []VisualResponseDTO `json:"visuals"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
}

// DownloadResponseDTO carries a short-lived signed URL.
type DownloadResponseDTO struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DashboardStatsResponseDTO is the dashboard stats widget payload.
type DashboardStatsResponseDTO struct {
	TotalVisuals   int `json:"total_visuals"`
	TotalEdits     int `json:"total_edits"`
	TotalViews     int `json:"total_views"`
	TotalDownloads int `json:"total_downloads"`
	StorageBytes   int `json:"storage_bytes"`
}
