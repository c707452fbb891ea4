package model

import "time"

// Visual statuses stored in the metadata blob.
const (
	VisualStatusGenerating = "generating"
	VisualStatusCompleted  = "completed"
	VisualStatusFailed     = "failed"
)

// VisualMetadata is the JSON blob persisted on a visuals row.
type VisualMetadata struct {
	Status          string `json:"status"`
	Model           string `json:"model,omitempty"`
	Quality         string `json:"quality,omitempty"`
	RequestedCount  int    `json:"requested_count,omitempty"`
	SucceededCount  int    `json:"succeeded_count,omitempty"`
	RenditionStatus string `json:"rendition_status,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
}

// Visual is the durable record of one generation batch.
type Visual struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	ProjectID *string        `db:"project_id" json:"project_id,omitempty"`
	Name      string         `db:"name" json:"name"`
	Prompt    string         `db:"prompt" json:"prompt"`
	Specs     ProductSpecs   `db:"specs" json:"specs"`
	Settings  UISettings     `db:"settings" json:"settings"`
	Metadata  VisualMetadata `db:"metadata" json:"metadata"`
	Views     int            `db:"views" json:"views"`
	Downloads int            `db:"downloads" json:"downloads"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// ImageMetadata describes one generated variation.
type ImageMetadata struct {
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Quality   string    `json:"quality"`
	Variation int       `json:"variation"`
}

// GeneratedImage is one successful variation of a visual. Immutable after
// creation except for being referenced by edit chains.
type GeneratedImage struct {
	ID               string        `db:"id" json:"id"`
	VisualID         string        `db:"visual_id" json:"visual_id"`
	StoragePath      string        `db:"storage_path" json:"storage_path"`
	ThumbnailPath    string        `db:"thumbnail_path" json:"thumbnail_path"`
	URL              string        `db:"url" json:"url"`
	Prompt           string        `db:"prompt" json:"prompt"`
	GenerationSource string        `db:"generation_source" json:"generation_source"`
	Metadata         ImageMetadata `db:"metadata" json:"metadata"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}

// DashboardStats mirrors the get_user_dashboard_stats RPC result.
type DashboardStats struct {
	TotalVisuals   int `json:"total_visuals"`
	TotalEdits     int `json:"total_edits"`
	TotalViews     int `json:"total_views"`
	TotalDownloads int `json:"total_downloads"`
	StorageBytes   int `json:"storage_bytes"`
}
