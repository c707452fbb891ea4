package dto

import "time"

// EditProductDTO names one companion product for multi-product edits.
type EditProductDTO struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=500"`
}

// EditRequestDTO is used for incoming image edit requests
type EditRequestDTO struct {
	SourceImageID string           `json:"source_image_id" validate:"required"`
	ParentEditID  string           `json:"parent_edit_id,omitempty"`
	AssetType     string           `json:"asset_type" validate:"required"`
	AspectRatio   string           `json:"aspect_ratio" validate:"required"`
	ViewAngle     string           `json:"view_angle"`
	Lighting      string           `json:"lighting"`
	Style         string           `json:"style"`
	CustomPrompt  string           `json:"custom_prompt" validate:"max=2000"`
	Direction     string           `json:"direction" validate:"max=2000"`
	Products      []EditProductDTO `json:"products,omitempty" validate:"omitempty,max=4,dive"`
	Variations    int              `json:"variations" validate:"omitempty,min=1,max=4"`
}

// EditResponseDTO is returned in API responses for image edits
type EditResponseDTO struct {
	EditID          string    `json:"edit_id"`
	VisualID        string    `json:"visual_id"`
	SourceImageID   string    `json:"source_image_id"`
	ParentEditID    string    `json:"parent_edit_id,omitempty"`
	AssetType       string    `json:"asset_type"`
	VersionNumber   int       `json:"version_number"`
	IsLatestVersion bool      `json:"is_latest_version"`
	URL             string    `json:"url"`
	ThumbnailPath   string    `json:"thumbnail_path"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	CreatedAt       time.Time `json:"created_at"`
}

// EditBatchResponseDTO reports the outcome of one edit request.
type EditBatchResponseDTO struct {
	Edits       []EditResponseDTO `json:"edits"`
	FailedCount int               `json:"failed_count"`
}

// EditVersionsResponseDTO lists the version chain for a source image.
type EditVersionsResponseDTO struct {
	SourceImageID string            `json:"source_image_id"`
	Versions      []EditResponseDTO `json:"versions"`
}
