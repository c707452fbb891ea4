package model

import "time"

// ImageEdit is a derived image produced by transforming an existing generated
// image via a further model call. Edits form a linear version chain per
// lineage: version 1 has no parent, every later version points at its
// predecessor and flips is_latest_version on it.
type ImageEdit struct {
	ID              string        `db:"id" json:"id"`
	VisualID        string        `db:"visual_id" json:"visual_id"`
	UserID          string        `db:"user_id" json:"user_id"`
	SourceImageID   string        `db:"source_image_id" json:"source_image_id"`
	ParentEditID    *string       `db:"parent_edit_id" json:"parent_edit_id,omitempty"`
	AssetType       AssetType     `db:"asset_type" json:"asset_type"`
	VersionNumber   int           `db:"version_number" json:"version_number"`
	IsLatestVersion bool          `db:"is_latest_version" json:"is_latest_version"`
	StoragePath     string        `db:"storage_path" json:"storage_path"`
	ThumbnailPath   string        `db:"thumbnail_path" json:"thumbnail_path"`
	URL             string        `db:"url" json:"url"`
	Prompt          string        `db:"prompt" json:"prompt"`
	Metadata        ImageMetadata `db:"metadata" json:"metadata"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// EditResult is returned for each succeeded variation of an edit request.
type EditResult struct {
	Edit      ImageEdit `json:"edit"`
	Variation int       `json:"variation"`
}
