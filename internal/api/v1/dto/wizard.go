package dto

import "time"

// WizardImageDTO is one uploaded product photo, base64-encoded.
type WizardImageDTO struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	Data        string `json:"data" validate:"required"` // Base64-encoded
}

// WizardInputDTO carries step-one product input: photos plus declared specs.
type WizardInputDTO struct {
	Images          []WizardImageDTO `json:"images" validate:"required,min=1,max=6,dive"`
	ProductName     string           `json:"product_name" validate:"required,max=200"`
	ProductType     string           `json:"product_type" validate:"required,max=100"`
	Materials       string           `json:"materials" validate:"max=500"`
	Width           *float64         `json:"width,omitempty" validate:"omitempty,gt=0"`
	Height          *float64         `json:"height,omitempty" validate:"omitempty,gt=0"`
	Depth           *float64         `json:"depth,omitempty" validate:"omitempty,gt=0"`
	AdditionalSpecs string           `json:"additional_specs" validate:"max=2000"`
}

// WizardContextDTO picks the scene preset in step two.
type WizardContextDTO struct {
	ContextPreset string `json:"context_preset" validate:"required,oneof=packshot instagram story hero lifestyle detail"`
}

// WizardSettingsDTO carries the enum-valued generation settings chosen in
// steps two and three.
type WizardSettingsDTO struct {
	ContextPreset    string   `json:"context_preset" validate:"required"`
	BackgroundStyle  string   `json:"background_style"`
	ProductPosition  string   `json:"product_position"`
	ReservedTextZone string   `json:"reserved_text_zone"`
	Props            []string `json:"props"`
	Lighting         string   `json:"lighting"`
	StrictMode       bool     `json:"strict_mode"`
	Quality          string   `json:"quality"`
	Variations       int      `json:"variations" validate:"omitempty,min=1,max=4"`
}

// WizardSessionResponseDTO is returned for every wizard session operation.
type WizardSessionResponseDTO struct {
	SessionID  string    `json:"session_id"`
	ProjectID  string    `json:"project_id,omitempty"`
	Step       int       `json:"step"`
	StepName   string    `json:"step_name"`
	ImageCount int       `json:"image_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WizardSessionCreateDTO starts a new wizard session.
type WizardSessionCreateDTO struct {
	ProjectID string `json:"project_id,omitempty"`
}
