package model

import "time"

// ContextPreset is the intended output format for a generation. Each preset
// maps to a fixed target pixel size (see prompt.PresetSize).
type ContextPreset string

const (
	PresetPackshot  ContextPreset = "packshot"
	PresetInstagram ContextPreset = "instagram"
	PresetStory     ContextPreset = "story"
	PresetHero      ContextPreset = "hero"
	PresetLifestyle ContextPreset = "lifestyle"
	PresetDetail    ContextPreset = "detail"
)

type BackgroundStyle string

const (
	BackgroundPlain    BackgroundStyle = "plain"
	BackgroundGradient BackgroundStyle = "gradient"
	BackgroundTextured BackgroundStyle = "textured"
	BackgroundScene    BackgroundStyle = "scene"
)

type ProductPosition string

const (
	PositionCenter ProductPosition = "center"
	PositionLeft   ProductPosition = "left"
	PositionRight  ProductPosition = "right"
)

type Lighting string

const (
	LightingStudioSoftbox  Lighting = "studio_softbox"
	LightingNaturalDay     Lighting = "natural_daylight"
	LightingGoldenHour     Lighting = "golden_hour"
	LightingDramaticSpot   Lighting = "dramatic_spotlight"
	LightingAmbientEvening Lighting = "ambient_evening"
	LightingCustom         Lighting = "custom"
)

type VisualStyle string

const (
	StyleMinimalist   VisualStyle = "minimalist"
	StyleScandinavian VisualStyle = "scandinavian"
	StyleIndustrial   VisualStyle = "industrial"
	StyleBohemian     VisualStyle = "bohemian"
	StyleLuxury       VisualStyle = "luxury"
	StyleCustom       VisualStyle = "custom"
)

type ViewAngle string

const (
	AngleFrontal      ViewAngle = "frontal"
	AngleThreeQuarter ViewAngle = "three_quarter"
	AngleTopDown      ViewAngle = "top_down"
	AnglePerspective  ViewAngle = "perspective"
	AngleCustom       ViewAngle = "custom"
)

type AspectRatio string

const (
	RatioSquare    AspectRatio = "1:1"
	RatioLandscape AspectRatio = "16:9"
	RatioPortrait  AspectRatio = "9:16"
	RatioFeed      AspectRatio = "4:5"
	RatioClassic   AspectRatio = "3:4"
)

// AssetType is a named transformation preset for edits.
type AssetType string

const (
	AssetLifestyle AssetType = "lifestyle"
	AssetAd        AssetType = "ad"
	AssetSocial    AssetType = "social"
	AssetHero      AssetType = "hero"
	AssetVariation AssetType = "variation"
)

// Dimensions are user-declared physical product dimensions in centimeters.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// ProductSpecs are declared by the seller, not detected.
type ProductSpecs struct {
	ProductName     string      `json:"product_name"`
	ProductType     string      `json:"product_type"`
	Materials       string      `json:"materials"`
	Dimensions      *Dimensions `json:"dimensions,omitempty"`
	AdditionalSpecs string      `json:"additional_specs,omitempty"`
}

// UploadedImage is one product photo attached to a wizard session. Data is
// the raw image bytes as received from the client.
type UploadedImage struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

type ProductInput struct {
	Images []UploadedImage `json:"images"`
	Specs  ProductSpecs    `json:"specs"`
}

// UISettings is the enum-valued generation configuration. Pure value object.
type UISettings struct {
	ContextPreset    ContextPreset   `json:"context_preset"`
	BackgroundStyle  BackgroundStyle `json:"background_style"`
	ProductPosition  ProductPosition `json:"product_position"`
	ReservedTextZone string          `json:"reserved_text_zone,omitempty"`
	Props            []string        `json:"props,omitempty"`
	Lighting         Lighting        `json:"lighting"`
	StrictMode       bool            `json:"strict_mode"`
	Quality          string          `json:"quality"`
	Variations       int             `json:"variations"`
}

// ProductConfiguration is the aggregate passed between wizard steps. Steps
// replace the whole value; UpdatedAt is refreshed on every settings change.
type ProductConfiguration struct {
	ID           string       `json:"id"`
	ProductInput ProductInput `json:"product_input"`
	UISettings   UISettings   `json:"ui_settings"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
