package prompt

import (
	"strings"

	"piktor/internal/model"
)

// Size is a target pixel size for a generated image.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EditedDimensions returns the output pixel size for an aspect ratio. The
// second return is false for ratios the service does not support; callers
// must treat that as a validation error, never as an empty size.
func EditedDimensions(ratio model.AspectRatio) (Size, bool) {
	switch ratio {
	case model.RatioSquare:
		return Size{Width: 1024, Height: 1024}, true
	case model.RatioLandscape:
		return Size{Width: 1536, Height: 864}, true
	case model.RatioPortrait:
		return Size{Width: 864, Height: 1536}, true
	case model.RatioFeed:
		return Size{Width: 1024, Height: 1280}, true
	case model.RatioClassic:
		return Size{Width: 960, Height: 1280}, true
	default:
		return Size{}, false
	}
}

// PresetSize returns the fixed target pixel size for a context preset.
func PresetSize(preset model.ContextPreset) (Size, bool) {
	switch preset {
	case model.PresetPackshot:
		return Size{Width: 1024, Height: 1024}, true
	case model.PresetInstagram:
		return Size{Width: 1024, Height: 1280}, true
	case model.PresetStory:
		return Size{Width: 864, Height: 1536}, true
	case model.PresetHero:
		return Size{Width: 1536, Height: 864}, true
	case model.PresetLifestyle:
		return Size{Width: 1280, Height: 960}, true
	case model.PresetDetail:
		return Size{Width: 1024, Height: 1024}, true
	default:
		return Size{}, false
	}
}

// PresetRatio maps a context preset onto the aspect ratio used when the
// rendered size has to be expressed as a ratio for the generation API.
func PresetRatio(preset model.ContextPreset) (model.AspectRatio, bool) {
	switch preset {
	case model.PresetPackshot, model.PresetDetail:
		return model.RatioSquare, true
	case model.PresetInstagram:
		return model.RatioFeed, true
	case model.PresetStory:
		return model.RatioPortrait, true
	case model.PresetHero:
		return model.RatioLandscape, true
	case model.PresetLifestyle:
		return model.RatioClassic, true
	default:
		return "", false
	}
}

// MapLegacyAngle translates angle spellings from older clients onto the
// current enum. Unknown spellings map to the empty angle so validation can
// reject them instead of silently concatenating nothing.
func MapLegacyAngle(raw string) model.ViewAngle {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "frontal", "front", "straight-on":
		return model.AngleFrontal
	case "three_quarter", "three-quarter", "45-degree", "45":
		return model.AngleThreeQuarter
	case "top_down", "top-down", "overhead", "birds-eye":
		return model.AngleTopDown
	case "perspective", "wide-angle":
		return model.AnglePerspective
	case "custom":
		return model.AngleCustom
	default:
		return ""
	}
}

// cameraAngleDirective is the block that opens every edit prompt and is
// repeated once at the very end as a reinforcement sentence.
func cameraAngleDirective(angle model.ViewAngle, customPrompt string) (string, bool) {
	switch angle {
	case model.AngleFrontal:
		return "Photograph the product dead-on from a frontal camera position, lens at product mid-height, no tilt.", true
	case model.AngleThreeQuarter:
		return "Photograph the product from a 45-degree three-quarter camera angle revealing the front and one side.", true
	case model.AngleTopDown:
		return "Photograph the product from directly above in a top-down flat-lay camera position.", true
	case model.AnglePerspective:
		return "Photograph the product from a low three-point perspective that emphasizes depth and scale.", true
	case model.AngleCustom:
		if strings.TrimSpace(customPrompt) == "" {
			return "", false
		}
		return "Camera direction: " + strings.TrimSpace(customPrompt), true
	default:
		return "", false
	}
}

func aspectNarrative(ratio model.AspectRatio) (string, bool) {
	switch ratio {
	case model.RatioSquare:
		return "Compose for a square 1:1 frame with the product centered and balanced negative space on all sides.", true
	case model.RatioLandscape:
		return "Compose for a wide 16:9 landscape frame, leaving breathing room on both sides of the product.", true
	case model.RatioPortrait:
		return "Compose for a tall 9:16 portrait frame; use vertical negative space above and below the product.", true
	case model.RatioFeed:
		return "Compose for a 4:5 feed frame optimized for social timelines, product slightly below center.", true
	case model.RatioClassic:
		return "Compose for a classic 3:4 frame with the product filling roughly two thirds of the height.", true
	default:
		return "", false
	}
}

func lightingNarrative(lighting model.Lighting, customPrompt string) (string, bool) {
	switch lighting {
	case model.LightingStudioSoftbox:
		return "Light the scene with soft studio softboxes: balanced key and fill, gentle shadow falloff under the product.", true
	case model.LightingNaturalDay:
		return "Light the scene with bright natural daylight through a large window, soft directional shadows.", true
	case model.LightingGoldenHour:
		return "Light the scene with warm golden-hour sunlight raking in at a low angle, long soft shadows.", true
	case model.LightingDramaticSpot:
		return "Light the scene with a single dramatic spotlight, deep controlled shadows and a dark falloff to the edges.", true
	case model.LightingAmbientEvening:
		return "Light the scene with dim ambient evening light, warm practical lamps glowing in the background.", true
	case model.LightingCustom:
		if strings.TrimSpace(customPrompt) == "" {
			return "", false
		}
		return "Lighting direction: " + strings.TrimSpace(customPrompt), true
	default:
		return "", false
	}
}

func styleDirective(style model.VisualStyle, customPrompt string) (string, bool) {
	switch style {
	case model.StyleMinimalist:
		return "Style the set minimalist: clean lines, neutral palette, no more than two supporting objects.", true
	case model.StyleScandinavian:
		return "Style the set scandinavian: light woods, white walls, soft textiles, airy and bright.", true
	case model.StyleIndustrial:
		return "Style the set industrial: raw concrete, dark metal fixtures, exposed brick accents.", true
	case model.StyleBohemian:
		return "Style the set bohemian: layered textures, rattan, plants, warm earthy tones.", true
	case model.StyleLuxury:
		return "Style the set luxury: marble surfaces, brass details, deep rich tones, editorial polish.", true
	case model.StyleCustom:
		if strings.TrimSpace(customPrompt) == "" {
			return "", false
		}
		return "Style direction: " + strings.TrimSpace(customPrompt), true
	default:
		return "", false
	}
}

// AssetPreset is the canned prompt fragment and default variation count for
// an asset type.
type AssetPresetSpec struct {
	Fragment          string
	DefaultVariations int
}

func AssetPreset(assetType model.AssetType) (AssetPresetSpec, bool) {
	switch assetType {
	case model.AssetLifestyle:
		return AssetPresetSpec{
			Fragment:          "Place the product in a lived-in interior scene that suggests real daily use.",
			DefaultVariations: 2,
		}, true
	case model.AssetAd:
		return AssetPresetSpec{
			Fragment:          "Stage the product as the hero of a polished advertising shot with bold, clean composition.",
			DefaultVariations: 2,
		}, true
	case model.AssetSocial:
		return AssetPresetSpec{
			Fragment:          "Stage the product for a scroll-stopping social media post, vibrant but uncluttered.",
			DefaultVariations: 3,
		}, true
	case model.AssetHero:
		return AssetPresetSpec{
			Fragment:          "Stage the product as a website hero banner with generous negative space for overlaid copy.",
			DefaultVariations: 1,
		}, true
	case model.AssetVariation:
		return AssetPresetSpec{
			Fragment:          "Re-render the product faithfully with a fresh but closely related scene treatment.",
			DefaultVariations: 2,
		}, true
	default:
		return AssetPresetSpec{}, false
	}
}
