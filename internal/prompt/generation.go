package prompt

import (
	"fmt"
	"strings"

	"piktor/internal/model"
)

func presetScene(preset model.ContextPreset) (string, bool) {
	switch preset {
	case model.PresetPackshot:
		return "Produce a clean e-commerce packshot on a seamless studio background with a soft contact shadow.", true
	case model.PresetInstagram:
		return "Produce an Instagram feed visual: styled scene, strong color story, product unmistakably the hero.", true
	case model.PresetStory:
		return "Produce a vertical story visual with the product in the lower two thirds and calm space above.", true
	case model.PresetHero:
		return "Produce a wide website hero visual with the product off-center and clean negative space for headline copy.", true
	case model.PresetLifestyle:
		return "Produce a lifestyle scene placing the product in a believable furnished interior.", true
	case model.PresetDetail:
		return "Produce a tight detail shot emphasizing material texture and build quality.", true
	default:
		return "", false
	}
}

func backgroundNarrative(bg model.BackgroundStyle) (string, bool) {
	switch bg {
	case model.BackgroundPlain:
		return "Keep the background plain and even-toned.", true
	case model.BackgroundGradient:
		return "Use a smooth tonal gradient background.", true
	case model.BackgroundTextured:
		return "Use a subtly textured background (plaster, linen or stone) that never competes with the product.", true
	case model.BackgroundScene:
		return "Build a full environmental scene behind the product.", true
	default:
		return "", false
	}
}

func positionNarrative(pos model.ProductPosition) (string, bool) {
	switch pos {
	case model.PositionCenter:
		return "Place the product at the center of the frame.", true
	case model.PositionLeft:
		return "Place the product in the left third of the frame.", true
	case model.PositionRight:
		return "Place the product in the right third of the frame.", true
	default:
		return "", false
	}
}

// ValidateSettings rejects unknown enum members on generation settings.
func ValidateSettings(s model.UISettings) error {
	if _, ok := presetScene(s.ContextPreset); !ok {
		return fmt.Errorf("unknown context preset %q", s.ContextPreset)
	}
	if _, ok := backgroundNarrative(s.BackgroundStyle); !ok {
		return fmt.Errorf("unknown background style %q", s.BackgroundStyle)
	}
	if _, ok := positionNarrative(s.ProductPosition); !ok {
		return fmt.Errorf("unknown product position %q", s.ProductPosition)
	}
	if s.Lighting == model.LightingCustom {
		return fmt.Errorf("custom lighting is not available on generation; choose a named lighting setup")
	}
	if _, ok := lightingNarrative(s.Lighting, ""); !ok {
		return fmt.Errorf("unknown lighting %q", s.Lighting)
	}
	return nil
}

// BuildGenerationPrompt maps declared product specs and generation settings
// onto the instruction string for a fresh generation batch. Deterministic,
// no I/O; ValidateSettings must have passed.
func BuildGenerationPrompt(specs model.ProductSpecs, s model.UISettings) string {
	scene, _ := presetScene(s.ContextPreset)
	background, _ := backgroundNarrative(s.BackgroundStyle)
	position, _ := positionNarrative(s.ProductPosition)
	lighting, _ := lightingNarrative(s.Lighting, "")
	size, _ := PresetSize(s.ContextPreset)

	var b strings.Builder
	b.Grow(2048)

	b.WriteString("TASK: Generate a marketing visual for a furniture product from the attached reference photos.\n\n")

	b.WriteString("PRODUCT:\n")
	b.WriteString(fmt.Sprintf("- Name: %s\n", specs.ProductName))
	b.WriteString(fmt.Sprintf("- Type: %s\n", specs.ProductType))
	if specs.Materials != "" {
		b.WriteString(fmt.Sprintf("- Materials: %s\n", specs.Materials))
	}
	if d := specs.Dimensions; d != nil {
		b.WriteString(fmt.Sprintf("- Dimensions: %.0fx%.0fx%.0f cm (WxHxD); keep proportions physically accurate\n", d.Width, d.Height, d.Depth))
	}
	if specs.AdditionalSpecs != "" {
		b.WriteString("- Notes: " + specs.AdditionalSpecs + "\n")
	}
	b.WriteString("\n")

	b.WriteString("SCENE:\n")
	b.WriteString("- " + scene + "\n")
	b.WriteString("- " + background + "\n")
	b.WriteString("- " + position + "\n")
	b.WriteString("- " + lighting + "\n")
	if len(s.Props) > 0 {
		b.WriteString("- Supporting props: " + strings.Join(s.Props, ", ") + " (props only, never occluding the product)\n")
	}
	if s.ReservedTextZone != "" {
		b.WriteString("- Reserve the " + s.ReservedTextZone + " of the frame as clean space for overlaid text; keep it free of objects and clutter\n")
	}
	b.WriteString(fmt.Sprintf("- Target size: %dx%d\n", size.Width, size.Height))
	b.WriteString("\n")

	b.WriteString("CONSTRAINTS:\n")
	b.WriteString("- The product must match the reference photos exactly: shape, proportions, materials, colors, hardware.\n")
	b.WriteString("- No added text, watermarks, borders or logos.\n")
	if s.StrictMode {
		b.WriteString("- STRICT MODE: no artistic reinterpretation of the product whatsoever; environment changes only.\n")
	}

	return b.String()
}
