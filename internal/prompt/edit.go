package prompt

import (
	"fmt"
	"strings"

	"piktor/internal/model"
)

// ProductReference is an extra product photo to composite into the scene.
type ProductReference struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// EditParams describe one edit request against a generated image.
type EditParams struct {
	AssetType   model.AssetType   `json:"asset_type"`
	AspectRatio model.AspectRatio `json:"aspect_ratio"`
	ViewAngle   model.ViewAngle   `json:"view_angle"`
	Lighting    model.Lighting    `json:"lighting"`
	Style       model.VisualStyle `json:"style"`

	// CustomPrompt backs the custom members of the angle/lighting/style
	// enums. Required whenever any of them is set to custom.
	CustomPrompt string `json:"custom_prompt,omitempty"`

	// Direction is free-text additional creative direction.
	Direction string `json:"direction,omitempty"`

	ProductImages []ProductReference `json:"product_images,omitempty"`
}

// Validate rejects unknown enum members and a missing CustomPrompt when any
// enum selects its custom member. An unknown value is an error here, never a
// silent empty concatenation downstream.
func (p EditParams) Validate() error {
	if _, ok := AssetPreset(p.AssetType); !ok {
		return fmt.Errorf("unknown asset type %q", p.AssetType)
	}
	if _, ok := EditedDimensions(p.AspectRatio); !ok {
		return fmt.Errorf("unknown aspect ratio %q", p.AspectRatio)
	}
	needsCustom := p.ViewAngle == model.AngleCustom ||
		p.Lighting == model.LightingCustom ||
		p.Style == model.StyleCustom
	if needsCustom && strings.TrimSpace(p.CustomPrompt) == "" {
		return fmt.Errorf("custom prompt is required when angle, lighting or style is %q", "custom")
	}
	if _, ok := cameraAngleDirective(p.ViewAngle, p.CustomPrompt); !ok {
		return fmt.Errorf("unknown view angle %q", p.ViewAngle)
	}
	if _, ok := lightingNarrative(p.Lighting, p.CustomPrompt); !ok {
		return fmt.Errorf("unknown lighting %q", p.Lighting)
	}
	if _, ok := styleDirective(p.Style, p.CustomPrompt); !ok {
		return fmt.Errorf("unknown style %q", p.Style)
	}
	return nil
}

// BuildEditPrompt maps validated edit parameters onto the instruction string
// sent to the image model. Deterministic, no I/O. The camera-angle directive
// opens the prompt and is repeated once as the closing sentence; repeating it
// biases the model toward honoring the angle, it is not a retry mechanism.
func BuildEditPrompt(params EditParams, original model.ImageMetadata, productName string) string {
	angle, _ := cameraAngleDirective(params.ViewAngle, params.CustomPrompt)
	aspect, _ := aspectNarrative(params.AspectRatio)
	lighting, _ := lightingNarrative(params.Lighting, params.CustomPrompt)
	style, _ := styleDirective(params.Style, params.CustomPrompt)
	preset, _ := AssetPreset(params.AssetType)

	var b strings.Builder
	b.Grow(2048)

	b.WriteString("TASK: Transform the attached product image into a new marketing asset.\n\n")

	b.WriteString(angle)
	b.WriteString("\n\n")

	if productName != "" {
		b.WriteString("The product is \"" + productName + "\". ")
	}
	b.WriteString("The first attached image is the product identity reference: preserve its exact shape, proportions, materials, colors and any branding. Never redesign or substitute the product.\n\n")

	b.WriteString(preset.Fragment)
	b.WriteString("\n")
	b.WriteString(aspect)
	b.WriteString("\n")
	b.WriteString(lighting)
	b.WriteString("\n")
	b.WriteString(style)
	b.WriteString("\n")

	if original.Model != "" {
		b.WriteString(fmt.Sprintf("The source image was produced by %s at %dx%d; match its fidelity.\n", original.Model, original.Width, original.Height))
	}

	if len(params.ProductImages) > 0 {
		b.WriteString("\nPRODUCTS TO INTEGRATE (additive compositing):\n")
		for i, ref := range params.ProductImages {
			line := fmt.Sprintf("- Product %d: %s", i+1, ref.Name)
			if ref.Description != "" {
				line += " — " + ref.Description
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("Add these products into the existing scene. Do not remove or replace any element already present.\n")
	}

	if d := strings.TrimSpace(params.Direction); d != "" {
		b.WriteString("\nADDITIONAL CREATIVE DIRECTION:\n- " + d + "\n")
	}

	b.WriteString("\n")
	b.WriteString(angle)

	return b.String()
}
