package prompt

import (
	"strings"
	"testing"

	"piktor/internal/model"
)

func validEditParams() EditParams {
	return EditParams{
		AssetType:   model.AssetLifestyle,
		AspectRatio: model.RatioLandscape,
		ViewAngle:   model.AngleThreeQuarter,
		Lighting:    model.LightingGoldenHour,
		Style:       model.StyleScandinavian,
		Direction:   "add a throw blanket on the armrest",
	}
}

func TestBuildEditPromptDeterministic(t *testing.T) {
	params := validEditParams()
	meta := model.ImageMetadata{Model: "gemini-2.5-flash-image", Width: 1536, Height: 864}

	first := BuildEditPrompt(params, meta, "Oslo Armchair")
	second := BuildEditPrompt(params, meta, "Oslo Armchair")

	if first == "" {
		t.Fatal("expected non-empty prompt")
	}
	if first != second {
		t.Fatal("expected identical prompts on repeated calls")
	}
}

func TestBuildEditPromptRepeatsCameraDirective(t *testing.T) {
	params := validEditParams()
	out := BuildEditPrompt(params, model.ImageMetadata{}, "")

	directive, ok := cameraAngleDirective(params.ViewAngle, "")
	if !ok {
		t.Fatal("expected a directive for a valid angle")
	}
	if count := strings.Count(out, directive); count != 2 {
		t.Fatalf("expected camera directive exactly twice, got %d", count)
	}
	if !strings.HasPrefix(out[strings.Index(out, directive):], directive) {
		t.Fatal("expected directive near the start")
	}
	if !strings.HasSuffix(strings.TrimSpace(out), directive) {
		t.Fatal("expected directive as the closing sentence")
	}
}

func TestBuildEditPromptProductIntegration(t *testing.T) {
	params := validEditParams()
	params.ProductImages = []ProductReference{
		{Name: "Side Table", Description: "oak, round top"},
		{Name: "Floor Lamp"},
	}
	out := BuildEditPrompt(params, model.ImageMetadata{}, "Oslo Armchair")

	if !strings.Contains(out, "Side Table") || !strings.Contains(out, "Floor Lamp") {
		t.Fatal("expected each integrated product to appear in the prompt")
	}
	if !strings.Contains(out, "Do not remove or replace any element already present.") {
		t.Fatal("expected the additive-compositing constraint")
	}
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*EditParams)
	}{
		{"asset type", func(p *EditParams) { p.AssetType = "poster" }},
		{"aspect ratio", func(p *EditParams) { p.AspectRatio = "2:1" }},
		{"view angle", func(p *EditParams) { p.ViewAngle = "dutch" }},
		{"lighting", func(p *EditParams) { p.Lighting = "neon" }},
		{"style", func(p *EditParams) { p.Style = "vaporwave" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validEditParams()
			tc.mutate(&params)
			if err := params.Validate(); err == nil {
				t.Fatalf("expected validation error for unknown %s", tc.name)
			}
		})
	}
}

func TestValidateRequiresCustomPrompt(t *testing.T) {
	params := validEditParams()
	params.Lighting = model.LightingCustom

	if err := params.Validate(); err == nil {
		t.Fatal("expected error when custom lighting has no custom prompt")
	}

	params.CustomPrompt = "lit only by candles on the table"
	if err := params.Validate(); err != nil {
		t.Fatalf("expected custom prompt to satisfy validation, got %v", err)
	}
}

func TestEditedDimensions(t *testing.T) {
	cases := map[model.AspectRatio]Size{
		model.RatioSquare:    {Width: 1024, Height: 1024},
		model.RatioLandscape: {Width: 1536, Height: 864},
		model.RatioPortrait:  {Width: 864, Height: 1536},
		model.RatioFeed:      {Width: 1024, Height: 1280},
		model.RatioClassic:   {Width: 960, Height: 1280},
	}
	for ratio, want := range cases {
		got, ok := EditedDimensions(ratio)
		if !ok {
			t.Fatalf("expected dimensions for %s", ratio)
		}
		if got != want {
			t.Fatalf("for %s: got %dx%d, want %dx%d", ratio, got.Width, got.Height, want.Width, want.Height)
		}
	}
	if _, ok := EditedDimensions("21:9"); ok {
		t.Fatal("expected unsupported ratio to be rejected")
	}
}

func TestMapLegacyAngle(t *testing.T) {
	if got := MapLegacyAngle("45-degree"); got != model.AngleThreeQuarter {
		t.Fatalf("expected 45-degree to map to three_quarter, got %q", got)
	}
	if got := MapLegacyAngle("overhead"); got != model.AngleTopDown {
		t.Fatalf("expected overhead to map to top_down, got %q", got)
	}
	if got := MapLegacyAngle("fisheye"); got != "" {
		t.Fatalf("expected unknown spelling to map to empty, got %q", got)
	}
}

func TestBuildGenerationPrompt(t *testing.T) {
	specs := model.ProductSpecs{ProductName: "Oslo Armchair", ProductType: "armchair", Materials: "oak, wool"}
	settings := model.UISettings{
		ContextPreset:    model.PresetHero,
		BackgroundStyle:  model.BackgroundGradient,
		ProductPosition:  model.PositionLeft,
		Lighting:         model.LightingStudioSoftbox,
		ReservedTextZone: "right half",
		StrictMode:       true,
		Variations:       2,
	}
	if err := ValidateSettings(settings); err != nil {
		t.Fatalf("expected valid settings, got %v", err)
	}

	out := BuildGenerationPrompt(specs, settings)
	if out != BuildGenerationPrompt(specs, settings) {
		t.Fatal("expected deterministic output")
	}
	for _, want := range []string{"Oslo Armchair", "right half", "STRICT MODE", "1536x864"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
}

func TestValidateSettingsRejectsCustomLighting(t *testing.T) {
	settings := model.UISettings{
		ContextPreset:   model.PresetPackshot,
		BackgroundStyle: model.BackgroundPlain,
		ProductPosition: model.PositionCenter,
		Lighting:        model.LightingCustom,
	}
	if err := ValidateSettings(settings); err == nil {
		t.Fatal("expected custom lighting to be rejected on generation")
	}
}

func TestAssetPresetDefaults(t *testing.T) {
	spec, ok := AssetPreset(model.AssetHero)
	if !ok {
		t.Fatal("expected hero preset")
	}
	if spec.DefaultVariations != 1 {
		t.Fatalf("expected hero default of 1 variation, got %d", spec.DefaultVariations)
	}
	if _, ok := AssetPreset("banner"); ok {
		t.Fatal("expected unknown asset type to be rejected")
	}
}
