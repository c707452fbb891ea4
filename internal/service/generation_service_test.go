package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"piktor/internal/model"
	"piktor/internal/repository"
)

func generationFixture(gen *fakeGenerator, maxGenerations int) (GenerationService, *fakeVisualRepo, *fakeImageRepo, *fakeUsageRepo, *fakePublisher) {
	visuals := newFakeVisualRepo()
	images := newFakeImageRepo()
	usage := newFakeUsageRepo()
	pub := &fakePublisher{}
	svc := NewGenerationService(
		visuals, images, usage, newFakeSubService(maxGenerations, 0),
		gen, newFakeStore(), pub, "render-jobs", "gemini-2.5-flash-image", 1,
		zerolog.Nop(),
	)
	return svc, visuals, images, usage, pub
}

func generationRequest(variations int) GenerationRequest {
	return GenerationRequest{
		Name:  "Oslo Armchair hero",
		Specs: model.ProductSpecs{ProductName: "Oslo Armchair", ProductType: "armchair"},
		Settings: model.UISettings{
			ContextPreset:   model.PresetHero,
			BackgroundStyle: model.BackgroundGradient,
			ProductPosition: model.PositionCenter,
			Lighting:        model.LightingStudioSoftbox,
		},
		Images:     []model.UploadedImage{{ID: "img-1", ContentType: "image/jpeg", Data: []byte{0x01}}},
		Variations: variations,
	}
}

func TestGeneratePartialSuccess(t *testing.T) {
	// Second of three variations fails; the batch still succeeds with two.
	gen := &fakeGenerator{errs: []error{nil, errors.New("model overloaded"), nil}}
	svc, visuals, _, usage, pub := generationFixture(gen, 10)

	result, err := svc.Generate(context.Background(), "user-1", generationRequest(3))
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if len(result.Images) != 2 {
		t.Fatalf("expected 2 succeeded variations, got %d", len(result.Images))
	}
	if result.FailedCount != 1 {
		t.Fatalf("expected 1 failed variation, got %d", result.FailedCount)
	}

	stored, _ := visuals.GetVisualByID(context.Background(), result.Visual.ID)
	if stored.Metadata.Status != model.VisualStatusCompleted {
		t.Fatalf("expected completed status, got %s", stored.Metadata.Status)
	}
	if stored.Metadata.SucceededCount != 2 || stored.Metadata.RequestedCount != 3 {
		t.Fatalf("unexpected counts: %+v", stored.Metadata)
	}

	if got := usage.count("user-1", repository.EventGeneration); got != 1 {
		t.Fatalf("expected exactly one usage event, got %d", got)
	}
	if pub.count() != 1 {
		t.Fatalf("expected one render job published, got %d", pub.count())
	}
}

func TestGenerateAllVariationsFailed(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("fail"), errors.New("fail")}}
	svc, visuals, _, usage, pub := generationFixture(gen, 10)

	_, err := svc.Generate(context.Background(), "user-1", generationRequest(2))
	if !errors.Is(err, ErrAllVariationsFailed) {
		t.Fatalf("expected ErrAllVariationsFailed, got %v", err)
	}

	// Usage is only charged on success.
	if got := usage.count("user-1", repository.EventGeneration); got != 0 {
		t.Fatalf("expected no usage events, got %d", got)
	}
	if pub.count() != 0 {
		t.Fatalf("expected no render job, got %d", pub.count())
	}

	// The visual record survives as a failed batch.
	var failedSeen bool
	for _, v := range visuals.visuals {
		if v.Metadata.Status == model.VisualStatusFailed {
			failedSeen = true
		}
	}
	if !failedSeen {
		t.Fatal("expected the visual to be marked failed")
	}
}

func TestGenerateLimitExceeded(t *testing.T) {
	gen := &fakeGenerator{}
	svc, _, _, usage, _ := generationFixture(gen, 1)

	if _, err := svc.Generate(context.Background(), "user-1", generationRequest(1)); err != nil {
		t.Fatalf("first generation should pass: %v", err)
	}
	if got := usage.count("user-1", repository.EventGeneration); got != 1 {
		t.Fatalf("expected one usage event after first generation, got %d", got)
	}

	_, err := svc.Generate(context.Background(), "user-1", generationRequest(1))
	if !errors.Is(err, repository.ErrGenerationLimitExceeded) {
		t.Fatalf("expected ErrGenerationLimitExceeded, got %v", err)
	}
	// The limit check runs before any model call.
	if gen.callCount() != 1 {
		t.Fatalf("expected no model call for the rejected request, got %d calls total", gen.callCount())
	}
}

func TestGenerateRejectsInvalidSettings(t *testing.T) {
	gen := &fakeGenerator{}
	svc, _, _, _, _ := generationFixture(gen, 10)

	req := generationRequest(1)
	req.Settings.ContextPreset = "billboard"
	if _, err := svc.Generate(context.Background(), "user-1", req); err == nil {
		t.Fatal("expected validation error for unknown preset")
	}
	if gen.callCount() != 0 {
		t.Fatal("expected no model calls for invalid settings")
	}
}

func TestGenerateClampsVariations(t *testing.T) {
	gen := &fakeGenerator{}
	svc, _, images, _, _ := generationFixture(gen, 10)

	result, err := svc.Generate(context.Background(), "user-1", generationRequest(9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Images) != maxVariationsPerRequest {
		t.Fatalf("expected %d variations, got %d", maxVariationsPerRequest, len(result.Images))
	}
	persisted, _ := images.ListImagesByVisual(context.Background(), result.Visual.ID)
	if len(persisted) != maxVariationsPerRequest {
		t.Fatalf("expected %d persisted images, got %d", maxVariationsPerRequest, len(persisted))
	}
}
