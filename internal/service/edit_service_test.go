package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"piktor/internal/model"
	"piktor/internal/repository"
)

type editFixture struct {
	svc    EditService
	edits  *fakeEditRepo
	usage  *fakeUsageRepo
	gen    *fakeGenerator
	store  *fakeStore
	source *model.GeneratedImage
}

func newEditFixture(t *testing.T, gen *fakeGenerator) *editFixture {
	t.Helper()
	visuals := newFakeVisualRepo()
	images := newFakeImageRepo()
	edits := newFakeEditRepo()
	usage := newFakeUsageRepo()
	store := newFakeStore()

	visual := &model.Visual{
		ID:     "visual-1",
		UserID: "user-1",
		Name:   "Oslo Armchair",
		Specs:  model.ProductSpecs{ProductName: "Oslo Armchair"},
	}
	if err := visuals.CreateVisual(context.Background(), visual); err != nil {
		t.Fatal(err)
	}
	source := &model.GeneratedImage{
		ID:          "image-1",
		VisualID:    "visual-1",
		StoragePath: "users/user-1/visuals/dashboard/visual-1/variation_1.jpg",
		Metadata:    model.ImageMetadata{Model: "gemini-2.5-flash-image", Width: 1024, Height: 1024},
	}
	if err := images.CreateImage(context.Background(), source); err != nil {
		t.Fatal(err)
	}
	if _, err := store.PutImage(context.Background(), "users/user-1/visuals/dashboard/visual-1", "variation_1.jpg", []byte("src")); err != nil {
		t.Fatal(err)
	}

	svc := NewEditService(
		edits, images, visuals, usage, newFakeSubService(0, 10),
		gen, store, "gemini-2.5-flash-image",
		zerolog.Nop(),
	)
	return &editFixture{svc: svc, edits: edits, usage: usage, gen: gen, store: store, source: source}
}

func editRequest() EditRequest {
	return EditRequest{
		SourceImageID: "image-1",
		AssetType:     model.AssetHero,
		AspectRatio:   model.RatioLandscape,
		ViewAngle:     model.AngleFrontal,
		Lighting:      model.LightingStudioSoftbox,
		Style:         model.StyleMinimalist,
		Direction:     "swap the rug for a darker one",
	}
}

func TestProcessEditAssignsVersionChain(t *testing.T) {
	fix := newEditFixture(t, &fakeGenerator{})

	first, err := fix.svc.ProcessEdit(context.Background(), "user-1", editRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected one result for the hero preset, got %d", len(first))
	}
	if first[0].Edit.VersionNumber != 1 || !first[0].Edit.IsLatestVersion {
		t.Fatalf("expected version 1 latest, got %+v", first[0].Edit)
	}

	req := editRequest()
	req.ParentEditID = first[0].Edit.ID
	second, err := fix.svc.ProcessEdit(context.Background(), "user-1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second[0].Edit.VersionNumber != 2 {
		t.Fatalf("expected version 2, got %d", second[0].Edit.VersionNumber)
	}

	stored, _ := fix.edits.GetEditByID(context.Background(), first[0].Edit.ID)
	if stored.IsLatestVersion {
		t.Fatal("expected the first version to be demoted")
	}
}

func TestProcessEditOwnership(t *testing.T) {
	gen := &fakeGenerator{}
	fix := newEditFixture(t, gen)

	_, err := fix.svc.ProcessEdit(context.Background(), "intruder", editRequest())
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	// Ownership is checked before any model call is spent.
	if gen.callCount() != 0 {
		t.Fatalf("expected no model calls, got %d", gen.callCount())
	}
}

func TestProcessEditUnknownSource(t *testing.T) {
	fix := newEditFixture(t, &fakeGenerator{})

	req := editRequest()
	req.SourceImageID = "missing"
	if _, err := fix.svc.ProcessEdit(context.Background(), "user-1", req); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected ErrImageNotFound, got %v", err)
	}
}

func TestProcessEditPartialSuccess(t *testing.T) {
	// Social preset defaults to three variations; the middle one fails.
	gen := &fakeGenerator{errs: []error{nil, errors.New("model overloaded"), nil}}
	fix := newEditFixture(t, gen)

	req := editRequest()
	req.AssetType = model.AssetSocial
	req.AspectRatio = model.RatioFeed

	results, err := fix.svc.ProcessEdit(context.Background(), "user-1", req)
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 succeeded variations, got %d", len(results))
	}
	if got := fix.usage.count("user-1", repository.EventEdit); got != 1 {
		t.Fatalf("expected one edit usage event, got %d", got)
	}
}

func TestProcessEditAllFailed(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("fail")}}
	fix := newEditFixture(t, gen)

	if _, err := fix.svc.ProcessEdit(context.Background(), "user-1", editRequest()); !errors.Is(err, ErrAllVariationsFailed) {
		t.Fatalf("expected ErrAllVariationsFailed, got %v", err)
	}
	if got := fix.usage.count("user-1", repository.EventEdit); got != 0 {
		t.Fatalf("expected no usage charge for a fully failed batch, got %d", got)
	}
}

func TestProcessEditCustomEnumNeedsPrompt(t *testing.T) {
	fix := newEditFixture(t, &fakeGenerator{})

	req := editRequest()
	req.Lighting = model.LightingCustom
	if _, err := fix.svc.ProcessEdit(context.Background(), "user-1", req); err == nil {
		t.Fatal("expected validation error for custom lighting without custom prompt")
	}

	req.CustomPrompt = "lit by a single window on the left"
	if _, err := fix.svc.ProcessEdit(context.Background(), "user-1", req); err != nil {
		t.Fatalf("expected custom prompt to satisfy validation, got %v", err)
	}
}

func TestProcessEditLimitExceeded(t *testing.T) {
	gen := &fakeGenerator{}
	fix := newEditFixture(t, gen)

	// Exhaust the plan's edit credits.
	for i := 0; i < 10; i++ {
		fix.usage.CheckAndRecordEvent(context.Background(), "user-1", repository.EventEdit, time.Now(), time.Now(), 0)
	}

	_, err := fix.svc.ProcessEdit(context.Background(), "user-1", editRequest())
	if !errors.Is(err, repository.ErrEditLimitExceeded) {
		t.Fatalf("expected ErrEditLimitExceeded, got %v", err)
	}
	if gen.callCount() != 0 {
		t.Fatal("expected no model calls for a rejected request")
	}
}
