package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"piktor/internal/gemini"
	"piktor/internal/model"
	"piktor/internal/prompt"
	"piktor/internal/repository"
	"piktor/internal/storage"
)

// EditRequest asks for derived assets from one existing generated image.
type EditRequest struct {
	SourceImageID string
	ParentEditID  string
	AssetType     model.AssetType
	AspectRatio   model.AspectRatio
	ViewAngle     model.ViewAngle
	Lighting      model.Lighting
	Style         model.VisualStyle
	CustomPrompt  string
	Direction     string
	Products      []prompt.ProductReference
	Variations    int
}

type EditService interface {
	// ProcessEdit generates the requested variations. At least one success
	// returns the succeeded subset; only a fully failed batch is an error.
	ProcessEdit(ctx context.Context, userID string, req EditRequest) ([]model.EditResult, error)
	ListVersions(ctx context.Context, userID, sourceImageID string) ([]model.ImageEdit, error)
}

type editService struct {
	editRepo   repository.EditRepository
	imageRepo  repository.ImageRepository
	visualRepo repository.VisualRepository
	usageRepo  repository.UsageRepository
	subSvc     SubscriptionService
	generator  ImageGenerator
	store      ObjectStore
	modelName  string
	editLogger zerolog.Logger
}

func NewEditService(
	editRepo repository.EditRepository,
	imageRepo repository.ImageRepository,
	visualRepo repository.VisualRepository,
	usageRepo repository.UsageRepository,
	subSvc SubscriptionService,
	generator ImageGenerator,
	store ObjectStore,
	modelName string,
	logger zerolog.Logger,
) EditService {
	return &editService{
		editRepo:   editRepo,
		imageRepo:  imageRepo,
		visualRepo: visualRepo,
		usageRepo:  usageRepo,
		subSvc:     subSvc,
		generator:  generator,
		store:      store,
		modelName:  modelName,
		editLogger: logger.With().Str("service", "EditService").Logger(),
	}
}

func (s *editService) ProcessEdit(ctx context.Context, userID string, req EditRequest) ([]model.EditResult, error) {
	params := prompt.EditParams{
		AssetType:     req.AssetType,
		AspectRatio:   req.AspectRatio,
		ViewAngle:     req.ViewAngle,
		Lighting:      req.Lighting,
		Style:         req.Style,
		CustomPrompt:  req.CustomPrompt,
		Direction:     req.Direction,
		ProductImages: req.Products,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	// Ownership is established before anything is spent on the request.
	source, visual, err := s.loadOwnedImage(ctx, userID, req.SourceImageID)
	if err != nil {
		return nil, err
	}

	var parent *model.ImageEdit
	if req.ParentEditID != "" {
		parent, err = s.editRepo.GetEditByID(ctx, req.ParentEditID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.SourceImageID != source.ID {
			return nil, repository.ErrParentEditNotFound
		}
		if parent.UserID != userID {
			return nil, ErrNotOwner
		}
	}

	sub, err := s.checkEditCredits(ctx, userID)
	if err != nil {
		return nil, err
	}

	variations := req.Variations
	if variations <= 0 {
		if preset, ok := prompt.AssetPreset(req.AssetType); ok {
			variations = preset.DefaultVariations
		} else {
			variations = 1
		}
	}
	if variations > maxVariationsPerRequest {
		variations = maxVariationsPerRequest
	}

	promptText := prompt.BuildEditPrompt(params, source.Metadata, visual.Specs.ProductName)

	sourceData, err := s.store.GetObject(ctx, source.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("fetch source image: %w", err)
	}
	refs := []gemini.ImageInput{{Data: sourceData, MimeType: "image/jpeg"}}

	projectID := ""
	if visual.ProjectID != nil {
		projectID = *visual.ProjectID
	}
	prefix := storage.VisualPrefix(userID, projectID, visual.ID) + "/edits"

	var parentID *string
	if parent != nil {
		parentID = &parent.ID
	}

	var results []model.EditResult
	for i := 1; i <= variations; i++ {
		edit, err := s.editOne(ctx, userID, visual, source, parentID, promptText, req, refs, prefix, i)
		if err != nil {
			s.editLogger.Error().Err(err).
				Str("source_image_id", source.ID).
				Int("variation", i).
				Msg("Edit variation failed")
			continue
		}
		results = append(results, model.EditResult{Edit: *edit, Variation: i})
		// Later variations chain onto the first success so the version
		// sequence stays linear.
		parentID = &edit.ID
	}

	if len(results) == 0 {
		return nil, ErrAllVariationsFailed
	}

	if err := s.usageRepo.CheckAndRecordEvent(ctx, userID, repository.EventEdit, sub.StartsAt, sub.EndsAt, 0); err != nil {
		s.editLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to record edit usage")
	}

	return results, nil
}

func (s *editService) ListVersions(ctx context.Context, userID, sourceImageID string) ([]model.ImageEdit, error) {
	if _, _, err := s.loadOwnedImage(ctx, userID, sourceImageID); err != nil {
		return nil, err
	}
	return s.editRepo.ListEditsBySourceImage(ctx, sourceImageID)
}

// loadOwnedImage resolves a generated image and its visual, enforcing that
// the visual belongs to the calling user.
func (s *editService) loadOwnedImage(ctx context.Context, userID, imageID string) (*model.GeneratedImage, *model.Visual, error) {
	source, err := s.imageRepo.GetImageByID(ctx, imageID)
	if err != nil {
		return nil, nil, err
	}
	if source == nil {
		return nil, nil, ErrImageNotFound
	}
	visual, err := s.visualRepo.GetVisualByID(ctx, source.VisualID)
	if err != nil {
		return nil, nil, err
	}
	if visual == nil {
		return nil, nil, ErrVisualNotFound
	}
	if visual.UserID != userID {
		return nil, nil, ErrNotOwner
	}
	return source, visual, nil
}

func (s *editService) editOne(
	ctx context.Context,
	userID string,
	visual *model.Visual,
	source *model.GeneratedImage,
	parentID *string,
	promptText string,
	req EditRequest,
	refs []gemini.ImageInput,
	prefix string,
	variation int,
) (*model.ImageEdit, error) {
	generated, err := s.generator.GenerateImage(ctx, promptText, req.AspectRatio, refs)
	if err != nil {
		return nil, fmt.Errorf("generate edit variation %d: %w", variation, err)
	}

	filename := fmt.Sprintf("%s_%s_v%d.jpg", req.AssetType, uuid.NewString()[:8], variation)
	stored, err := s.store.PutImage(ctx, prefix, filename, generated.Data)
	if err != nil {
		return nil, fmt.Errorf("store edit variation %d: %w", variation, err)
	}

	url, err := s.store.PresignGet(ctx, stored.Key)
	if err != nil {
		s.editLogger.Error().Err(err).Str("key", stored.Key).Msg("Failed to presign edit URL")
		url = ""
	}

	edit := &model.ImageEdit{
		ID:            uuid.NewString(),
		VisualID:      visual.ID,
		UserID:        userID,
		SourceImageID: source.ID,
		ParentEditID:  parentID,
		AssetType:     req.AssetType,
		StoragePath:   stored.Key,
		ThumbnailPath: stored.ThumbnailKey,
		URL:           url,
		Prompt:        promptText,
		Metadata: model.ImageMetadata{
			Model:     s.modelName,
			Timestamp: time.Now().UTC(),
			Width:     stored.Width,
			Height:    stored.Height,
			Quality:   visual.Settings.Quality,
			Variation: variation,
		},
	}
	if err := s.editRepo.CreateEdit(ctx, edit); err != nil {
		return nil, fmt.Errorf("persist edit variation %d: %w", variation, err)
	}
	return edit, nil
}

func (s *editService) checkEditCredits(ctx context.Context, userID string) (*model.UserSubscription, error) {
	sub, err := s.subSvc.GetActiveSubscription(ctx, userID)
	if err != nil || sub == nil {
		return nil, ErrNoActiveSubscription
	}
	plan, err := s.subSvc.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("fetch plan %s: %w", sub.PlanID, err)
	}
	if plan.MaxEdits > 0 {
		count, err := s.usageRepo.CountEventsInTimeRange(ctx, userID, repository.EventEdit, sub.StartsAt, sub.EndsAt)
		if err != nil {
			return nil, fmt.Errorf("count edit usage: %w", err)
		}
		if count >= plan.MaxEdits {
			return nil, repository.ErrEditLimitExceeded
		}
	}
	return sub, nil
}
