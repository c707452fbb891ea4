package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"piktor/internal/gemini"
	"piktor/internal/model"
	"piktor/internal/prompt"
	"piktor/internal/pubsub"
	"piktor/internal/repository"
	"piktor/internal/storage"
)

const maxVariationsPerRequest = 4

// ImageGenerator produces images from prompts. Satisfied by *gemini.Client.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, ratio model.AspectRatio, refs []gemini.ImageInput) (gemini.GeneratedImage, error)
}

// ObjectStore is the slice of the storage layer the services need.
// Satisfied by *storage.Store.
type ObjectStore interface {
	PutImage(ctx context.Context, prefix, filename string, data []byte) (storage.StoredImage, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeletePrefix(ctx context.Context, prefix string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// GenerationRequest carries a completed wizard configuration into generation.
type GenerationRequest struct {
	ProjectID  string
	Name       string
	Specs      model.ProductSpecs
	Settings   model.UISettings
	Images     []model.UploadedImage
	Variations int
}

// GenerationResult reports the outcome of one generation batch. FailedCount
// is non-zero when some variations failed but at least one succeeded.
type GenerationResult struct {
	Visual      *model.Visual
	Images      []model.GeneratedImage
	FailedCount int
}

// renderJob is the payload handed to the render worker after a batch completes.
type renderJob struct {
	VisualID      string   `json:"visual_id"`
	UserID        string   `json:"user_id"`
	ContextPreset string   `json:"context_preset"`
	ImageKeys     []string `json:"image_keys"`
}

type GenerationService interface {
	Generate(ctx context.Context, userID string, req GenerationRequest) (*GenerationResult, error)
}

type generationService struct {
	visualRepo  repository.VisualRepository
	imageRepo   repository.ImageRepository
	usageRepo   repository.UsageRepository
	subSvc      SubscriptionService
	generator   ImageGenerator
	store       ObjectStore
	publisher   pubsub.Publisher
	renderTopic string
	modelName   string
	maxInFlight int
	genLogger   zerolog.Logger
}

// NewGenerationService creates a GenerationService. maxInFlight bounds how
// many model calls one request runs concurrently; 1 keeps the original
// sequential behavior.
func NewGenerationService(
	visualRepo repository.VisualRepository,
	imageRepo repository.ImageRepository,
	usageRepo repository.UsageRepository,
	subSvc SubscriptionService,
	generator ImageGenerator,
	store ObjectStore,
	publisher pubsub.Publisher,
	renderTopic string,
	modelName string,
	maxInFlight int,
	logger zerolog.Logger,
) GenerationService {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &generationService{
		visualRepo:  visualRepo,
		imageRepo:   imageRepo,
		usageRepo:   usageRepo,
		subSvc:      subSvc,
		generator:   generator,
		store:       store,
		publisher:   publisher,
		renderTopic: renderTopic,
		modelName:   modelName,
		maxInFlight: maxInFlight,
		genLogger:   logger.With().Str("service", "GenerationService").Logger(),
	}
}

// Generate runs one generation batch for the user. At least one succeeded
// variation makes the batch a success; only a batch where every variation
// failed returns an error.
func (s *generationService) Generate(ctx context.Context, userID string, req GenerationRequest) (*GenerationResult, error) {
	if err := prompt.ValidateSettings(req.Settings); err != nil {
		return nil, err
	}
	if len(req.Images) == 0 {
		return nil, fmt.Errorf("at least one product image is required")
	}

	variations := req.Variations
	if variations <= 0 {
		variations = req.Settings.Variations
	}
	if variations <= 0 {
		variations = 1
	}
	if variations > maxVariationsPerRequest {
		variations = maxVariationsPerRequest
	}

	sub, _, err := s.checkGenerationCredits(ctx, userID)
	if err != nil {
		return nil, err
	}

	promptText := prompt.BuildGenerationPrompt(req.Specs, req.Settings)
	ratio, ok := prompt.PresetRatio(req.Settings.ContextPreset)
	if !ok {
		ratio = model.RatioSquare
	}

	var projectID *string
	if req.ProjectID != "" {
		projectID = &req.ProjectID
	}
	name := req.Name
	if name == "" {
		name = req.Specs.ProductName
	}

	visual := &model.Visual{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProjectID: projectID,
		Name:      name,
		Prompt:    promptText,
		Specs:     req.Specs,
		Settings:  req.Settings,
		Metadata: model.VisualMetadata{
			Status:         model.VisualStatusGenerating,
			Model:          s.modelName,
			Quality:        req.Settings.Quality,
			RequestedCount: variations,
		},
	}
	if err := s.visualRepo.CreateVisual(ctx, visual); err != nil {
		s.genLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to create visual record")
		return nil, fmt.Errorf("create visual: %w", err)
	}

	refs := make([]gemini.ImageInput, 0, len(req.Images))
	for _, img := range req.Images {
		refs = append(refs, gemini.ImageInput{Data: img.Data, MimeType: img.ContentType})
	}

	prefix := storage.VisualPrefix(userID, req.ProjectID, visual.ID)
	images, failed := s.runVariations(ctx, visual, promptText, ratio, refs, prefix, variations)

	if len(images) == 0 {
		visual.Metadata.Status = model.VisualStatusFailed
		visual.Metadata.FailureReason = "all variations failed"
		if err := s.visualRepo.UpdateMetadata(ctx, visual.ID, visual.Metadata); err != nil {
			s.genLogger.Error().Err(err).Str("visual_id", visual.ID).Msg("Failed to mark visual as failed")
		}
		return nil, ErrAllVariationsFailed
	}

	visual.Metadata.Status = model.VisualStatusCompleted
	visual.Metadata.SucceededCount = len(images)
	if err := s.visualRepo.UpdateMetadata(ctx, visual.ID, visual.Metadata); err != nil {
		s.genLogger.Error().Err(err).Str("visual_id", visual.ID).Msg("Failed to mark visual as completed")
	}

	s.publishRenderJob(ctx, visual, images)
	s.recordUsage(ctx, userID, sub)

	return &GenerationResult{Visual: visual, Images: images, FailedCount: failed}, nil
}

// runVariations executes the variation calls with at most maxInFlight in
// flight and persists each success as it lands.
func (s *generationService) runVariations(
	ctx context.Context,
	visual *model.Visual,
	promptText string,
	ratio model.AspectRatio,
	refs []gemini.ImageInput,
	prefix string,
	variations int,
) ([]model.GeneratedImage, int) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		images []model.GeneratedImage
		failed int
		sem    = make(chan struct{}, s.maxInFlight)
	)

	for i := 1; i <= variations; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(variation int) {
			defer wg.Done()
			defer func() { <-sem }()

			img, err := s.generateOne(ctx, visual, promptText, ratio, refs, prefix, variation)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.genLogger.Error().Err(err).
					Str("visual_id", visual.ID).
					Int("variation", variation).
					Msg("Variation failed")
				failed++
				return
			}
			images = append(images, *img)
		}(i)
	}
	wg.Wait()
	return images, failed
}

func (s *generationService) generateOne(
	ctx context.Context,
	visual *model.Visual,
	promptText string,
	ratio model.AspectRatio,
	refs []gemini.ImageInput,
	prefix string,
	variation int,
) (*model.GeneratedImage, error) {
	generated, err := s.generator.GenerateImage(ctx, promptText, ratio, refs)
	if err != nil {
		return nil, fmt.Errorf("generate variation %d: %w", variation, err)
	}

	filename := fmt.Sprintf("variation_%d.jpg", variation)
	stored, err := s.store.PutImage(ctx, prefix, filename, generated.Data)
	if err != nil {
		return nil, fmt.Errorf("store variation %d: %w", variation, err)
	}

	url, err := s.store.PresignGet(ctx, stored.Key)
	if err != nil {
		s.genLogger.Error().Err(err).Str("key", stored.Key).Msg("Failed to presign image URL")
		url = ""
	}

	img := &model.GeneratedImage{
		ID:               uuid.NewString(),
		VisualID:         visual.ID,
		StoragePath:      stored.Key,
		ThumbnailPath:    stored.ThumbnailKey,
		URL:              url,
		Prompt:           promptText,
		GenerationSource: "generation",
		Metadata: model.ImageMetadata{
			Model:     s.modelName,
			Timestamp: time.Now().UTC(),
			Width:     stored.Width,
			Height:    stored.Height,
			Quality:   visual.Settings.Quality,
			Variation: variation,
		},
	}
	if err := s.imageRepo.CreateImage(ctx, img); err != nil {
		return nil, fmt.Errorf("persist variation %d: %w", variation, err)
	}
	return img, nil
}

func (s *generationService) checkGenerationCredits(ctx context.Context, userID string) (*model.UserSubscription, *model.SubscriptionPlan, error) {
	sub, err := s.subSvc.GetActiveSubscription(ctx, userID)
	if err != nil || sub == nil {
		return nil, nil, ErrNoActiveSubscription
	}
	plan, err := s.subSvc.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch plan %s: %w", sub.PlanID, err)
	}
	if plan.MaxGenerations > 0 {
		count, err := s.usageRepo.CountEventsInTimeRange(ctx, userID, repository.EventGeneration, sub.StartsAt, sub.EndsAt)
		if err != nil {
			return nil, nil, fmt.Errorf("count generation usage: %w", err)
		}
		if count >= plan.MaxGenerations {
			return nil, nil, repository.ErrGenerationLimitExceeded
		}
	}
	return sub, plan, nil
}

// recordUsage charges one generation credit. Best-effort: the images are
// already delivered, so a bookkeeping failure is logged, not returned.
func (s *generationService) recordUsage(ctx context.Context, userID string, sub *model.UserSubscription) {
	err := s.usageRepo.CheckAndRecordEvent(ctx, userID, repository.EventGeneration, sub.StartsAt, sub.EndsAt, 0)
	if err != nil {
		s.genLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to record generation usage")
	}
}

// publishRenderJob hands the finished batch to the render worker. Best-effort.
func (s *generationService) publishRenderJob(ctx context.Context, visual *model.Visual, images []model.GeneratedImage) {
	if s.publisher == nil {
		return
	}
	keys := make([]string, 0, len(images))
	for _, img := range images {
		keys = append(keys, img.StoragePath)
	}
	payload, err := json.Marshal(renderJob{
		VisualID:      visual.ID,
		UserID:        visual.UserID,
		ContextPreset: string(visual.Settings.ContextPreset),
		ImageKeys:     keys,
	})
	if err != nil {
		s.genLogger.Error().Err(err).Str("visual_id", visual.ID).Msg("Failed to marshal render job")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.renderTopic, payload); err != nil {
		s.genLogger.Error().Err(err).Str("visual_id", visual.ID).Msg("Failed to publish render job")
	}
}
