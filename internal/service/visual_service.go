package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"piktor/internal/model"
	"piktor/internal/repository"
	"piktor/internal/storage"
)

// VisualDetail is a visual with its variations and edit history attached.
type VisualDetail struct {
	Visual model.Visual          `json:"visual"`
	Images []model.GeneratedImage `json:"images"`
	Edits  []model.ImageEdit     `json:"edits"`
}

type VisualService interface {
	ListVisuals(ctx context.Context, userID, projectID string, limit, offset int) ([]model.Visual, error)
	GetVisual(ctx context.Context, userID, visualID string) (*VisualDetail, error)
	RenameVisual(ctx context.Context, userID, visualID, name string) error
	DeleteVisual(ctx context.Context, userID, visualID string) error
	// RecordView bumps the view counter. Best-effort: failures are logged
	// and the call always succeeds from the caller's perspective.
	RecordView(ctx context.Context, visualID string)
	// GetDownloadURL returns a presigned URL for one stored object and bumps
	// the download counter best-effort.
	GetDownloadURL(ctx context.Context, userID, visualID, storagePath string) (string, error)
	GetDashboardStats(ctx context.Context, userID string) (*model.DashboardStats, error)
}

type visualService struct {
	visualRepo repository.VisualRepository
	imageRepo  repository.ImageRepository
	editRepo   repository.EditRepository
	statsRepo  repository.StatsRepository
	store      ObjectStore
	visLogger  zerolog.Logger
}

func NewVisualService(
	visualRepo repository.VisualRepository,
	imageRepo repository.ImageRepository,
	editRepo repository.EditRepository,
	statsRepo repository.StatsRepository,
	store ObjectStore,
	logger zerolog.Logger,
) VisualService {
	return &visualService{
		visualRepo: visualRepo,
		imageRepo:  imageRepo,
		editRepo:   editRepo,
		statsRepo:  statsRepo,
		store:      store,
		visLogger:  logger.With().Str("service", "VisualService").Logger(),
	}
}

func (s *visualService) ListVisuals(ctx context.Context, userID, projectID string, limit, offset int) ([]model.Visual, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.visualRepo.ListVisualsByUser(ctx, userID, projectID, limit, offset)
}

func (s *visualService) GetVisual(ctx context.Context, userID, visualID string) (*VisualDetail, error) {
	visual, err := s.ownedVisual(ctx, userID, visualID)
	if err != nil {
		return nil, err
	}
	images, err := s.imageRepo.ListImagesByVisual(ctx, visualID)
	if err != nil {
		return nil, err
	}
	edits, err := s.editRepo.ListEditsByVisual(ctx, visualID)
	if err != nil {
		return nil, err
	}
	return &VisualDetail{Visual: *visual, Images: images, Edits: edits}, nil
}

func (s *visualService) RenameVisual(ctx context.Context, userID, visualID, name string) error {
	if _, err := s.ownedVisual(ctx, userID, visualID); err != nil {
		return err
	}
	return s.visualRepo.RenameVisual(ctx, visualID, name)
}

// DeleteVisual removes the stored objects and then the database rows. Object
// deletion failures are logged but do not block the row delete; orphaned
// objects are cheaper than a visual the user cannot remove.
func (s *visualService) DeleteVisual(ctx context.Context, userID, visualID string) error {
	visual, err := s.ownedVisual(ctx, userID, visualID)
	if err != nil {
		return err
	}

	projectID := ""
	if visual.ProjectID != nil {
		projectID = *visual.ProjectID
	}
	prefix := storage.VisualPrefix(userID, projectID, visualID)
	if err := s.store.DeletePrefix(ctx, prefix); err != nil {
		s.visLogger.Error().Err(err).Str("prefix", prefix).Msg("Failed to delete stored objects for visual")
	}

	if err := s.visualRepo.DeleteVisual(ctx, visualID); err != nil {
		return fmt.Errorf("delete visual %s: %w", visualID, err)
	}
	return nil
}

func (s *visualService) RecordView(ctx context.Context, visualID string) {
	if err := s.statsRepo.IncrementViews(ctx, visualID); err != nil {
		s.visLogger.Error().Err(err).Str("visual_id", visualID).Msg("Failed to record view")
	}
}

func (s *visualService) GetDownloadURL(ctx context.Context, userID, visualID, storagePath string) (string, error) {
	visual, err := s.ownedVisual(ctx, userID, visualID)
	if err != nil {
		return "", err
	}

	prefix := storage.VisualPrefix(userID, derefProject(visual), visualID)
	if len(storagePath) < len(prefix) || storagePath[:len(prefix)] != prefix {
		return "", ErrNotOwner
	}

	url, err := s.store.PresignGet(ctx, storagePath)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}

	if err := s.statsRepo.IncrementDownloads(ctx, visualID); err != nil {
		s.visLogger.Error().Err(err).Str("visual_id", visualID).Msg("Failed to record download")
	}
	return url, nil
}

func (s *visualService) GetDashboardStats(ctx context.Context, userID string) (*model.DashboardStats, error) {
	stats, err := s.statsRepo.GetDashboardStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Storage usage comes from its own SQL function; the aggregate row does
	// not track object sizes.
	if bytes, err := s.statsRepo.GetStorageUsageBytes(ctx, userID); err != nil {
		s.visLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to read storage usage")
	} else {
		stats.StorageBytes = int(bytes)
	}
	return stats, nil
}

func (s *visualService) ownedVisual(ctx context.Context, userID, visualID string) (*model.Visual, error) {
	visual, err := s.visualRepo.GetVisualByID(ctx, visualID)
	if err != nil {
		return nil, err
	}
	if visual == nil {
		return nil, ErrVisualNotFound
	}
	if visual.UserID != userID {
		return nil, ErrNotOwner
	}
	return visual, nil
}

func derefProject(v *model.Visual) string {
	if v.ProjectID != nil {
		return *v.ProjectID
	}
	return ""
}
