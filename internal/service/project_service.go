package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"piktor/internal/model"
	"piktor/internal/repository"
)

type ProjectService interface {
	Create(ctx context.Context, userID, name string) (*model.Project, error)
	List(ctx context.Context, userID string) ([]model.Project, error)
	Rename(ctx context.Context, userID, projectID, name string) error
	// Delete removes the project. Its visuals are reassigned to the
	// dashboard by the projects table's ON DELETE SET NULL.
	Delete(ctx context.Context, userID, projectID string) error
}

type projectService struct {
	repo       repository.ProjectRepository
	projLogger zerolog.Logger
}

func NewProjectService(repo repository.ProjectRepository, logger zerolog.Logger) ProjectService {
	return &projectService{
		repo:       repo,
		projLogger: logger.With().Str("service", "ProjectService").Logger(),
	}
}

func (s *projectService) Create(ctx context.Context, userID, name string) (*model.Project, error) {
	project := &model.Project{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   strings.TrimSpace(name),
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		s.projLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to create project")
		return nil, err
	}
	return project, nil
}

func (s *projectService) List(ctx context.Context, userID string) ([]model.Project, error) {
	return s.repo.ListProjectsByUser(ctx, userID)
}

func (s *projectService) Rename(ctx context.Context, userID, projectID, name string) error {
	if _, err := s.owned(ctx, userID, projectID); err != nil {
		return err
	}
	return s.repo.RenameProject(ctx, projectID, strings.TrimSpace(name))
}

func (s *projectService) Delete(ctx context.Context, userID, projectID string) error {
	if _, err := s.owned(ctx, userID, projectID); err != nil {
		return err
	}
	return s.repo.DeleteProject(ctx, projectID)
}

func (s *projectService) owned(ctx context.Context, userID, projectID string) (*model.Project, error) {
	project, err := s.repo.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	if project.UserID != userID {
		return nil, ErrNotOwner
	}
	return project, nil
}
