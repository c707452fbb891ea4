package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"piktor/internal/model"
)

type ProjectRepository interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProjectByID(ctx context.Context, projectID string) (*model.Project, error)
	ListProjectsByUser(ctx context.Context, userID string) ([]model.Project, error)
	RenameProject(ctx context.Context, projectID, name string) error
	DeleteProject(ctx context.Context, projectID string) error
}

type projectRepo struct {
	db *sql.DB
}

func NewProjectRepo(db *sql.DB) ProjectRepository {
	return &projectRepo{db: db}
}

func (r *projectRepo) CreateProject(ctx context.Context, p *model.Project) error {
	query := `INSERT INTO projects (id, user_id, name)
              VALUES ($1, $2, $3) RETURNING created_at, updated_at`
	if err := r.db.QueryRowContext(ctx, query, p.ID, p.UserID, p.Name).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *projectRepo) GetProjectByID(ctx context.Context, projectID string) (*model.Project, error) {
	var p model.Project
	query := `SELECT id, user_id, name, created_at, updated_at FROM projects WHERE id=$1`
	row := r.db.QueryRowContext(ctx, query, projectID)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch project %s: %w", projectID, err)
	}
	return &p, nil
}

func (r *projectRepo) ListProjectsByUser(ctx context.Context, userID string) ([]model.Project, error) {
	query := `SELECT id, user_id, name, created_at, updated_at
              FROM projects WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects for user %s: %w", userID, err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return projects, nil
}

func (r *projectRepo) RenameProject(ctx context.Context, projectID, name string) error {
	query := `UPDATE projects SET name=$1, updated_at=NOW() WHERE id=$2`
	if _, err := r.db.ExecContext(ctx, query, name, projectID); err != nil {
		return fmt.Errorf("rename project %s: %w", projectID, err)
	}
	return nil
}

func (r *projectRepo) DeleteProject(ctx context.Context, projectID string) error {
	query := `DELETE FROM projects WHERE id=$1`
	if _, err := r.db.ExecContext(ctx, query, projectID); err != nil {
		return fmt.Errorf("delete project %s: %w", projectID, err)
	}
	return nil
}
