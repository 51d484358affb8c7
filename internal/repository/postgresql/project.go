package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/project"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type projectRepositoryImpl struct {
	db *database.DB
}

func NewProjectRepository(db *database.DB) project.ProjectRepository {
	return &projectRepositoryImpl{db: db}
}

// GetByID implements project.ProjectRepository.
func (r *projectRepositoryImpl) GetByID(ctx context.Context, id string) (project.Project, error) {
	q := GetQuerier(ctx, r.db)

	var p project.Project
	err := q.QueryRow(ctx, `
		SELECT id, code, name, created_at, updated_at
		FROM projects
		WHERE id = $1`, id).Scan(&p.ID, &p.Code, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return project.Project{}, project.ErrProjectNotFound
		}
		return project.Project{}, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// Exists implements project.ProjectRepository.
func (r *projectRepositoryImpl) Exists(ctx context.Context, id string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check project: %w", err)
	}
	return exists, nil
}

// ListOwners implements project.ProjectRepository.
func (r *projectRepositoryImpl) ListOwners(ctx context.Context, projectID string) ([]user.User, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT u.id, u.name, u.email, u.role, u.manager_id, u.week_offs, u.is_active, u.created_at, u.updated_at
		FROM project_owners po
		INNER JOIN users u ON u.id = po.user_id
		WHERE po.project_id = $1
		ORDER BY u.name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project owners: %w", err)
	}
	return collectUsers(rows)
}
