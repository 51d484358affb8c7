package project

import (
	"context"
	"errors"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/user"
)

var ErrProjectNotFound = errors.New("project not found")

type Project struct {
	ID        string
	Code      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectRepository is a read-only view of the project directory.
type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (Project, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListOwners(ctx context.Context, projectID string) ([]user.User, error)
}
