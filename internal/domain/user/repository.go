package user

import (
	"context"
)

// UserRepository is a read-only view of the user directory.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByIDs(ctx context.Context, ids []string) ([]User, error)
	ListActive(ctx context.Context) ([]User, error)
}
