//go:build integration

// Package testdb starts a throwaway PostgreSQL container with the schema
// applied, for repository tests run with -tags integration.
package testdb

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var tables = []string{
	"user_project_history",
	"project_daily_metrics",
	"user_daily_metrics",
	"daily_attendance",
	"attendance_request_approvals",
	"attendance_requests",
	"work_sessions",
	"project_owners",
	"projects",
	"users",
}

type Handle struct {
	DB   *database.DB
	stop func(context.Context) error
}

func (h *Handle) Close() {
	if h.DB != nil {
		h.DB.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
}

// Start runs postgres, connects through the application pool and applies
// the embedded migrations.
func Start(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:17-alpine"),
		postgres.WithDatabase("worktime"),
		postgres.WithUsername("worktime"),
		postgres.WithPassword("worktime"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, err
	}

	db, err := database.NewPostgreSQLDB(ctx, uri)
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		_ = pg.Terminate(ctx)
		return nil, err
	}

	return &Handle{DB: db, stop: pg.Terminate}, nil
}

// Truncate empties every table between tests.
func (h *Handle) Truncate(t *testing.T) {
	t.Helper()
	_, err := h.DB.Exec(context.Background(), "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE")
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

// SeedUser inserts an active user and returns its id.
func (h *Handle) SeedUser(t *testing.T, email string, role string, weekOffs ...string) string {
	t.Helper()
	if weekOffs == nil {
		weekOffs = []string{}
	}
	var id string
	err := h.DB.QueryRow(context.Background(), `
		INSERT INTO users (name, email, role, week_offs)
		VALUES ($1, $1, $2, $3)
		RETURNING id
	`, email, role, weekOffs).Scan(&id)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

// SeedProject inserts a project and returns its id.
func (h *Handle) SeedProject(t *testing.T, code string) string {
	t.Helper()
	var id string
	err := h.DB.QueryRow(context.Background(), `
		INSERT INTO projects (code, name) VALUES ($1, $1) RETURNING id
	`, code).Scan(&id)
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return id
}
