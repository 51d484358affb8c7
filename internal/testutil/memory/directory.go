// Package memory provides in-memory repositories for service tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/project"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/user"
	"github.com/google/uuid"
)

// nextID returns a UUID so stored ids pass request validation. The prefix
// only documents the table at call sites.
func nextID(_ string) string {
	return uuid.NewString()
}

type Users struct {
	mu    sync.RWMutex
	users map[string]user.User
}

func NewUsers(users ...user.User) *Users {
	u := &Users{users: make(map[string]user.User)}
	for _, x := range users {
		u.users[x.ID] = x
	}
	return u
}

func (u *Users) GetByID(_ context.Context, id string) (user.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	x, ok := u.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return x, nil
}

func (u *Users) GetByIDs(_ context.Context, ids []string) ([]user.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	var out []user.User
	for _, id := range ids {
		if x, ok := u.users[id]; ok {
			out = append(out, x)
		}
	}
	return out, nil
}

func (u *Users) ListActive(_ context.Context) ([]user.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	var out []user.User
	for _, x := range u.users {
		if x.IsActive {
			out = append(out, x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type Projects struct {
	projects map[string]project.Project
	owners   map[string][]user.User
}

func NewProjects(projects ...project.Project) *Projects {
	p := &Projects{projects: make(map[string]project.Project), owners: make(map[string][]user.User)}
	for _, x := range projects {
		p.projects[x.ID] = x
	}
	return p
}

// AddOwner records u as an owner of projectID.
func (p *Projects) AddOwner(projectID string, u user.User) {
	p.owners[projectID] = append(p.owners[projectID], u)
}

func (p *Projects) GetByID(_ context.Context, id string) (project.Project, error) {
	x, ok := p.projects[id]
	if !ok {
		return project.Project{}, project.ErrProjectNotFound
	}
	return x, nil
}

func (p *Projects) Exists(_ context.Context, id string) (bool, error) {
	_, ok := p.projects[id]
	return ok, nil
}

func (p *Projects) ListOwners(_ context.Context, projectID string) ([]user.User, error) {
	return p.owners[projectID], nil
}
