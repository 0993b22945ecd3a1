package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/sentinel-iam/sentinel/internal/audit"
	"github.com/sentinel-iam/sentinel/internal/platform/httpx"
	"github.com/sentinel-iam/sentinel/internal/rbac"
)

// PasswordHasher produces an opaque one-way hash of a plaintext password.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// Service handles user lifecycle and role assignment, including the
// bootstrap arbitration that admits exactly one unauthenticated
// administrator creation while the store is empty.
type Service struct {
	repo    RepositoryPort
	catalog *rbac.Catalog
	engine  *rbac.Engine
	hasher  PasswordHasher
	auditor *audit.Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, catalog *rbac.Catalog, engine *rbac.Engine, hasher PasswordHasher, auditor *audit.Recorder) *Service {
	return &Service{repo: repo, catalog: catalog, engine: engine, hasher: hasher, auditor: auditor}
}

// CreateInput carries a user creation request.
type CreateInput struct {
	Username string
	Name     string
	Password string
	Roles    []string
}

// NormalizeUsername canonicalizes a username: NFC, lowercase, trimmed.
// Login and creation both go through this so lookups agree byte for byte.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(username)))
}

// Create registers a new user.
//
// With no principal the request is a bootstrap attempt: it is admitted only
// while the store is empty, re-checked on every call, and the storage-level
// uniqueness constraint guarantees at most one such insert ever commits.
// With a principal the request is an ordinary permission-gated action and
// the bootstrap state is irrelevant.
func (s *Service) Create(ctx context.Context, principal *rbac.Principal, input CreateInput) (*User, error) {
	username := NormalizeUsername(input.Username)

	bootstrap := principal == nil
	roles := input.Roles
	if bootstrap {
		count, err := s.repo.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: user count: %v", httpx.ErrUnavailable, err)
		}
		if count > 0 {
			return nil, httpx.ErrUnauthenticated
		}
		// The first account is always an administrator.
		roles = []string{rbac.RoleAdmin}
	} else {
		if err := s.engine.Decide(ctx, principal, rbac.PermUsersEdit); err != nil {
			return nil, err
		}
		if len(roles) == 0 {
			roles = []string{rbac.RoleUser}
		}
		for _, role := range roles {
			if !s.catalog.Knows(role) {
				return nil, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
			}
		}
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		ID:           uuid.New(),
		Username:     username,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		IsActive:     true,
		IsBootstrap:  bootstrap,
	}
	if err := s.repo.Create(ctx, user, roles); err != nil {
		switch {
		case errors.Is(err, ErrBootstrapConflict), errors.Is(err, ErrAlreadyExists):
			return nil, fmt.Errorf("%w: %v", httpx.ErrConflict, err)
		default:
			return nil, fmt.Errorf("%w: create user: %v", httpx.ErrUnavailable, err)
		}
	}

	action := audit.ActionUserCreated
	var actor uuid.UUID
	if bootstrap {
		action = audit.ActionBootstrapCreated
	} else {
		actor = principal.ID
	}
	s.auditor.Record(ctx, audit.Event{ActorID: actor, Action: action, Subject: user.ID.String()})
	return &user, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find user: %v", httpx.ErrUnavailable, err)
	}
	return user, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", httpx.ErrUnavailable, err)
	}
	return users, nil
}

// Deactivate disables an account. Deactivated users keep their records but
// can no longer authenticate.
func (s *Service) Deactivate(ctx context.Context, actor *rbac.Principal, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpx.ErrNotFound
		}
		return fmt.Errorf("%w: deactivate user: %v", httpx.ErrUnavailable, err)
	}
	s.auditor.Record(ctx, audit.Event{ActorID: actorID(actor), Action: audit.ActionUserDeactivated, Subject: id.String()})
	return nil
}

// AssignRole grants a role to a user. Granting a role the user already
// holds succeeds as a no-op, so the call is safe to retry.
func (s *Service) AssignRole(ctx context.Context, actor *rbac.Principal, userID uuid.UUID, role string) error {
	if !s.catalog.Knows(role) {
		return fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	changed, err := s.repo.AssignRole(ctx, userID, role)
	if err != nil {
		return fmt.Errorf("%w: assign role: %v", httpx.ErrUnavailable, err)
	}
	if changed {
		s.auditor.Record(ctx, audit.Event{ActorID: actorID(actor), Action: audit.ActionRoleGranted, Subject: userID.String(), Meta: map[string]any{"role": role}})
	}
	return nil
}

// RemoveRole revokes a role from a user. Revoking an unheld role succeeds
// as a no-op.
func (s *Service) RemoveRole(ctx context.Context, actor *rbac.Principal, userID uuid.UUID, role string) error {
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	changed, err := s.repo.RemoveRole(ctx, userID, role)
	if err != nil {
		return fmt.Errorf("%w: remove role: %v", httpx.ErrUnavailable, err)
	}
	if changed {
		s.auditor.Record(ctx, audit.Event{ActorID: actorID(actor), Action: audit.ActionRoleRevoked, Subject: userID.String(), Meta: map[string]any{"role": role}})
	}
	return nil
}

// Roles lists the roles assigned to a user.
func (s *Service) Roles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	roles, err := s.repo.RolesFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: role lookup: %v", httpx.ErrUnavailable, err)
	}
	return roles, nil
}

// Permissions resolves the effective permission names for a user.
func (s *Service) Permissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.engine.EffectivePermissions(ctx, userID)
}

func actorID(p *rbac.Principal) uuid.UUID {
	if p == nil {
		return uuid.Nil
	}
	return p.ID
}
