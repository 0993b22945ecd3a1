package rbac

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sentinel-iam/sentinel/internal/platform/httpx"
)

// RoleSource reads the role names held by a user. The engine only ever
// reads assignments; mutation is a regular gated operation elsewhere.
type RoleSource interface {
	RolesFor(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Engine produces allow/deny decisions for authenticated requests. It holds
// no mutable state; the catalog is immutable and the role source is a
// bounded remote lookup.
type Engine struct {
	catalog *Catalog
	roles   RoleSource
}

// NewEngine constructs an Engine.
func NewEngine(catalog *Catalog, roles RoleSource) *Engine {
	return &Engine{catalog: catalog, roles: roles}
}

// Decide checks whether the principal may perform an operation requiring
// the given permission. A nil principal always denies with an
// authentication failure. A failure of the role lookup itself is not a
// denial: it surfaces as unavailable so clients can tell "you lack
// permission" from "we could not determine your permission".
func (e *Engine) Decide(ctx context.Context, principal *Principal, required Permission) error {
	if principal == nil {
		return httpx.ErrUnauthenticated
	}
	roles, err := e.roles.RolesFor(ctx, principal.ID)
	if err != nil {
		return fmt.Errorf("%w: role lookup: %v", httpx.ErrUnavailable, err)
	}
	if _, ok := e.catalog.Union(roles)[required]; !ok {
		return httpx.ErrForbidden
	}
	return nil
}

// EffectivePermissions resolves the deduplicated permission names granted
// to a user through role membership.
func (e *Engine) EffectivePermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	roles, err := e.roles.RolesFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: role lookup: %v", httpx.ErrUnavailable, err)
	}
	union := e.catalog.Union(roles)
	perms := make([]string, 0, len(union))
	for p := range union {
		perms = append(perms, string(p))
	}
	return perms, nil
}
