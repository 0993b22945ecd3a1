package users

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort defines data access for user records and role
// assignments.
type RepositoryPort interface {
	Count(ctx context.Context) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	// Create inserts the user and its initial roles atomically. A bootstrap
	// user losing the first-insert race returns ErrBootstrapConflict; a
	// duplicate username returns ErrAlreadyExists.
	Create(ctx context.Context, user User, roles []string) error
	Deactivate(ctx context.Context, id uuid.UUID) error

	// RolesFor resolves the role set for an active user. A deactivated
	// account holds no roles for authorization purposes.
	RolesFor(ctx context.Context, userID uuid.UUID) ([]string, error)
	// AssignRole is idempotent: granting a role the user already holds is a
	// no-op.
	AssignRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)
	// RemoveRole is idempotent: revoking an unheld role is a no-op.
	RemoveRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)
}
