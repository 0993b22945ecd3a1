// Package rbac holds the authorization core: the static role catalog, the
// per-request decision engine, and the HTTP middleware that feeds it.
package rbac

import "github.com/google/uuid"

// Permission is an atomic, checkable capability.
type Permission string

// Capabilities understood by the platform.
const (
	PermUsersView   Permission = "users.view"
	PermUsersEdit   Permission = "users.edit"
	PermRolesView   Permission = "roles.view"
	PermRolesAssign Permission = "roles.assign"
)

// Role names. Roles are predefined; nothing creates or deletes them at
// runtime.
const (
	RoleAdmin   = "admin"
	RoleUser    = "user"
	RoleAuditor = "auditor"
)

// Principal is the identity resolved from a validated bearer token. It is
// rebuilt from the token on every request and never cached server side.
type Principal struct {
	ID uuid.UUID
}
