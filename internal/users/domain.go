// Package users manages user accounts and their role assignments,
// including the one-time bootstrap path that creates the first
// administrator.
package users

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account.
type User struct {
	ID           uuid.UUID
	Username     string
	Name         string
	PasswordHash string
	IsActive     bool
	IsBootstrap  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
