// Package audit records security-relevant events (logins, bootstrap
// creation, role changes) for later review. Recording is best effort: an
// audit failure never fails the request that triggered it.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event actions written by the platform.
const (
	ActionLoginSucceeded   = "auth.login.succeeded"
	ActionLoginFailed      = "auth.login.failed"
	ActionBootstrapCreated = "users.bootstrap.created"
	ActionUserCreated      = "users.created"
	ActionUserDeactivated  = "users.deactivated"
	ActionRoleGranted      = "roles.granted"
	ActionRoleRevoked      = "roles.revoked"
)

// Event is a single audit record.
type Event struct {
	ActorID uuid.UUID
	Action  string
	Subject string
	Meta    map[string]any
	At      time.Time
}

// Recorder writes events into audit_events.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRecorder returns a Recorder. A nil pool disables persistence, which
// tests rely on.
func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger) *Recorder {
	return &Recorder{pool: pool, logger: logger}
}

// Record persists the event, logging instead of failing on error.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil || r.pool == nil {
		return
	}
	if err := r.insert(ctx, event); err != nil && r.logger != nil {
		r.logger.Warn("audit record", slog.String("action", event.Action), slog.Any("error", err))
	}
}

func (r *Recorder) insert(ctx context.Context, event Event) error {
	if event.Action == "" {
		return errors.New("audit: action required")
	}
	meta, err := json.Marshal(event.Meta)
	if err != nil {
		return err
	}
	var actor any
	if event.ActorID != uuid.Nil {
		actor = event.ActorID
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_events (actor_id, action, subject, meta, occurred_at) VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, '0001-01-01 00:00:00Z'::timestamptz), NOW()))`,
		actor, event.Action, event.Subject, meta, event.At)
	return err
}

// Purge removes events older than the retention window. The background
// worker calls this on a schedule.
func (r *Recorder) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention)
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
