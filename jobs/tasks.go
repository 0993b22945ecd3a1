// Package jobs wires background processing for the identity service. The
// only recurring task today is the audit retention purge.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sentinel-iam/sentinel/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPurge removes audit events older than the retention window.
	TaskAuditPurge = "audit:purge"
)

// AuditPurgePayload carries the retention window for one purge run.
type AuditPurgePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditPurgeTask constructs an Asynq task.
func NewAuditPurgeTask(payload AuditPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPurge, data), nil
}

// AuditPurgeHandler processes TaskAuditPurge tasks.
func AuditPurgeHandler(recorder *audit.Recorder, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditPurgePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Retention <= 0 {
			return asynq.SkipRetry
		}
		removed, err := recorder.Purge(ctx, payload.Retention)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("audit purge", slog.Int64("removed", removed))
		}
		return nil
	}
}
