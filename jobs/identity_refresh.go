package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/flutterbye/platform/internal/identity"
)

// IdentityRefreshJob reloads every known identity from Postgres so the
// in-memory snapshot stays consistent with out-of-band role changes.
type IdentityRefreshJob struct {
	store  *identity.Store
	logger *slog.Logger
}

// NewIdentityRefreshJob constructs the job.
func NewIdentityRefreshJob(store *identity.Store, logger *slog.Logger) *IdentityRefreshJob {
	return &IdentityRefreshJob{store: store, logger: logger}
}

// Handle processes TaskIdentityRefresh tasks.
func (j *IdentityRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IdentityRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := j.store.Warm(ctx); err != nil {
		j.logger.Error("identity refresh failed", slog.Any("error", err))
		return err
	}
	j.logger.Info("identity snapshot refreshed", slog.String("reason", payload.Reason))
	return nil
}
