package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/flutterbye/platform/internal/features"
)

// FeatureReloadJob reloads the feature registry from Postgres and drops
// the cached navigation projection so the next read sees fresh data.
type FeatureReloadJob struct {
	registry *features.Registry
	navCache *features.NavCache
	logger   *slog.Logger
}

// NewFeatureReloadJob constructs the job.
func NewFeatureReloadJob(registry *features.Registry, navCache *features.NavCache, logger *slog.Logger) *FeatureReloadJob {
	return &FeatureReloadJob{registry: registry, navCache: navCache, logger: logger}
}

// Handle processes TaskFeatureReload tasks.
func (j *FeatureReloadJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload FeatureReloadPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := j.registry.Load(ctx); err != nil {
		j.logger.Error("feature reload failed", slog.Any("error", err))
		return err
	}
	if j.navCache != nil {
		j.navCache.Invalidate(ctx)
	}
	j.logger.Info("feature registry reloaded", slog.String("reason", payload.Reason))
	return nil
}

// NavCacheWarmJob repopulates the navigation cache ahead of traffic.
type NavCacheWarmJob struct {
	registry *features.Registry
	navCache *features.NavCache
	logger   *slog.Logger
}

// NewNavCacheWarmJob constructs the job.
func NewNavCacheWarmJob(registry *features.Registry, navCache *features.NavCache, logger *slog.Logger) *NavCacheWarmJob {
	return &NavCacheWarmJob{registry: registry, navCache: navCache, logger: logger}
}

// Handle processes TaskNavCacheWarm tasks.
func (j *NavCacheWarmJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload NavCacheWarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if _, err := j.navCache.Fetch(ctx, j.registry); err != nil {
		j.logger.Warn("navigation warm failed", slog.Any("error", err))
		return err
	}
	j.logger.Info("navigation cache warmed", slog.String("reason", payload.Reason))
	return nil
}
