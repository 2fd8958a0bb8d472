package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIdentityRefresh reloads the identity snapshot from Postgres.
	TaskIdentityRefresh = "identity:refresh"
	// TaskNavCacheWarm repopulates the navigation projection cache.
	TaskNavCacheWarm = "features:nav_warm"
	// TaskFeatureReload reloads the feature registry from Postgres.
	TaskFeatureReload = "features:reload"
)

// IdentityRefreshPayload carries options for the identity refresh task.
type IdentityRefreshPayload struct {
	Reason string `json:"reason"`
}

// NewIdentityRefreshTask constructs an Asynq task.
func NewIdentityRefreshTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(IdentityRefreshPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdentityRefresh, data), nil
}

// NavCacheWarmPayload carries options for the navigation warm task.
type NavCacheWarmPayload struct {
	Reason string `json:"reason"`
}

// NewNavCacheWarmTask constructs an Asynq task.
func NewNavCacheWarmTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(NavCacheWarmPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNavCacheWarm, data), nil
}

// FeatureReloadPayload carries options for the feature reload task.
type FeatureReloadPayload struct {
	Reason string `json:"reason"`
}

// NewFeatureReloadTask constructs an Asynq task.
func NewFeatureReloadTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(FeatureReloadPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFeatureReload, data), nil
}
