// Package jobs defines the background task types and the worker that
// processes them.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/aegis-admin/aegis/internal/rbac"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRBACInvalidateUsers drops cached permission sets after a role
	// mutation changed what the assigned users may do.
	TaskRBACInvalidateUsers = "rbac:invalidate_users"
)

// InvalidateUsersPayload carries the users whose cache entries must go.
type InvalidateUsersPayload struct {
	UserIDs []int64 `json:"userIds"`
}

// NewInvalidateUsersTask constructs an Asynq task.
func NewInvalidateUsersTask(payload InvalidateUsersPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRBACInvalidateUsers, data), nil
}

// InvalidateUsersJob processes TaskRBACInvalidateUsers tasks.
type InvalidateUsersJob struct {
	cache  *rbac.Cache
	logger *slog.Logger
}

// NewInvalidateUsersJob constructs the handler.
func NewInvalidateUsersJob(cache *rbac.Cache, logger *slog.Logger) *InvalidateUsersJob {
	return &InvalidateUsersJob{cache: cache, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *InvalidateUsersJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.cache == nil {
		return errors.New("invalidate users: handler not configured")
	}
	var payload InvalidateUsersPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if len(payload.UserIDs) == 0 {
		return nil
	}
	if err := j.cache.InvalidateUsers(ctx, payload.UserIDs); err != nil {
		return err
	}
	if j.logger != nil {
		j.logger.Info("invalidated permission caches", slog.Int("users", len(payload.UserIDs)))
	}
	return nil
}
