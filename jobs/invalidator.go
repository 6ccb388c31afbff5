package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// AsynqInvalidator hands cache invalidation to the worker queue so role
// mutations return without waiting on cache round-trips.
type AsynqInvalidator struct {
	client *asynq.Client
}

// NewAsynqInvalidator constructs an AsynqInvalidator.
func NewAsynqInvalidator(client *asynq.Client) *AsynqInvalidator {
	return &AsynqInvalidator{client: client}
}

// InvalidateUsers enqueues the invalidation task.
func (i *AsynqInvalidator) InvalidateUsers(ctx context.Context, userIDs []int64) error {
	task, err := NewInvalidateUsersTask(InvalidateUsersPayload{UserIDs: userIDs})
	if err != nil {
		return err
	}
	if _, err := i.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		return fmt.Errorf("jobs: enqueue invalidation: %w", err)
	}
	return nil
}
