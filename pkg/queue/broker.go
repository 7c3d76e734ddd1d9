// Package queue decouples workflow execution requests from the workers
// that run them. Submissions become persisted tasks; a broker carries
// only task ids, so a lost broker message can always be recovered from
// the pending tasks in the store.
package queue

import "context"

// Broker transports task ids from producers to workers.
type Broker interface {
	// Publish hands a task id to the worker side.
	Publish(ctx context.Context, taskID string) error

	// Consume returns a channel of task ids. The channel is closed when
	// ctx is cancelled or the broker shuts down.
	Consume(ctx context.Context) (<-chan string, error)

	Close(ctx context.Context) error
}
