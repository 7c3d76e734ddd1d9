package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	defaultQueueKey  = "fluxion:tasks"
	popTimeout       = 1 * time.Second
	reconnectBackoff = 1 * time.Second
	pingTimeout      = 5 * time.Second
)

// RedisBroker carries task ids through a Redis list, pushed with LPUSH
// and popped with BLPOP so multiple worker processes can share one
// queue.
type RedisBroker struct {
	client redis.UniversalClient
	queue  string
	logger *slog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewRedisBroker(ctx context.Context, logger *slog.Logger, opts *redis.Options, queue string) (*RedisBroker, error) {
	if queue == "" {
		queue = defaultQueueKey
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", opts.Addr, "queue", queue)

	return &RedisBroker{
		client: client,
		queue:  queue,
		logger: logger.With("module", "redis_broker", "queue", queue),
		stopCh: make(chan struct{}),
	}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, taskID string) error {
	if err := b.client.LPush(ctx, b.queue, taskID).Err(); err != nil {
		return fmt.Errorf("failed to push task to queue: %w", err)
	}

	return nil
}

func (b *RedisBroker) Consume(ctx context.Context) (<-chan string, error) {
	out := make(chan string)

	b.wg.Add(1)

	go func() {
		defer b.wg.Done()
		defer close(out)

		for {
			select {
			case <-b.stopCh:
				return
			case <-ctx.Done():
				return
			default:
			}

			result, err := b.client.BLPop(ctx, popTimeout, b.queue).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				if ctx.Err() != nil {
					return
				}

				b.logger.ErrorContext(ctx, "Error popping task from queue", "error", err)
				time.Sleep(reconnectBackoff)

				continue
			}

			if len(result) < 2 {
				continue
			}

			select {
			case out <- result[1]:
			case <-ctx.Done():
				return
			case <-b.stopCh:
				return
			}
		}
	}()

	return out, nil
}

func (b *RedisBroker) Close(ctx context.Context) error {
	close(b.stopCh)
	b.wg.Wait()

	if err := b.client.Close(); err != nil {
		b.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
	}

	return nil
}
