package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fluxion-io/fluxion/pkg/queue"
)

// NewBroker creates a task queue broker. An empty URL selects the
// in-process channel broker; a redis:// URL selects Redis.
func NewBroker(ctx context.Context, logger *slog.Logger, queueURL string) (queue.Broker, error) {
	if queueURL == "" {
		return queue.NewChannelBroker(), nil
	}

	opts, err := redis.ParseURL(queueURL)
	if err != nil {
		return nil, fmt.Errorf("parse queue url: %w", err)
	}

	broker, err := queue.NewRedisBroker(ctx, logger, opts, "")
	if err != nil {
		return nil, fmt.Errorf("redis broker: %w", err)
	}

	return broker, nil
}
