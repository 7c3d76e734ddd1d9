package queue

import (
	"context"
	"errors"
	"sync"
)

const channelBufferSize = 256

// ChannelBroker is an in-process broker used for single-binary
// deployments and tests.
type ChannelBroker struct {
	ch     chan string
	mu     sync.Mutex
	closed bool
}

func NewChannelBroker() *ChannelBroker {
	return &ChannelBroker{ch: make(chan string, channelBufferSize)}
}

func (b *ChannelBroker) Publish(ctx context.Context, taskID string) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()

		return errors.New("broker closed")
	}
	b.mu.Unlock()

	select {
	case b.ch <- taskID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *ChannelBroker) Consume(_ context.Context) (<-chan string, error) {
	return b.ch, nil
}

func (b *ChannelBroker) Close(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.ch)
	}

	return nil
}
