package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-io/fluxion/pkg/channels/gochannel"
	"github.com/fluxion-io/fluxion/pkg/events"
)

func newTestBus(t *testing.T) *WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func baseEvent(bus *WatermillEventBus, eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:         bus.GenerateID(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: "wf-1",
	}
}

func TestPublishAndHandle(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.ExecutionCompleted, 1)

	require.NoError(t, bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, event any) error {
		completed, ok := event.(*events.ExecutionCompleted)
		require.True(t, ok)

		received <- completed

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	err := bus.Publish(t.Context(), "exec-1", events.ExecutionCompleted{
		BaseEvent:   baseEvent(bus, events.ExecutionCompletedEvent),
		ExecutionID: "exec-1",
		Output:      map[string]any{"value": "done"},
		DurationMs:  12,
	})
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, "exec-1", got.ExecutionID)
		assert.Equal(t, "wf-1", got.WorkflowID)
		assert.Equal(t, map[string]any{"value": "done"}, got.Output)
		assert.Equal(t, int64(12), got.DurationMs)
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the handler")
	}
}

func TestUnhandledEventTypeDoesNotBlock(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.ApprovalDecided, 1)

	require.NoError(t, bus.Handle(events.ApprovalDecidedEvent, func(_ context.Context, event any) error {
		decided, ok := event.(*events.ApprovalDecided)
		require.True(t, ok)

		received <- decided

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	// No handler is registered for task events; they are acked and
	// skipped without stalling the subscription.
	err := bus.Publish(t.Context(), "task-1", events.TaskStarted{
		BaseEvent: baseEvent(bus, events.TaskStartedEvent),
		TaskID:    "task-1",
	})
	require.NoError(t, err)

	err = bus.Publish(t.Context(), "appr-1", events.ApprovalDecided{
		BaseEvent:  baseEvent(bus, events.ApprovalDecidedEvent),
		ApprovalID: "appr-1",
		Status:     "APPROVED",
		UserID:     "alice",
	})
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, "appr-1", got.ApprovalID)
		assert.Equal(t, "alice", got.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the handler")
	}
}
