package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stockops/backend/internal/domain/shared"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, uuid.New(), "TestAggregate"),
		Data:            "test data",
	}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

type panickingHandler struct{}

func (panickingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	panic("boom")
}

func (panickingHandler) EventTypes() []string {
	return []string{"inventory.lot_received"}
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	t.Run("delivers event to subscribed handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := newTestHandler("inventory.lot_received")
		bus.Subscribe(handler)

		event := newTestEvent("inventory.lot_received")
		err := bus.Publish(context.Background(), event)

		require.NoError(t, err)
		require.Len(t, handler.getHandled(), 1)
		assert.Equal(t, event, handler.getHandled()[0])
	})

	t.Run("ignores events with no handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		err := bus.Publish(context.Background(), newTestEvent("sales.backorder_created"))
		assert.NoError(t, err)
	})

	t.Run("handler error does not fail publish or skip other handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := newTestHandler("sales.backorder_created")
		failing.err = errors.New("handler broken")
		healthy := newTestHandler("sales.backorder_created")
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		err := bus.Publish(context.Background(), newTestEvent("sales.backorder_created"))

		require.NoError(t, err)
		assert.Len(t, failing.getHandled(), 1)
		assert.Len(t, healthy.getHandled(), 1)
	})

	t.Run("recovers from a panicking handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		bus.Subscribe(panickingHandler{})
		survivor := newTestHandler("inventory.lot_received")
		bus.Subscribe(survivor)

		err := bus.Publish(context.Background(), newTestEvent("inventory.lot_received"))

		require.NoError(t, err)
		assert.Len(t, survivor.getHandled(), 1)
	})

	t.Run("only matching event types are delivered", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := newTestHandler("inventory.lot_depleted")
		bus.Subscribe(handler)

		err := bus.Publish(context.Background(),
			newTestEvent("inventory.lot_received"),
			newTestEvent("inventory.lot_depleted"),
		)

		require.NoError(t, err)
		require.Len(t, handler.getHandled(), 1)
		assert.Equal(t, "inventory.lot_depleted", handler.getHandled()[0].EventType())
	})
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("inventory.lot_received")
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	err := bus.Publish(context.Background(), newTestEvent("inventory.lot_received"))

	require.NoError(t, err)
	assert.Empty(t, handler.getHandled())
}
