package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishFansOutByType(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())

	var assigned, escalated []Event
	dispatcher.Subscribe(EventTicketAssigned, func(_ context.Context, e Event) error {
		assigned = append(assigned, e)
		return nil
	})
	dispatcher.Subscribe(EventTicketAssigned, func(_ context.Context, e Event) error {
		assigned = append(assigned, e)
		return nil
	})
	dispatcher.Subscribe(EventTicketEscalated, func(_ context.Context, e Event) error {
		escalated = append(escalated, e)
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{ID: "ev-1", Type: EventTicketAssigned, TicketID: "t-1"})
	require.NoError(t, err)

	require.Len(t, assigned, 2)
	assert.Equal(t, "t-1", assigned[0].TicketID)
	assert.Empty(t, escalated)
}

func TestPublishSurvivesFailingHandler(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())

	var order []string
	dispatcher.Subscribe(EventSlaBreached, func(context.Context, Event) error {
		order = append(order, "first")
		return errors.New("handler broke")
	})
	dispatcher.Subscribe(EventSlaBreached, func(context.Context, Event) error {
		order = append(order, "second")
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventSlaBreached})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPublishRecoversPanickingHandler(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())

	var reached bool
	dispatcher.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		panic("boom")
	})
	dispatcher.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		reached = true
		return nil
	})

	require.NotPanics(t, func() {
		_ = dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated})
	})
	assert.True(t, reached)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())

	err := dispatcher.Publish(context.Background(), Event{Type: EventTicketClosed})
	assert.NoError(t, err)
}
