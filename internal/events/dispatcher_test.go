package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInvokesSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var seen []EventType
	dispatcher.Subscribe(EventIncidentCreated, func(_ context.Context, event Event) error {
		seen = append(seen, event.Type)
		return nil
	})
	dispatcher.Subscribe(EventIncidentClosed, func(_ context.Context, event Event) error {
		seen = append(seen, event.Type)
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{
		ID:         uuid.NewString(),
		Type:       EventIncidentCreated,
		IncidentID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, []EventType{EventIncidentCreated}, seen)
}

func TestPublishContinuesPastFailingHandler(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	boom := errors.New("handler down")
	var secondRan bool
	dispatcher.Subscribe(EventIncidentUpdated, func(context.Context, Event) error { return boom })
	dispatcher.Subscribe(EventIncidentUpdated, func(context.Context, Event) error {
		secondRan = true
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventIncidentUpdated})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, secondRan)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventIncidentClosed}))
}
