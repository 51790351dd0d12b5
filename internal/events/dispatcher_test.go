package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventSLABreached, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("mailer down")
	})
	d.Subscribe(EventSLABreached, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventSurveySent, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventSLABreached, TicketID: "t-1"})

	assert.Error(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestPublishWithoutListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventComplaintCreated}))
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	d := NewInMemoryDispatcher()
	reached := false
	d.Subscribe(EventComplaintEscalated, func(context.Context, Event) error {
		panic("boom")
	})
	d.Subscribe(EventComplaintEscalated, func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventComplaintEscalated})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, reached)
}

func TestPublishStampsIdentity(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	d := NewInMemoryDispatcher(WithClock(func() time.Time { return at }))

	var got Event
	d.Subscribe(EventSurveySent, func(_ context.Context, e Event) error {
		got = e
		return nil
	})
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventSurveySent}))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, at, got.Timestamp)

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventSurveySent, ID: "evt-1"}))
	assert.Equal(t, "evt-1", got.ID)
}
