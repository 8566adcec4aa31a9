package events

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"detailing/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishFansOutByType(t *testing.T) {
	logger := zerolog.New(io.Discard)
	bus := NewBus(&logger)

	var bookings, contacts atomic.Int32
	bus.Subscribe(NotifierFunc{ID: "bookings", Fn: func(_ context.Context, e Event) error {
		bookings.Add(1)
		assert.NotNil(t, e.Booking)
		return nil
	}}, BookingCreated)
	bus.Subscribe(NotifierFunc{ID: "all", Fn: func(_ context.Context, _ Event) error {
		contacts.Add(1)
		return nil
	}}, BookingCreated, ContactSubmitted)

	require.NoError(t, bus.Publish(context.Background(), NewBookingCreated(&models.Booking{ID: 7})))
	require.NoError(t, bus.Publish(context.Background(), NewContactSubmitted(&models.ContactMessage{Name: "a"})))

	assert.Equal(t, int32(1), bookings.Load())
	assert.Equal(t, int32(2), contacts.Load())
	assert.Equal(t, 2, bus.Subscribers(BookingCreated))
	assert.Equal(t, 1, bus.Subscribers(ContactSubmitted))
}

func TestBus_PublishJoinsErrors(t *testing.T) {
	logger := zerolog.New(io.Discard)
	bus := NewBus(&logger)

	errMail := errors.New("smtp down")
	var delivered atomic.Bool

	bus.Subscribe(NotifierFunc{ID: "mail", Fn: func(context.Context, Event) error { return errMail }}, BookingCreated)
	bus.Subscribe(NotifierFunc{ID: "panicky", Fn: func(context.Context, Event) error { panic("boom") }}, BookingCreated)
	bus.Subscribe(NotifierFunc{ID: "log", Fn: func(context.Context, Event) error {
		delivered.Store(true)
		return nil
	}}, BookingCreated)

	err := bus.Publish(context.Background(), NewBookingCreated(&models.Booking{ID: 1}))
	require.Error(t, err)
	assert.ErrorIs(t, err, errMail)
	assert.Contains(t, err.Error(), "mail: smtp down")
	assert.Contains(t, err.Error(), "panicky: panic: boom")
	assert.True(t, delivered.Load())
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(nil)
	assert.NoError(t, bus.Publish(context.Background(), Event{Type: ContactSubmitted}))
}

func TestEvent_KeyAndPayload(t *testing.T) {
	e := NewBookingCreated(&models.Booking{ID: 12, CustomerName: "Alice"})
	assert.Equal(t, "booking-12", e.Key())

	data, err := e.Payload()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"booking.created"`)
	assert.Contains(t, string(data), `"customerName":"Alice"`)

	c := NewContactSubmitted(&models.ContactMessage{Name: "Bob"})
	assert.Equal(t, c.ID, c.Key())
}
