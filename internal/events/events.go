package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"detailing/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Type names a domain event.
type Type string

const (
	BookingCreated   Type = "booking.created"
	ContactSubmitted Type = "contact.submitted"
)

// Event is a domain event handed to notifiers. Exactly one of Booking or
// Contact is set, matching Type.
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	Booking   *models.Booking        `json:"booking,omitempty"`
	Contact   *models.ContactMessage `json:"contact,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// NewBookingCreated wraps a freshly reserved booking.
func NewBookingCreated(b *models.Booking) Event {
	return Event{ID: uuid.NewString(), Type: BookingCreated, Booking: b, CreatedAt: time.Now()}
}

// NewContactSubmitted wraps a contact form message.
func NewContactSubmitted(m *models.ContactMessage) Event {
	return Event{ID: uuid.NewString(), Type: ContactSubmitted, Contact: m, CreatedAt: time.Now()}
}

// Key is the partitioning key used by stream publishers.
func (e Event) Key() string {
	if e.Booking != nil {
		return fmt.Sprintf("booking-%d", e.Booking.ID)
	}
	return e.ID
}

// Payload encodes the event as JSON.
func (e Event) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier delivers events to an outside party (mail, chat, spreadsheet, stream).
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc struct {
	ID string
	Fn func(ctx context.Context, event Event) error
}

func (f NotifierFunc) Name() string { return f.ID }

func (f NotifierFunc) Notify(ctx context.Context, event Event) error { return f.Fn(ctx, event) }

// Bus fans events out to the notifiers subscribed to their type.
type Bus struct {
	subscribers map[Type][]Notifier
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewBus constructs an empty bus.
func NewBus(logger *zerolog.Logger) *Bus {
	return &Bus{subscribers: make(map[Type][]Notifier), logger: logger}
}

// Subscribe registers n for the given event types.
func (b *Bus) Subscribe(n Notifier, types ...Type) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range types {
		b.subscribers[t] = append(b.subscribers[t], n)
	}
}

// Subscribers returns how many notifiers listen for t.
func (b *Bus) Subscribers(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[t])
}

// Publish delivers the event to every subscriber concurrently and waits for
// all of them. Failures are joined; one notifier failing does not stop the others.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	notifiers := append([]Notifier(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if len(notifiers) == 0 {
		return nil
	}

	errs := make([]error, len(notifiers))
	var wg sync.WaitGroup
	for i, n := range notifiers {
		wg.Add(1)
		go func(i int, n Notifier) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("%s: panic: %v", n.Name(), r)
				}
			}()
			if err := n.Notify(ctx, event); err != nil {
				errs[i] = fmt.Errorf("%s: %w", n.Name(), err)
			}
		}(i, n)
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil && b.logger != nil {
		b.logger.Debug().Err(err).Str("event", string(event.Type)).Msg("Some notifiers failed")
	}
	return err
}
