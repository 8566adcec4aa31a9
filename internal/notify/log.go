package notify

import (
	"context"

	"detailing/internal/events"

	"github.com/rs/zerolog"
)

// Log records events in the application log. It is subscribed when no mail
// transport is configured so submissions are never silently dropped.
type Log struct {
	logger *zerolog.Logger
}

func NewLog(logger *zerolog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Notify(_ context.Context, event events.Event) error {
	e := l.logger.Info().Str("event", string(event.Type)).Str("event_id", event.ID)
	switch {
	case event.Booking != nil:
		e = e.Int64("booking_id", event.Booking.ID).
			Str("customer", event.Booking.CustomerName).
			Str("date", event.Booking.ServiceDate).
			Str("time", event.Booking.ServiceTime).
			Str("contact", event.Booking.ContactInfo())
	case event.Contact != nil:
		e = e.Str("name", event.Contact.Name).Str("email", event.Contact.Email)
	}
	e.Msg("Notification (no transport configured)")
	return nil
}
