package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"detailing/internal/database"
	"detailing/internal/events"
	"detailing/internal/metrics"
	"detailing/internal/models"
	"detailing/internal/slots"

	"github.com/rs/zerolog"
)

// ErrBookingNotFound is returned by GetBooking for an unknown id.
var ErrBookingNotFound = errors.New("booking not found")

// Ledger is the durable booking store that arbitrates slot ownership.
type Ledger interface {
	IsSlotAvailable(ctx context.Context, date, slotTime string) (bool, error)
	Reserve(ctx context.Context, draft *models.BookingDraft) (*models.Booking, error)
	List(ctx context.Context) ([]models.Booking, error)
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	BookedTimes(ctx context.Context, date string) ([]string, error)
}

// Publisher hands domain events to notifiers.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type BookingService struct {
	ledger        Ledger
	publisher     Publisher
	validator     *Validator
	slots         *slots.Generator
	stages        *StageMachine
	catalog       atomic.Pointer[models.Catalog]
	notifyTimeout time.Duration
	logger        *zerolog.Logger
}

func NewBookingService(
	ledger Ledger,
	publisher Publisher,
	catalog *models.Catalog,
	notifyTimeout time.Duration,
	logger *zerolog.Logger,
) *BookingService {
	if catalog == nil {
		catalog = models.DefaultCatalog()
	}
	if notifyTimeout <= 0 {
		notifyTimeout = 15 * time.Second
	}
	s := &BookingService{
		ledger:        ledger,
		publisher:     publisher,
		slots:         slots.NewGenerator(ledger, time.Local),
		stages:        NewStageMachine(),
		notifyTimeout: notifyTimeout,
		logger:        logger,
	}
	s.catalog.Store(catalog)
	s.validator = NewValidator(s.Catalog)
	return s
}

// Catalog returns the catalog currently used for validation.
func (s *BookingService) Catalog() *models.Catalog {
	return s.catalog.Load()
}

// SetCatalog swaps the catalog; in-flight validations finish with the old one.
func (s *BookingService) SetCatalog(c *models.Catalog) {
	if c == nil {
		return
	}
	s.catalog.Store(c)
	s.logger.Info().
		Int("time_slots", len(c.TimeSlots)).
		Int("services", len(c.Services)).
		Msg("Catalog updated")
}

// WithLocation sets the zone used to decide which slots are in the past.
// Call before serving requests.
func (s *BookingService) WithLocation(loc *time.Location) *BookingService {
	if loc != nil {
		s.slots = slots.NewGenerator(s.ledger, loc)
	}
	return s
}

// Validator exposes the shared validator for other workflows.
func (s *BookingService) Validator() *Validator {
	return s.validator
}

// CheckAvailability reports whether the slot is currently free. The answer
// is advisory; only Reserve decides ownership.
func (s *BookingService) CheckAvailability(ctx context.Context, date, slotTime string) (bool, error) {
	date = strings.TrimSpace(date)
	slotTime = strings.TrimSpace(slotTime)
	if date == "" || slotTime == "" {
		field := "serviceDate"
		if date != "" {
			field = "serviceTime"
		}
		return false, &ValidationError{Field: field, Message: "Service date and time are required"}
	}
	if err := s.validator.ValidateSlot(date, slotTime); err != nil {
		return false, err
	}

	ok, err := s.ledger.IsSlotAvailable(ctx, date, slotTime)
	if err != nil {
		return false, fmt.Errorf("check availability: %w", err)
	}
	return ok, nil
}

// CreateBooking validates the draft, reserves its slot and notifies the
// business. Notification failures are logged and never change the result.
func (s *BookingService) CreateBooking(ctx context.Context, draft *models.BookingDraft) (*models.Booking, error) {
	req := s.stages.NewRequest()
	defer func() { metrics.IncBookingOutcome(string(req.Stage())) }()

	draft.Normalize()
	log := s.logger.With().
		Str("date", draft.ServiceDate).
		Str("time", draft.ServiceTime).
		Logger()

	if err := s.validator.ValidateDraft(draft); err != nil {
		s.advance(req, StageRejectedValidation)
		log.Debug().Err(err).Msg("Booking rejected by validation")
		return nil, err
	}
	s.advance(req, StageValidated)

	available, err := s.ledger.IsSlotAvailable(ctx, draft.ServiceDate, draft.ServiceTime)
	if err != nil {
		s.advance(req, StageFailedStorage)
		log.Error().Err(err).Msg("Availability check failed")
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !available {
		s.advance(req, StageRejectedConflict)
		log.Info().Msg("Slot already booked")
		return nil, ErrSlotUnavailable
	}
	s.advance(req, StageSlotChecked)

	booking, err := s.ledger.Reserve(ctx, draft)
	if err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			s.advance(req, StageRejectedConflict)
			log.Info().Msg("Slot taken by a concurrent booking")
			return nil, ErrSlotUnavailable
		}
		s.advance(req, StageFailedStorage)
		log.Error().Err(err).Msg("Failed to reserve slot")
		return nil, fmt.Errorf("reserve: %w", err)
	}
	s.advance(req, StageReserved)

	log.Info().Int64("booking_id", booking.ID).Msg("Booking created")

	s.notify(ctx, events.NewBookingCreated(booking), log)
	s.advance(req, StageNotificationAttempted)
	s.advance(req, StageCompleted)

	return booking, nil
}

// notify publishes event with its own deadline. The reservation is already
// committed, so caller cancellation must not cut delivery short.
func (s *BookingService) notify(ctx context.Context, event events.Event, log zerolog.Logger) {
	if s.publisher == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	if err := s.publisher.Publish(nctx, event); err != nil {
		log.Warn().Err(err).Str("event", string(event.Type)).Msg("Notification failed")
	}
}

func (s *BookingService) advance(req *Request, to Stage) {
	if err := req.Advance(to); err != nil {
		s.logger.Error().Err(err).Msg("Booking stage error")
	}
}

// ListBookings returns all bookings, newest first.
func (s *BookingService) ListBookings(ctx context.Context) ([]models.Booking, error) {
	bookings, err := s.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := s.ledger.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

// DayAvailability lists every catalog slot for date with its availability.
func (s *BookingService) DayAvailability(ctx context.Context, date string) ([]slots.SlotInfo, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, &ValidationError{Field: "date", Message: "Invalid date; expected YYYY-MM-DD"}
	}
	return s.slots.GenerateSlots(ctx, date, s.Catalog())
}
