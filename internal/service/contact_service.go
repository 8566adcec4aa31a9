package service

import (
	"context"
	"time"

	"detailing/internal/events"
	"detailing/internal/metrics"
	"detailing/internal/models"

	"github.com/rs/zerolog"
)

// ContactService accepts contact form messages and forwards them to the business.
type ContactService struct {
	validator     *Validator
	publisher     Publisher
	notifyTimeout time.Duration
	logger        *zerolog.Logger
	now           func() time.Time
}

func NewContactService(v *Validator, publisher Publisher, notifyTimeout time.Duration, logger *zerolog.Logger) *ContactService {
	if notifyTimeout <= 0 {
		notifyTimeout = 15 * time.Second
	}
	return &ContactService{
		validator:     v,
		publisher:     publisher,
		notifyTimeout: notifyTimeout,
		logger:        logger,
		now:           time.Now,
	}
}

// SubmitContact validates and timestamps msg, then notifies. A delivery
// failure is logged and the submission still succeeds.
func (s *ContactService) SubmitContact(ctx context.Context, msg *models.ContactMessage) error {
	msg.Normalize()
	if err := s.validator.ValidateContact(msg); err != nil {
		metrics.IncContact("rejected")
		return err
	}
	msg.SubmittedAt = s.now().UTC()

	if s.publisher != nil {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		defer cancel()
		if err := s.publisher.Publish(nctx, events.NewContactSubmitted(msg)); err != nil {
			s.logger.Warn().Err(err).Str("email", msg.Email).Msg("Contact notification failed")
		}
	}

	metrics.IncContact("accepted")
	s.logger.Info().Str("name", msg.Name).Msg("Contact message received")
	return nil
}
