package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"detailing/internal/events"
	"detailing/internal/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrPermanent marks a delivery failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent notification failure")

// Permanent wraps err so the dispatcher stops retrying.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// RetryAfterError asks the dispatcher to wait before the next attempt.
type RetryAfterError struct {
	Wait time.Duration
	Err  error
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("retry after %s: %v", e.Wait, e.Err)
}

func (e *RetryAfterError) Unwrap() error { return e.Err }

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		RetryDelays: []time.Duration{
			500 * time.Millisecond,
			2 * time.Second,
		},
	}
}

func (c RetryConfig) delay(attempt int) time.Duration {
	if len(c.RetryDelays) == 0 {
		return 0
	}
	if attempt < len(c.RetryDelays) {
		return c.RetryDelays[attempt]
	}
	return c.RetryDelays[len(c.RetryDelays)-1]
}

// Dispatcher wraps a notifier with a token bucket and bounded retries.
// It satisfies events.Notifier so it can be subscribed to the bus directly.
type Dispatcher struct {
	next    events.Notifier
	limiter *rate.Limiter
	retry   RetryConfig
	logger  *zerolog.Logger
}

// NewDispatcher limits next to perSecond deliveries (burst of the same size).
// perSecond <= 0 disables rate limiting.
func NewDispatcher(next events.Notifier, perSecond int, retry RetryConfig, logger *zerolog.Logger) *Dispatcher {
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = perSecond
	}
	return &Dispatcher{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		retry:   retry,
		logger:  logger,
	}
}

func (d *Dispatcher) Name() string { return d.next.Name() }

// Notify delivers event, retrying transient failures until the retry budget
// or ctx runs out.
func (d *Dispatcher) Notify(ctx context.Context, event events.Event) error {
	name := d.next.Name()

	if err := d.limiter.Wait(ctx); err != nil {
		metrics.IncNotification(name, "rate_limited")
		return fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= d.retry.MaxRetries; attempt++ {
		err := d.next.Notify(ctx, event)
		if err == nil {
			metrics.IncNotification(name, "sent")
			return nil
		}
		lastErr = err

		if errors.Is(err, ErrPermanent) {
			break
		}
		if attempt == d.retry.MaxRetries {
			break
		}

		wait := d.retry.delay(attempt)
		var ra *RetryAfterError
		if errors.As(err, &ra) && ra.Wait > 0 {
			wait = ra.Wait
		}

		metrics.IncNotificationRetry(name)
		d.logger.Info().
			Err(err).
			Str("notifier", name).
			Str("event_id", event.ID).
			Int("attempt", attempt+1).
			Dur("delay", wait).
			Msg("Retrying notification")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			metrics.IncNotification(name, "failed")
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		}
	}

	metrics.IncNotification(name, "failed")
	d.logger.Error().
		Err(lastErr).
		Str("notifier", name).
		Str("event_id", event.ID).
		Msg("Notification failed")
	return lastErr
}
