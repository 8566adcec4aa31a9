package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"detailing/internal/export"
	"detailing/internal/models"

	"github.com/rs/zerolog"
)

// BookingLister returns every stored booking.
type BookingLister interface {
	List(ctx context.Context) ([]models.Booking, error)
}

// DocumentSender delivers a file to the business owners.
type DocumentSender interface {
	SendDocument(ctx context.Context, filename string, data io.Reader, caption string) error
}

// Service sends a spreadsheet of the previous month's bookings on the
// first day of every month.
type Service struct {
	lister  BookingLister
	sender  DocumentSender
	catalog func() *models.Catalog
	loc     *time.Location
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewService(lister BookingLister, sender DocumentSender, catalog func() *models.Catalog, loc *time.Location, logger *zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		lister:  lister,
		sender:  sender,
		catalog: catalog,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// Filename returns e.g. "bookings_2024_06.xlsx".
func Filename(month time.Time) string {
	return fmt.Sprintf("bookings_%04d_%02d.xlsx", month.Year(), int(month.Month()))
}

// Start blocks, sending the report at 00:01 on each first of the month
// until ctx is done.
func (s *Service) Start(ctx context.Context) {
	next := s.nextRun()
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()
	s.logger.Info().Time("next_run", next).Msg("Monthly report scheduled")

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			prev := s.now().In(s.loc).AddDate(0, -1, 0)
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if err := s.SendMonth(runCtx, prev); err != nil {
				s.logger.Error().Err(err).Msg("Monthly report failed")
			}
			cancel()

			next = s.nextRun()
			timer.Reset(time.Until(next))
			s.logger.Info().Time("next_run", next).Msg("Monthly report scheduled")
		}
	}
}

func (s *Service) nextRun() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, s.loc)
}

// SendMonth exports bookings whose service date falls in month's calendar
// month and sends them. Months with no bookings still produce a report.
func (s *Service) SendMonth(ctx context.Context, month time.Time) error {
	all, err := s.lister.List(ctx)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}

	prefix := fmt.Sprintf("%04d-%02d-", month.Year(), int(month.Month()))
	selected := make([]models.Booking, 0, len(all))
	for _, b := range all {
		if strings.HasPrefix(b.ServiceDate, prefix) {
			selected = append(selected, b)
		}
	}

	var buf bytes.Buffer
	if err := export.WriteBookings(&buf, selected, s.catalog()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	filename := Filename(month)
	caption := fmt.Sprintf("Bookings for %s: %d", month.Format("January 2006"), len(selected))
	if err := s.sender.SendDocument(ctx, filename, &buf, caption); err != nil {
		return fmt.Errorf("send report: %w", err)
	}

	s.logger.Info().Str("filename", filename).Int("bookings", len(selected)).Msg("Monthly report sent")
	return nil
}
