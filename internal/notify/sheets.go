package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"detailing/internal/events"
	"detailing/internal/export"
	"detailing/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets appends each new booking as a row of a Google spreadsheet.
type Sheets struct {
	service       *sheets.Service
	spreadsheetID string
	sheetRange    string
	catalog       func() *models.Catalog
	logger        *zerolog.Logger
}

// NewSheetsService authenticates with a service account key file.
func NewSheetsService(ctx context.Context, credentialsFile string) (*sheets.Service, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return srv, nil
}

func NewSheets(service *sheets.Service, spreadsheetID, sheetRange string, catalog func() *models.Catalog, logger *zerolog.Logger) *Sheets {
	return &Sheets{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetRange:    sheetRange,
		catalog:       catalog,
		logger:        logger,
	}
}

func (s *Sheets) Name() string { return "sheets" }

func (s *Sheets) Notify(ctx context.Context, event events.Event) error {
	if event.Type != events.BookingCreated || event.Booking == nil {
		return nil
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{export.BookingRow(event.Booking, s.catalog())}}
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetRange, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
			return Permanent(fmt.Errorf("append booking %d: %w", event.Booking.ID, err))
		}
		return fmt.Errorf("append booking %d: %w", event.Booking.ID, err)
	}

	s.logger.Debug().Int64("booking_id", event.Booking.ID).Msg("Booking appended to sheet")
	return nil
}
