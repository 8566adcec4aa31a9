package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"detailing/internal/export"
	"detailing/internal/models"
	"detailing/internal/service"
	"detailing/internal/slots"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

const (
	exportFileName = "export.xlsx"
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	msgSlotTaken      = "This time slot is no longer available. Please select another time."
	msgBookingFailed  = "Failed to create booking. Please try again later."
	msgBookingCreated = "Booking created successfully"
)

// CheckAvailabilityRequest is the body of POST /api/check-availability.
type CheckAvailabilityRequest struct {
	ServiceDate string `json:"serviceDate"`
	ServiceTime string `json:"serviceTime"`
}

type CheckAvailabilityResponse struct {
	Available bool   `json:"available"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type CreateBookingResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Booking *models.Booking `json:"booking"`
}

type ConflictResponse struct {
	Error    string `json:"error"`
	Conflict bool   `json:"conflict"`
}

type DayAvailabilityResponse struct {
	Date  string           `json:"date"`
	Slots []slots.SlotInfo `json:"slots"`
}

// handleCheckAvailability reports whether a slot is free right now.
// POST /api/check-availability
func (s *HTTPServer) handleCheckAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CheckAvailabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	req.ServiceDate = strings.TrimSpace(req.ServiceDate)
	req.ServiceTime = strings.TrimSpace(req.ServiceTime)

	available, err := s.bookings.CheckAvailability(r.Context(), req.ServiceDate, req.ServiceTime)
	if err != nil {
		if verr, ok := service.IsValidation(err); ok {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Availability check failed")
		writeError(w, http.StatusInternalServerError, "Failed to check availability")
		return
	}

	writeJSON(w, http.StatusOK, CheckAvailabilityResponse{
		Available: available,
		Date:      req.ServiceDate,
		Time:      req.ServiceTime,
	})
}

// handleCreateBooking reserves a slot for the submitted draft.
// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var draft models.BookingDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), &draft)
	if err != nil {
		if verr, ok := service.IsValidation(err); ok {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		if errors.Is(err, service.ErrSlotUnavailable) {
			writeJSON(w, http.StatusConflict, ConflictResponse{Error: msgSlotTaken, Conflict: true})
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Booking failed")
		writeError(w, http.StatusInternalServerError, msgBookingFailed)
		return
	}

	writeJSON(w, http.StatusCreated, CreateBookingResponse{
		Success: true,
		Message: msgBookingCreated,
		Booking: booking,
	})
}

// handleListBookings returns every booking, newest first.
// GET /api/bookings
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := s.bookings.ListBookings(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("List bookings failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch bookings")
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// handleGetBooking serves a single booking, or the spreadsheet export when
// the path is /api/bookings/export.xlsx (httprouter cannot register both).
// GET /api/bookings/:id
func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	raw := ps.ByName("id")
	if raw == exportFileName {
		s.handleExportBookings(w, r)
		return
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid booking id")
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if errors.Is(err, service.ErrBookingNotFound) {
		writeError(w, http.StatusNotFound, "Booking not found")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("booking_id", id).Msg("Get booking failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch booking")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	bookings, err := s.bookings.ListBookings(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Export bookings failed")
		writeError(w, http.StatusInternalServerError, "Failed to export bookings")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteBookings(&buf, bookings, s.bookings.Catalog()); err != nil {
		log.Error().Err(err).Msg("Export bookings failed")
		writeError(w, http.StatusInternalServerError, "Failed to export bookings")
		return
	}

	name := "bookings-" + time.Now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// handleDayAvailability lists all offered slots for a date.
// GET /api/availability?date=YYYY-MM-DD
func (s *HTTPServer) handleDayAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	list, err := s.bookings.DayAvailability(r.Context(), date)
	if err != nil {
		if verr, ok := service.IsValidation(err); ok {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Str("date", date).Msg("Day availability failed")
		writeError(w, http.StatusInternalServerError, "Failed to check availability")
		return
	}

	writeJSON(w, http.StatusOK, DayAvailabilityResponse{Date: date, Slots: list})
}
