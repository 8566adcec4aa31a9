package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"detailing/internal/repository"
	"detailing/internal/service"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 64 << 10

// Options configures the public HTTP API.
type Options struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RateLimit is the number of POST requests a client may make per
	// RateWindow. Zero disables limiting.
	RateLimit  int
	RateWindow time.Duration
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Requests from anywhere else are keyed by their own address.
	TrustedProxies []string
}

// HTTPServer exposes the booking and contact workflows over JSON.
type HTTPServer struct {
	bookings *service.BookingService
	contacts *service.ContactService
	limiter  repository.RateLimiter
	proxies  []netip.Prefix
	health   *Health
	opts     Options
	logger   *zerolog.Logger
	server   *http.Server
}

func NewHTTPServer(
	opts Options,
	bookings *service.BookingService,
	contacts *service.ContactService,
	limiter repository.RateLimiter,
	health *Health,
	logger *zerolog.Logger,
) *HTTPServer {
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	if health == nil {
		health = NewHealth(logger)
	}
	s := &HTTPServer{
		bookings: bookings,
		contacts: contacts,
		limiter:  limiter,
		proxies:  parseProxies(opts.TrustedProxies, logger),
		health:   health,
		opts:     opts,
		logger:   logger,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.Handler(),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s
}

func (s *HTTPServer) routes() *httprouter.Router {
	router := httprouter.New()
	router.POST("/api/check-availability", s.instrument("check_availability", s.handleCheckAvailability))
	router.POST("/api/bookings", s.instrument("bookings_create", s.handleCreateBooking))
	router.GET("/api/bookings", s.instrument("bookings_list", s.handleListBookings))
	router.GET("/api/bookings/:id", s.instrument("bookings_get", s.handleGetBooking))
	router.GET("/api/availability", s.instrument("availability", s.handleDayAvailability))
	router.POST("/api/contact", s.instrument("contact", s.handleContact))
	s.health.RegisterRoutes(router)

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	router.PanicHandler = s.handlePanic
	return router
}

// Handler returns the router wrapped in the middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	var h http.Handler = s.routes()
	h = s.rateLimit(h)
	h = maxBody(h)
	h = cors(h)
	h = s.requestLogging(h)
	return h
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http api: %w", err)
	}
	s.logger.Info().Msg("HTTP API stopped")
	return nil
}

func (s *HTTPServer) handlePanic(w http.ResponseWriter, r *http.Request, v interface{}) {
	zerolog.Ctx(r.Context()).Error().
		Interface("panic", v).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Panic recovered")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
