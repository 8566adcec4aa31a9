package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"detailing/internal/api"
	"detailing/internal/config"
	"detailing/internal/database"
	"detailing/internal/events"
	"detailing/internal/metrics"
	"detailing/internal/models"
	"detailing/internal/notify"
	"detailing/internal/report"
	"detailing/internal/repository"
	"detailing/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	bootstrap := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		bootstrap.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = repository.NewRedisClient(cfg.Redis)
		defer repository.Close(rdb)
		if err := repository.Ping(ctx, rdb); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable at startup; continuing")
		}
	}

	loc := cfg.Location()
	bus := events.NewBus(&logger)

	bookings := service.NewBookingService(db, bus, models.DefaultCatalog(), cfg.NotificationTimeout(), &logger).
		WithLocation(loc)
	if cfg.Booking.CatalogPath != "" {
		if err := config.WatchCatalog(ctx, cfg.Booking.CatalogPath, cfg.CatalogReloadInterval(), bookings.SetCatalog); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Booking.CatalogPath).Msg("load catalog error")
		}
	}
	contacts := service.NewContactService(bookings.Validator(), bus, cfg.NotificationTimeout(), &logger)

	closers, telegram := registerNotifiers(ctx, cfg, bus, bookings.Catalog, rdb, &logger)
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn().Err(err).Msg("close notifier")
			}
		}
	}()

	var limiter repository.RateLimiter
	if rdb != nil && cfg.HTTP.RateLimitRequests > 0 {
		limiter = repository.NewFailoverRateLimiter(
			repository.NewRedisRateLimiter(rdb, cfg.App.Name+":ratelimit"),
			repository.NewMemoryRateLimiter(),
			&logger,
		)
	}

	health := api.NewHealth(&logger)
	health.AddCheck("database", db.PingContext)
	if rdb != nil {
		health.AddCheck("redis", func(ctx context.Context) error { return repository.Ping(ctx, rdb) })
	}

	httpAPI := api.NewHTTPServer(api.Options{
		Port:         cfg.HTTP.Port,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		RateLimit:    cfg.HTTP.RateLimitRequests,
		RateWindow:   cfg.RateLimitWindow(),

		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, bookings, contacts, limiter, health, &logger)

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				logger.Error().Err(err).Str("server", name).Msg("server error")
				stop()
			}
		}()
	}

	backup := database.NewBackupService(db, cfg.Backup, cfg.BackupInterval(), &logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		backup.Start(ctx)
	}()

	if telegram != nil && cfg.Telegram.MonthlyReport {
		reports := report.NewService(db, telegram, bookings.Catalog, loc, &logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports.Start(ctx)
		}()
	}

	run("health", func() error {
		return serveHTTP(ctx, cfg.Monitoring.HealthCheckPort, health.Handler())
	})

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		run("metrics", func() error { return serveHTTP(ctx, cfg.Monitoring.PrometheusPort, mux) })
	}

	if cfg.Monitoring.GRPCHealthPort > 0 {
		grpcHealth := api.NewGRPCHealth(health, 10*time.Second, &logger)
		run("grpc-health", func() error { return grpcHealth.Serve(ctx, cfg.Monitoring.GRPCHealthPort) })
	}

	run("api", func() error { return httpAPI.Start(ctx) })

	logger.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Int("port", cfg.HTTP.Port).
		Msg("Booking service started")

	<-ctx.Done()
	logger.Info().Msg("Shutting down")
	wg.Wait()
	logger.Info().Msg("Shutdown complete")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// registerNotifiers subscribes every configured outbound channel to the bus.
// Channels that fail to initialise are skipped with an error log so the
// booking flow still starts.
func registerNotifiers(
	ctx context.Context,
	cfg *config.Config,
	bus *events.Bus,
	catalog func() *models.Catalog,
	rdb *redis.Client,
	logger *zerolog.Logger,
) (closers []io.Closer, telegram *notify.Telegram) {
	loc := cfg.Location()

	retry := notify.DefaultRetryConfig()
	if cfg.Booking.NotificationMaxRetries > 0 {
		retry.MaxRetries = cfg.Booking.NotificationMaxRetries
	}
	subscribe := func(n events.Notifier, types ...events.Type) {
		bus.Subscribe(notify.NewDispatcher(n, cfg.Booking.NotificationRatePerSecond, retry, logger), types...)
		logger.Info().Str("notifier", n.Name()).Msg("Notifier enabled")
	}
	all := []events.Type{events.BookingCreated, events.ContactSubmitted}

	if cfg.EmailEnabled() {
		client, err := notify.NewSMTPClient(cfg.Email)
		if err != nil {
			logger.Error().Err(err).Msg("SMTP client error; email disabled")
		} else {
			subscribe(notify.NewMailer(client, cfg.Email, catalog, loc, logger), all...)
		}
	} else {
		logger.Warn().Msg("Email not configured; notifications are only logged")
		bus.Subscribe(notify.NewLog(logger), all...)
	}

	if cfg.Telegram.BotToken != "" && len(cfg.Telegram.ChatIDs) > 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Error().Err(err).Msg("Telegram bot error; alerts disabled")
		} else {
			telegram = notify.NewTelegram(bot, cfg.Telegram.ChatIDs, catalog, logger)
			subscribe(telegram, all...)
		}
	}

	if cfg.Google.CredentialsFile != "" && cfg.Google.BookingSpreadsheetID != "" {
		srv, err := notify.NewSheetsService(ctx, cfg.Google.CredentialsFile)
		if err != nil {
			logger.Error().Err(err).Msg("Google Sheets error; sheet sync disabled")
		} else {
			subscribe(notify.NewSheets(srv, cfg.Google.BookingSpreadsheetID, cfg.Google.BookingSheetRange, catalog, logger),
				events.BookingCreated)
		}
	}

	if rdb != nil && cfg.Redis.EventsChannel != "" {
		subscribe(notify.NewRedisPublisher(rdb, cfg.Redis.EventsChannel), all...)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Error().Err(err).Msg("Kafka writer error; event stream disabled")
		} else {
			k := notify.NewKafka(writer, logger)
			subscribe(k, all...)
			closers = append(closers, k)
		}
	}

	return closers, telegram
}

func serveHTTP(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
