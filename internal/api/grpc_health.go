package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// BookingServiceName is the gRPC health service name reported alongside
// the overall ("") status.
const BookingServiceName = "detailing.Booking"

// GRPCHealth mirrors the readiness probes into the standard gRPC health
// protocol so orchestrators that speak gRPC can probe the service.
type GRPCHealth struct {
	checks   *Health
	server   *health.Server
	interval time.Duration
	logger   *zerolog.Logger
}

func NewGRPCHealth(checks *Health, interval time.Duration, logger *zerolog.Logger) *GRPCHealth {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &GRPCHealth{
		checks:   checks,
		server:   health.NewServer(),
		interval: interval,
		logger:   logger,
	}
}

// Refresh runs the probes once and updates the serving status.
func (g *GRPCHealth) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if failed := g.checks.Check(ctx); len(failed) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.server.SetServingStatus("", status)
	g.server.SetServingStatus(BookingServiceName, status)
	return status
}

// Serve listens on port and keeps the status fresh until ctx is done.
func (g *GRPCHealth) Serve(ctx context.Context, port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen grpc health: %w", err)
	}

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, g.server)

	go g.watch(ctx)
	go func() {
		<-ctx.Done()
		g.server.Shutdown()
		srv.GracefulStop()
	}()

	g.logger.Info().Int("port", port).Msg("gRPC health server listening")
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve grpc health: %w", err)
	}
	return nil
}

func (g *GRPCHealth) watch(ctx context.Context) {
	last := g.Refresh(ctx)
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if status := g.Refresh(ctx); status != last {
				g.logger.Info().Str("status", status.String()).Msg("gRPC health status changed")
				last = status
			}
		}
	}
}
