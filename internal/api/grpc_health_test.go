package api

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestGRPCHealth_Refresh(t *testing.T) {
	logger := zerolog.New(io.Discard)
	checks := NewHealth(&logger)

	var dbErr error
	checks.AddCheck("database", func(context.Context) error { return dbErr })

	g := NewGRPCHealth(checks, 0, &logger)
	ctx := context.Background()

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, g.Refresh(ctx))
	resp, err := g.server.Check(ctx, &healthpb.HealthCheckRequest{Service: BookingServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	dbErr = errors.New("database is closed")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, g.Refresh(ctx))
	resp, err = g.server.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
