package grpc

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/quentinrf/plant-monitor/services/statemon/internal/domain"
)

// ServiceName is the health service name reported for the sensor data API.
const ServiceName = "statemon.SensorData"

const defaultPingTimeout = 2 * time.Second

// HealthChecker keeps the standard gRPC health service in step with the
// reading store. It implements nothing itself; grpc-go's health.Server does
// the serving.
type HealthChecker struct {
	store    domain.Pinger
	health   *health.Server
	interval time.Duration
	timeout  time.Duration
}

// NewHealthChecker creates a checker that pings store every interval.
// ServiceName starts NOT_SERVING until the first successful ping.
func NewHealthChecker(store domain.Pinger, interval time.Duration) *HealthChecker {
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	timeout := defaultPingTimeout
	if interval > 0 && interval < timeout {
		timeout = interval
	}

	return &HealthChecker{
		store:    store,
		health:   hs,
		interval: interval,
		timeout:  timeout,
	}
}

// Server returns the health server to register on a grpc.Server.
func (c *HealthChecker) Server() *health.Server {
	return c.health
}

// Start pings the store immediately and then every interval.
// This runs in a goroutine until context is cancelled, after which every
// service reports NOT_SERVING.
func (c *HealthChecker) Start(ctx context.Context) {
	log.Info().
		Dur("interval", c.interval).
		Msg("starting health checker")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.CheckOnce(ctx)

	for {
		select {
		case <-ticker.C:
			c.CheckOnce(ctx)

		case <-ctx.Done():
			log.Info().Msg("stopping health checker")
			c.health.Shutdown()
			return
		}
	}
}

// CheckOnce pings the store and records the resulting status for both the
// named service and the server as a whole.
func (c *HealthChecker) CheckOnce(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := c.store.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Msg("store ping failed")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	c.health.SetServingStatus(ServiceName, status)
	c.health.SetServingStatus("", status)
	return status
}
