package grpc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-check name reported for the credential core.
const ServiceName = "lostfound.auth"

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer reports SERVING while the credential store answers pings.
type HealthServer struct {
	*health.Server
	pinger   Pinger
	interval time.Duration
}

func NewHealthServer(pinger Pinger, interval time.Duration) *HealthServer {
	h := &HealthServer{
		Server:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
	}
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Probe pings the store once and records the result.
func (h *HealthServer) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.Ping(ctx); err != nil {
		logrus.WithError(err).Warn("Credential store ping failed")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.SetServingStatus(ServiceName, status)
	h.SetServingStatus("", status)
	return status
}

// Run probes on every interval until ctx is done, then marks the service as
// shutting down.
func (h *HealthServer) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.probeWithTimeout(ctx)
	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-ticker.C:
			h.probeWithTimeout(ctx)
		}
	}
}

func (h *HealthServer) probeWithTimeout(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()
	h.Probe(probeCtx)
}

// NewServer builds the gRPC server with request logging and the health service.
func NewServer(healthServer *HealthServer, opts ...gogrpc.ServerOption) *gogrpc.Server {
	opts = append(opts, gogrpc.ChainUnaryInterceptor(LoggingUnaryInterceptor()))
	server := gogrpc.NewServer(opts...)
	healthpb.RegisterHealthServer(server, healthServer)
	return server
}
