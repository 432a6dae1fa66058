package grpc_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	authgrpc "github.com/vibast-solutions/ms-go-lostfound-auth/app/grpc"
)

type switchPinger struct {
	down atomic.Bool
}

func (p *switchPinger) Ping(context.Context) error {
	if p.down.Load() {
		return errors.New("mysql: connection refused")
	}
	return nil
}

func dial(t *testing.T, healthServer *authgrpc.HealthServer) healthpb.HealthClient {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	server := authgrpc.NewServer(healthServer)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := gogrpc.NewClient("passthrough:///bufnet",
		gogrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return healthpb.NewHealthClient(conn)
}

func TestHealthReflectsStorePing(t *testing.T) {
	pinger := &switchPinger{}
	healthServer := authgrpc.NewHealthServer(pinger, time.Second)
	client := dial(t, healthServer)
	ctx := context.Background()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: authgrpc.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	healthServer.Probe(ctx)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: authgrpc.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	pinger.down.Store(true)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, healthServer.Probe(ctx))
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestHealthRunStopsWithContext(t *testing.T) {
	healthServer := authgrpc.NewHealthServer(&switchPinger{}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		healthServer.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		resp, err := healthServer.Check(context.Background(), &healthpb.HealthCheckRequest{Service: authgrpc.ServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("health loop did not stop")
	}
}
