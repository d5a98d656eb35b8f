package health

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func dial(t *testing.T, c *Checker) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(c)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestChecker_ServingWhenDependenciesUp(t *testing.T) {
	c := NewChecker(time.Second, logger.Discard())
	c.Add("database", PingFunc(func(context.Context) error { return nil }))
	client := dial(t, c)

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	report := c.Check(context.Background())
	assert.True(t, report.Healthy())
	assert.Equal(t, "ok", report.Components["database"])

	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestChecker_DegradedWhenDependencyDown(t *testing.T) {
	c := NewChecker(time.Second, logger.Discard())
	c.Add("database", PingFunc(func(context.Context) error { return nil }))
	c.Add("carts", PingFunc(func(context.Context) error { return errors.New("connection refused") }))
	client := dial(t, c)

	report := c.Check(context.Background())
	assert.False(t, report.Healthy())
	assert.Equal(t, "connection refused", report.Components["carts"])

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ""})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "database"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestChecker_PingTimeout(t *testing.T) {
	c := NewChecker(20*time.Millisecond, logger.Discard())
	c.Add("slow", PingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	report := c.Check(context.Background())
	assert.False(t, report.Healthy())
}
