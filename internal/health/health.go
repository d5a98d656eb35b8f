// Package health tracks dependency liveness and serves it over the gRPC
// health protocol and as an HTTP report.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the gRPC health service name reported for the shop.
const ServiceName = "shop"

type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Checker struct {
	mu      sync.Mutex
	names   []string
	pingers map[string]Pinger
	timeout time.Duration
	server  *health.Server
	log     logrus.FieldLogger
}

func NewChecker(timeout time.Duration, log logrus.FieldLogger) *Checker {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Checker{
		pingers: map[string]Pinger{},
		timeout: timeout,
		server:  srv,
		log:     log,
	}
}

func (c *Checker) Add(name string, p Pinger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pingers[name]; !ok {
		c.names = append(c.names, name)
		sort.Strings(c.names)
	}
	c.pingers[name] = p
}

type Report struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

func (r Report) Healthy() bool { return r.Status == "ok" }

// Check pings every dependency and updates the gRPC serving status.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.Lock()
	names := append([]string(nil), c.names...)
	pingers := make(map[string]Pinger, len(c.pingers))
	for k, v := range c.pingers {
		pingers[k] = v
	}
	c.mu.Unlock()

	report := Report{Status: "ok", Components: make(map[string]string, len(names))}
	for _, name := range names {
		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		err := pingers[name].Ping(pctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			c.log.WithError(err).WithField("component", name).Warn("health check failed")
			report.Components[name] = err.Error()
			report.Status = "degraded"
			status = healthpb.HealthCheckResponse_NOT_SERVING
		} else {
			report.Components[name] = "ok"
		}
		c.server.SetServingStatus(name, status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !report.Healthy() {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.server.SetServingStatus("", overall)
	c.server.SetServingStatus(ServiceName, overall)
	return report
}

// Watch re-runs Check on every tick until ctx is done, then marks
// everything NOT_SERVING so health watchers see the shutdown.
func (c *Checker) Watch(ctx context.Context, interval time.Duration) {
	c.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Check(ctx)
		case <-ctx.Done():
			c.server.Shutdown()
			return
		}
	}
}

// NewGRPCServer serves the health service and reflection, traced with
// otelgrpc.
func NewGRPCServer(c *Checker) *grpc.Server {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(s, c.server)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(s)
	return s
}
