// Package health runs the gRPC operations endpoint: standard health checking backed by
// periodic pings of the stores, plus server reflection for grpcurl.
package health

import (
	"context"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const ServiceName = "forever.Shop"

const pingTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function, e.g. a driver client's ping, to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Check struct {
	Name   string
	Pinger Pinger
}

type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	checks   []Check
	interval time.Duration
	logger   *zap.Logger

	m       sync.Mutex
	serving bool
}

func NewServer(checks []Check, interval time.Duration, logger *zap.Logger) *Server {
	gs := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(gs)

	s := &Server{
		grpc:     gs,
		health:   hs,
		checks:   checks,
		interval: interval,
		logger:   logger,
		serving:  true,
	}
	s.setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	return s
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop reports NOT_SERVING to watchers before draining connections.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.CheckNow(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckNow pings every store and flips the serving status when the overall result changes.
func (s *Server) CheckNow(ctx context.Context) bool {
	healthy := true
	for _, c := range s.checks {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := c.Pinger.Ping(pctx)
		cancel()
		if err != nil {
			healthy = false
			s.logger.Warn("health check failed", zap.String("check", c.Name), zap.Error(err))
		}
	}

	s.m.Lock()
	defer s.m.Unlock()
	if healthy == s.serving {
		return healthy
	}
	s.serving = healthy
	if healthy {
		s.logger.Info("dependencies recovered, serving")
		s.setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	} else {
		s.setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	return healthy
}

func (s *Server) setStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
