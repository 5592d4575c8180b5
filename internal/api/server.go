package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/miradorstack/meeting-correlator/internal/config"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

// DefaultMaxMessageBytes caps a Correlate request or response; record
// batches are larger than gRPC's 4 MiB default.
const DefaultMaxMessageBytes = 16 << 20

// Server hosts the Correlator service with health, reflection and
// Prometheus interceptors.
type Server struct {
	cfg        config.ServerConfig
	grpcServer *grpc.Server
	listener   net.Listener
	health     *health.Server
	logger     *slog.Logger
}

// NewServer listens on cfg.Address and registers service. The listener is
// bound before returning so Address reports the real port for ":0".
func NewServer(cfg config.ServerConfig, service CorrelatorServer, logger *slog.Logger, opts ...grpc.ServerOption) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	maxBytes := cfg.MaxMessageBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMessageBytes
	}

	s := &Server{cfg: cfg, listener: lis, logger: logger}

	grpc_prometheus.EnableHandlingTimeHistogram()
	serverOpts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(maxBytes),
		grpc.MaxSendMsgSize(maxBytes),
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor, s.logUnary),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}
	serverOpts = append(serverOpts, opts...)
	s.grpcServer = grpc.NewServer(serverOpts...)

	RegisterCorrelatorServer(s.grpcServer, service)
	grpc_prometheus.Register(s.grpcServer)

	// Health reports the Correlator by name as well as the overall server.
	s.health = health.NewServer()
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)

	reflection.Register(s.grpcServer)
	return s, nil
}

// logUnary records each call's method, status code and latency.
func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "grpc call",
		slog.String("method", info.FullMethod),
		slog.String("code", code.String()),
		utils.Duration(time.Since(start)),
	)
	return resp, err
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	if s.grpcServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	return s.grpcServer.Serve(s.listener)
}

// Shutdown marks every service NOT_SERVING, drains in-flight correlations
// and force-stops once ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	if s.grpcServer == nil {
		return
	}

	s.health.Shutdown()
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.logger.Warn("graceful stop timed out, forcing shutdown")
		s.grpcServer.Stop()
	case <-stopped:
	}
}

// Address is the bound listener address.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GracefulTimeout is how long Shutdown should be given to drain.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}
