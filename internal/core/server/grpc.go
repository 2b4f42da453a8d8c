// Package server provides gRPC admin server lifecycle management.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/solatis/gatekeeper/internal/conditions"
	"github.com/solatis/gatekeeper/internal/core/api"
	"github.com/solatis/gatekeeper/internal/core/auth"
	"github.com/solatis/gatekeeper/internal/core/config"
)

// shutdownTimeout bounds graceful stop before a forced stop.
const shutdownTimeout = 30 * time.Second

// GRPCServer manages gRPC server lifecycle.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	config config.AdminConfig
	log    *zap.Logger
}

// NewGRPCServer creates the admin server with logging, auth and timeout
// interceptors. A nil authenticator leaves the admin service open.
// Health reports NOT_SERVING until svc completes a reload.
func NewGRPCServer(cfg config.AdminConfig, svc *api.ConditionService, authenticator *auth.Authenticator, log *zap.Logger) (*GRPCServer, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	interceptors := []grpc.UnaryServerInterceptor{loggingInterceptor(log)}
	if authenticator != nil {
		interceptors = append(interceptors, authenticator.UnaryInterceptor())
	}
	interceptors = append(interceptors, timeoutInterceptor(cfg.RequestTimeout))

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	RegisterAdminServer(server, &adminService{svc: svc})

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(AdminServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	s := &GRPCServer{
		server: server,
		health: healthServer,
		config: cfg,
		log:    log,
	}
	svc.OnLoad(func(conditions.Report) { s.markServing() })
	if svc.Stats().Loaded {
		s.markServing()
	}
	return s, nil
}

func (s *GRPCServer) markServing() {
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(AdminServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
}

// Start binds listener and serves gRPC requests until Shutdown is called.
func (s *GRPCServer) Start(ctx context.Context) error {
	addr := s.config.Addr()
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	s.log.Info("admin server listening", zap.String("addr", listener.Addr().String()))
	return s.Serve(listener)
}

// Serve serves on an existing listener.
func (s *GRPCServer) Serve(listener net.Listener) error {
	return s.server.Serve(listener)
}

// Shutdown gracefully stops server with 30-second timeout.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-time.After(shutdownTimeout):
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}

// loggingInterceptor logs every admin call with its status code.
func loggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("took", time.Since(start)),
		}
		if err != nil {
			log.Warn("admin call failed", append(fields, zap.Error(err))...)
		} else {
			log.Info("admin call", fields...)
		}
		return resp, err
	}
}

// timeoutInterceptor bounds each call by the configured request timeout.
func timeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if timeout <= 0 {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return handler(ctx, req)
	}
}
