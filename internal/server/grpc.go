// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/AccelByte/extend-season-pass/pkg/common"
)

// LifecycleService is the health service name reporting whether a season
// operation can be accepted right now.
const LifecycleService = "seasonpass.Lifecycle"

const healthInterval = 10 * time.Second

// HealthCheck checks the storage the service depends on.
type HealthCheck interface {
	Check(ctx context.Context) error
}

// BusyReporter reports whether a season operation is running.
type BusyReporter interface {
	InProgress() bool
}

// GRPCServer manages the gRPC server lifecycle.
type GRPCServer struct {
	server       *grpc.Server
	healthServer *health.Server
	port         int
	storage      HealthCheck
	lifecycle    BusyReporter
	stop         context.CancelFunc
}

// NewGRPCServer creates a new gRPC server instance. lifecycle may be nil.
func NewGRPCServer(port int, storage HealthCheck, lifecycle BusyReporter) *GRPCServer {
	return &GRPCServer{
		port:      port,
		storage:   storage,
		lifecycle: lifecycle,
	}
}

// Setup configures the gRPC server with interceptors and health checks.
//
// ============================================================
// DEVELOPER: gRPC server configuration
// ============================================================
// The overall health ("") follows storage health. The
// seasonpass.Lifecycle service additionally reports NOT_SERVING
// while a season transition holds the coordinator.
// ============================================================
func (s *GRPCServer) Setup() error {
	unaryInterceptors := []grpc.UnaryServerInterceptor{
		logging.UnaryServerInterceptor(common.InterceptorLogger(logrus.StandardLogger())),
	}
	streamInterceptors := []grpc.StreamServerInterceptor{
		logging.StreamServerInterceptor(common.InterceptorLogger(logrus.StandardLogger())),
	}

	// Create server with OpenTelemetry instrumentation
	s.server = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unaryInterceptors...),
		grpc.ChainStreamInterceptor(streamInterceptors...),
	)

	s.healthServer = health.NewServer()
	reflection.Register(s.server)
	grpc_health_v1.RegisterHealthServer(s.server, s.healthServer)

	logrus.Infof("gRPC reflection and health check enabled")

	return nil
}

// Start begins listening and serving gRPC requests.
func (s *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}

	go func() {
		logrus.Infof("gRPC server listening on port %d", s.port)
		if err := s.server.Serve(lis); err != nil {
			logrus.Fatalf("gRPC server failed: %v", err)
		}
	}()

	ctx, s.stop = context.WithCancel(ctx)
	s.UpdateHealth(ctx)
	go s.watchHealth(ctx)

	return nil
}

func (s *GRPCServer) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.UpdateHealth(ctx)
		}
	}
}

// UpdateHealth refreshes the reported serving status.
func (s *GRPCServer) UpdateHealth(ctx context.Context) {
	overall := grpc_health_v1.HealthCheckResponse_SERVING
	if s.storage != nil {
		if err := s.storage.Check(ctx); err != nil {
			overall = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.healthServer.SetServingStatus("", overall)

	lifecycle := overall
	if s.lifecycle != nil && s.lifecycle.InProgress() {
		lifecycle = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.healthServer.SetServingStatus(LifecycleService, lifecycle)
}

// Shutdown gracefully stops the gRPC server.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down gRPC server...")
	if s.stop != nil {
		s.stop()
	}
	s.healthServer.Shutdown()
	s.server.GracefulStop()
	logrus.Info("gRPC server stopped")
	return nil
}
