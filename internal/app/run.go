// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// shutdownTimeout bounds the wait for a running season operation and the
// server drains.
const shutdownTimeout = 2 * time.Minute

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start servers
	if err := a.grpcServer.Start(ctx); err != nil {
		return err
	}
	if err := a.metricsServer.Start(ctx); err != nil {
		return err
	}

	go a.lifecycle.Watcher.Run(ctx)

	logrus.Info("application started successfully")

	<-ctx.Done()

	logrus.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down all application components.
//
// ============================================================
// DEVELOPER: Shutdown order is critical
// ============================================================
// Components are shut down in reverse dependency order:
// 1. Stop accepting new requests (gRPC + metrics servers)
// 2. Let a running season operation reach a terminal phase
// 3. Close storage and external connections (Redis)
// 4. Flush telemetry data (OpenTelemetry)
//
// IMPORTANT: Shutdown errors are logged but don't stop the
// shutdown sequence. Each component gets a chance to clean up.
// ============================================================
func (a *App) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down application...")

	// ============================================================
	// Step 1: Shutdown servers (stop accepting new requests)
	// ============================================================
	if a.grpcServer != nil {
		if err := a.grpcServer.Shutdown(ctx); err != nil {
			logrus.Errorf("gRPC server shutdown error: %v", err)
		}
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			logrus.Errorf("metrics server shutdown error: %v", err)
		}
	}

	// ============================================================
	// Step 2 and 3: Drain season operations, close storage
	// ============================================================
	a.Close(ctx)

	// ============================================================
	// Step 4: Flush telemetry data
	// ============================================================
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			logrus.Errorf("telemetry shutdown error: %v", err)
		}
	}

	logrus.Info("application shutdown complete")
	return nil
}

// Close waits for a running season operation and releases storage, the
// premium provider and Redis.
func (a *App) Close(ctx context.Context) {
	if a.lifecycle != nil {
		if a.lifecycle.Coordinator.InProgress() {
			logrus.Warn("waiting for the running season operation to finish...")
		}
		if err := a.lifecycle.Coordinator.Wait(ctx); err != nil {
			logrus.Errorf("season operation still running at shutdown: %v", err)
		}
	}
	if a.entitlements != nil {
		if err := a.entitlements.Manager.Shutdown(ctx); err != nil {
			logrus.Errorf("premium provider shutdown error: %v", err)
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			logrus.Errorf("storage close error: %v", err)
		}
	}
	a.closeRedis()
}
