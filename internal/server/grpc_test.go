// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/health/grpc_health_v1"
)

type fakeHealth struct{ err error }

func (f *fakeHealth) Check(ctx context.Context) error { return f.err }

type fakeBusy struct{ busy bool }

func (f *fakeBusy) InProgress() bool { return f.busy }

func servingStatus(t *testing.T, s *GRPCServer, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.healthServer.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("health Check(%q) error = %v", service, err)
	}
	return resp.GetStatus()
}

func TestGRPCServer_UpdateHealth(t *testing.T) {
	storage := &fakeHealth{}
	busy := &fakeBusy{}
	s := NewGRPCServer(0, storage, busy)
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	ctx := context.Background()

	s.UpdateHealth(ctx)
	if got := servingStatus(t, s, ""); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("overall status = %v, expected SERVING", got)
	}
	if got := servingStatus(t, s, LifecycleService); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("lifecycle status = %v, expected SERVING", got)
	}

	busy.busy = true
	s.UpdateHealth(ctx)
	if got := servingStatus(t, s, ""); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("overall status while busy = %v, expected SERVING", got)
	}
	if got := servingStatus(t, s, LifecycleService); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("lifecycle status while busy = %v, expected NOT_SERVING", got)
	}

	busy.busy = false
	storage.err = errors.New("disk full")
	s.UpdateHealth(ctx)
	if got := servingStatus(t, s, ""); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("overall status with broken storage = %v, expected NOT_SERVING", got)
	}
	if got := servingStatus(t, s, LifecycleService); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("lifecycle status with broken storage = %v, expected NOT_SERVING", got)
	}
}
