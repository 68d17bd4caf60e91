// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/AccelByte/extend-season-pass/internal/config"
	"github.com/AccelByte/extend-season-pass/pkg/common"
)

// SetupTelemetry installs the Zipkin tracer provider and the B3 plus W3C
// propagators. Season operations open their spans through common.Scope.
// The returned function flushes pending spans.
func SetupTelemetry(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	tp, err := common.NewTracerProvider(cfg.ServiceName, cfg.Environment, int64(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		b3.New(),
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	logrus.Infof("tracing enabled for %s (%s)", cfg.ServiceName, cfg.Environment)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to flush traces: %w", err)
		}
		return nil
	}, nil
}
