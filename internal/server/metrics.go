// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-season-pass/pkg/metrics"
)

// SeasonGauge exposes the live season state to scrapes.
type SeasonGauge interface {
	IsActive(ctx context.Context) bool
}

// MetricsServer serves the season pass collectors over HTTP.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
	registry *prometheus.Registry
	port     int
	endpoint string
}

func NewMetricsServer(port int, endpoint string) *MetricsServer {
	return &MetricsServer{
		port:     port,
		endpoint: endpoint,
		registry: prometheus.NewRegistry(),
	}
}

// Setup registers the runtime and season pass collectors. The season
// and busy gauges are read at scrape time; either may be nil.
func (m *MetricsServer) Setup(season SeasonGauge, busy BusyReporter) error {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.registry.MustRegister(metrics.Collectors()...)

	if season != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "season_active",
			Help: "1 while a season accepts progress",
		}, func() float64 {
			return boolGauge(season.IsActive(context.Background()))
		}))
	}
	if busy != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "season_operation_in_progress",
			Help: "1 while a season operation holds the coordinator",
		}, func() float64 {
			return boolGauge(busy.InProgress())
		}))
	}

	mux := http.NewServeMux()
	mux.Handle(m.endpoint, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{Handler: mux}
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Start binds the port before returning so a conflict fails startup.
func (m *MetricsServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", m.port))
	if err != nil {
		return fmt.Errorf("failed to listen on metrics port %d: %w", m.port, err)
	}
	m.listener = lis

	go func() {
		logrus.Infof("metrics server listening on port %d%s", m.port, m.endpoint)
		if err := m.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("metrics server stopped: %v", err)
		}
	}()
	return nil
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.listener == nil {
		return nil
	}
	if err := m.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}
	logrus.Info("metrics server stopped")
	return nil
}
