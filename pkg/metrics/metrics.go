// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package metrics defines the Prometheus collectors of the season pass.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_operations_total",
			Help: "Season lifecycle operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "season_operation_duration_seconds",
			Help:    "Duration of season lifecycle operations",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"operation"},
	)

	PhaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_phase_transitions_total",
			Help: "Reset engine phases entered",
		},
		[]string{"phase"},
	)

	EntitlementsPreserved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "season_entitlements_preserved_total",
			Help: "Premium players captured before a reset",
		},
	)

	EntitlementsRestored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "season_entitlements_restored_total",
			Help: "Premium players restored after a season start",
		},
	)

	BackupsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "season_backups_created_total",
			Help: "Backups written before a reset",
		},
	)

	RecoveryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_recovery_attempts_total",
			Help: "Automatic recovery attempts by error kind",
		},
		[]string{"kind", "recovered"},
	)
)

// Collectors returns every season pass collector.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		OperationsTotal,
		OperationDuration,
		PhaseTransitions,
		EntitlementsPreserved,
		EntitlementsRestored,
		BackupsCreated,
		RecoveryAttempts,
	}
}

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
