// Copyright 2026 © The Maestro Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	managerMetricsOnce sync.Once
	connectCounter     metric.Int64Counter
	connectErrCounter  metric.Int64Counter
	executeCounter     metric.Int64Counter
	executeErrCounter  metric.Int64Counter
	executeDenyCounter metric.Int64Counter
	executeLatencyMs   metric.Float64Histogram
	toolsGauge         metric.Int64Gauge
	conflictsGauge     metric.Int64Gauge
)

func initManagerMetrics() {
	managerMetricsOnce.Do(func() {
		meter := otel.Meter("maestro/manager")
		connectCounter, _ = meter.Int64Counter("maestro.manager.connect.count")
		connectErrCounter, _ = meter.Int64Counter("maestro.manager.connect.error.count")
		executeCounter, _ = meter.Int64Counter("maestro.manager.execute.count")
		executeErrCounter, _ = meter.Int64Counter("maestro.manager.execute.error.count")
		executeDenyCounter, _ = meter.Int64Counter("maestro.manager.execute.denied.count")
		executeLatencyMs, _ = meter.Float64Histogram("maestro.manager.execute.latency_ms")
		toolsGauge, _ = meter.Int64Gauge("maestro.manager.tools.count")
		conflictsGauge, _ = meter.Int64Gauge("maestro.manager.conflicts.count")
	})
}
