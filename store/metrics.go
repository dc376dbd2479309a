package store

import (
	"context"

	"recipestore"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type controllerMetrics struct {
	operations       metric.Int64Counter
	operationsFailed metric.Int64Counter
	duration         metric.Float64Histogram
	staleLoads       metric.Int64Counter
	records          metric.Int64Gauge
}

func newControllerMetrics(meter metric.Meter) *controllerMetrics {
	operations, _ := meter.Int64Counter("recipestore_operations_total",
		metric.WithDescription("Total number of remote operations issued by the controller"))
	operationsFailed, _ := meter.Int64Counter("recipestore_operations_failed_total",
		metric.WithDescription("Total number of remote operations that failed"))
	duration, _ := meter.Float64Histogram("recipestore_operation_duration_seconds",
		metric.WithDescription("Duration of remote operations in seconds"),
		metric.WithUnit("s"))
	staleLoads, _ := meter.Int64Counter("recipestore_stale_loads_discarded_total",
		metric.WithDescription("Total number of load results discarded because a later load was already applied"))
	records, _ := meter.Int64Gauge("recipestore_collection_records",
		metric.WithDescription("Number of records in the last applied collection"))

	return &controllerMetrics{
		operations:       operations,
		operationsFailed: operationsFailed,
		duration:         duration,
		staleLoads:       staleLoads,
		records:          records,
	}
}

func (m *controllerMetrics) observe(ctx context.Context, entry recipestore.OperationLog) {
	attrs := metric.WithAttributes(attribute.String("operation", entry.Operation))
	m.operations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, entry.Duration.Seconds(), attrs)
	if entry.Failed() {
		m.operationsFailed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", entry.Operation),
			attribute.String("error.kind", entry.ErrorKind),
		))
	}
}

func (m *controllerMetrics) observeLoad(ctx context.Context, records int, stale bool) {
	if stale {
		m.staleLoads.Add(ctx, 1)
		return
	}
	m.records.Record(ctx, int64(records))
}
