package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StoreMetrics holds custom metrics for data access operations. A nil
// *StoreMetrics is valid and records nothing, so repositories never need to
// guard their instrumentation calls.
type StoreMetrics struct {
	queryDuration     metric.Float64Histogram
	queryCounter      metric.Int64Counter
	errorCounter      metric.Int64Counter
	aggregatedParents metric.Int64Histogram
	txCommits         metric.Int64Counter
	txRollbacks       metric.Int64Counter
}

// InitStoreMetrics initializes data-access metrics on the global meter.
func InitStoreMetrics() (*StoreMetrics, error) {
	meter := otel.Meter("storefront-api")

	queryDuration, err := meter.Float64Histogram(
		"store.query.duration",
		metric.WithDescription("Duration of store queries in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query duration histogram: %w", err)
	}

	queryCounter, err := meter.Int64Counter(
		"store.queries.total",
		metric.WithDescription("Total number of store queries"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"store.errors.total",
		metric.WithDescription("Total number of failed store queries"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	aggregatedParents, err := meter.Int64Histogram(
		"store.aggregation.parents",
		metric.WithDescription("Number of parent entities produced by one row aggregation"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregation histogram: %w", err)
	}

	txCommits, err := meter.Int64Counter(
		"store.tx.commits.total",
		metric.WithDescription("Total number of committed write transactions"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tx commit counter: %w", err)
	}

	txRollbacks, err := meter.Int64Counter(
		"store.tx.rollbacks.total",
		metric.WithDescription("Total number of rolled back write transactions"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tx rollback counter: %w", err)
	}

	return &StoreMetrics{
		queryDuration:     queryDuration,
		queryCounter:      queryCounter,
		errorCounter:      errorCounter,
		aggregatedParents: aggregatedParents,
		txCommits:         txCommits,
		txRollbacks:       txRollbacks,
	}, nil
}

// ObserveQuery records one store operation. Designed for deferred use with a
// named error return:
//
//	defer s.metrics.ObserveQuery(ctx, "orders", "get", time.Now(), &err)
func (m *StoreMetrics) ObserveQuery(ctx context.Context, entity string, op string, start time.Time, err *error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", op),
	)
	m.queryCounter.Add(ctx, 1, attrs)
	m.queryDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	if err != nil && *err != nil {
		m.errorCounter.Add(ctx, 1, attrs)
	}
}

// ObserveAggregation records the parent count of one row aggregation.
func (m *StoreMetrics) ObserveAggregation(ctx context.Context, parents int) {
	if m == nil {
		return
	}
	m.aggregatedParents.Record(ctx, int64(parents))
}

// ObserveTx records a transaction outcome.
func (m *StoreMetrics) ObserveTx(ctx context.Context, committed bool) {
	if m == nil {
		return
	}
	if committed {
		m.txCommits.Add(ctx, 1)
	} else {
		m.txRollbacks.Add(ctx, 1)
	}
}
