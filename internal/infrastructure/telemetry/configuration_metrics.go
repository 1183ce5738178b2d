package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// BatchOutcome labels how a configuration batch ended.
type BatchOutcome string

const (
	BatchOutcomeApplied  BatchOutcome = "applied"
	BatchOutcomeRejected BatchOutcome = "rejected"
	BatchOutcomeFailed   BatchOutcome = "failed"
)

// ConfigurationMetrics tracks configuration batches, cost recalculation and
// post-commit side effects. A nil *ConfigurationMetrics records nothing.
type ConfigurationMetrics struct {
	batchesTotal          metric.Int64Counter
	settingsWrittenTotal  metric.Int64Counter
	recalculatedRowsTotal metric.Int64Counter
	recalculationDuration metric.Float64Histogram
	sideEffectFailures    metric.Int64Counter
}

// ErrMeterNil is returned when no meter is given
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

type counterSpec struct {
	dst         *metric.Int64Counter
	name        string
	description string
	unit        string
}

// NewConfigurationMetrics registers the configuration instruments on meter.
func NewConfigurationMetrics(meter metric.Meter) (*ConfigurationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	cm := &ConfigurationMetrics{}
	counters := []counterSpec{
		{&cm.batchesTotal, "backoffice_configuration_batches_total", "Total number of configuration batches processed", "{batches}"},
		{&cm.settingsWrittenTotal, "backoffice_configuration_settings_written_total", "Total number of setting rows written", "{settings}"},
		{&cm.recalculatedRowsTotal, "backoffice_cost_recalculated_rows_total", "Total number of cost rows visited by currency recalculation", "{rows}"},
		{&cm.sideEffectFailures, "backoffice_configuration_side_effect_failures_total", "Total number of failed post-commit side effects", "{failures}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	histogram, err := meter.Float64Histogram("backoffice_cost_recalculation_duration_seconds",
		metric.WithDescription("Duration of a cost currency recalculation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(RecalculationDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recalculation histogram: %w", err)
	}
	cm.recalculationDuration = histogram

	return cm, nil
}

// RecordBatch counts a processed batch and the rows it wrote.
func (cm *ConfigurationMetrics) RecordBatch(ctx context.Context, businessID string, outcome BatchOutcome, written int) {
	if cm == nil {
		return
	}
	business := AttrBusinessID.String(businessID)
	cm.batchesTotal.Add(ctx, 1, metric.WithAttributes(business, AttrOutcome.String(string(outcome))))
	if written > 0 {
		cm.settingsWrittenTotal.Add(ctx, int64(written), metric.WithAttributes(business))
	}
}

// RecordRecalculatedRows counts rows of one collection by conversion outcome.
func (cm *ConfigurationMetrics) RecordRecalculatedRows(ctx context.Context, collection, conversion string, rows int) {
	if cm == nil || rows == 0 {
		return
	}
	cm.recalculatedRowsTotal.Add(ctx, int64(rows), metric.WithAttributes(
		AttrCollection.String(collection),
		AttrConversion.String(conversion),
	))
}

// RecordRecalculationDuration records the wall time of one recalculation.
func (cm *ConfigurationMetrics) RecordRecalculationDuration(ctx context.Context, policy string, d time.Duration) {
	if cm == nil {
		return
	}
	cm.recalculationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(AttrPolicy.String(policy)))
}

// RecordSideEffectFailure counts a failed cache, notification or job effect.
func (cm *ConfigurationMetrics) RecordSideEffectFailure(ctx context.Context, effect string) {
	if cm == nil {
		return
	}
	cm.sideEffectFailures.Add(ctx, 1, metric.WithAttributes(AttrEffect.String(effect)))
}
