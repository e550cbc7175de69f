// Package metrics instruments pipeline execution with OpenTelemetry
// counters and a histogram, following the RED-metrics shape the rest of
// this codebase uses for its own request paths.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricItemsFed      = "pkgcheck.pipeline.items.fed"
	metricResultsTotal  = "pkgcheck.pipeline.results.total"
	metricErrorsTotal   = "pkgcheck.pipeline.errors.total"
	metricRunDuration   = "pkgcheck.pipeline.run.duration.seconds"
	metricActivePlans   = "pkgcheck.pipeline.active_runs"

	attrStage    = "stage"
	attrSeverity = "severity"
	attrOp       = "op"
)

// durationBucketBoundaries covers sub-second check evaluation up to
// multi-minute full-repository scans.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 180, 600, 1800}

// PipelineMetrics holds the OTel instruments a Pipeline reports through.
type PipelineMetrics struct {
	itemsFed     metric.Int64Counter
	resultsTotal metric.Int64Counter
	errorsTotal  metric.Int64Counter
	runDuration  metric.Float64Histogram
	activeRuns   metric.Int64UpDownCounter
}

// New creates pipeline metric instruments from mt.
func New(mt metric.Meter) (*PipelineMetrics, error) {
	itemsFed, err := mt.Int64Counter(metricItemsFed,
		metric.WithDescription("Items fed to a pipeline stage"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricItemsFed, err)
	}

	resultsTotal, err := mt.Int64Counter(metricResultsTotal,
		metric.WithDescription("Results emitted by a pipeline run, by severity"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricResultsTotal, err)
	}

	errorsTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Terminal errors raised by a pipeline run"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	runDuration, err := mt.Float64Histogram(metricRunDuration,
		metric.WithDescription("Wall-clock duration of a full pipeline run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunDuration, err)
	}

	activeRuns, err := mt.Int64UpDownCounter(metricActivePlans,
		metric.WithDescription("Pipeline runs currently in progress"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricActivePlans, err)
	}

	return &PipelineMetrics{
		itemsFed:     itemsFed,
		resultsTotal: resultsTotal,
		errorsTotal:  errorsTotal,
		runDuration:  runDuration,
		activeRuns:   activeRuns,
	}, nil
}

// RecordFeed increments the fed-items counter for one stage.
func (m *PipelineMetrics) RecordFeed(ctx context.Context, stage string) {
	m.itemsFed.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStage, stage)))
}

// RecordResult increments the results counter for a severity.
func (m *PipelineMetrics) RecordResult(ctx context.Context, severity string) {
	m.resultsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrSeverity, severity)))
}

// RecordError increments the terminal-error counter.
func (m *PipelineMetrics) RecordError(ctx context.Context, op string) {
	m.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
}

// TrackRun increments the in-flight run gauge and returns a function
// that, when called, decrements it and records the run's duration.
func (m *PipelineMetrics) TrackRun(ctx context.Context) func() {
	m.activeRuns.Add(ctx, 1)

	start := time.Now()

	return func() {
		m.activeRuns.Add(ctx, -1)
		m.runDuration.Record(ctx, time.Since(start).Seconds())
	}
}
