package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds the instruments recorded per research run.
type PipelineMetrics struct {
	runs         metric.Int64Counter
	runLatency   metric.Float64Histogram
	relayRecords metric.Int64Counter
}

// NewPipelineMetrics registers the pipeline instruments on the global meter.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := Meter("kestrel/pipeline")

	runs, err := meter.Int64Counter("kestrel.runs",
		metric.WithDescription("Research runs executed"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create runs counter: %w", err)
	}

	latency, err := meter.Float64Histogram("kestrel.run.latency",
		metric.WithDescription("End-to-end research latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create latency histogram: %w", err)
	}

	relayed, err := meter.Int64Counter("kestrel.relay.records",
		metric.WithDescription("Records accepted by the delivery stream"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create relay counter: %w", err)
	}

	return &PipelineMetrics{
		runs:         runs,
		runLatency:   latency,
		relayRecords: relayed,
	}, nil
}

// RecordRun records one completed research run. Safe on a nil receiver so
// callers without telemetry configured can skip the nil checks.
func (m *PipelineMetrics) RecordRun(ctx context.Context, status string, latencyMS float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, latencyMS, attrs)
}

// RecordRelay records records accepted by the delivery stream.
func (m *PipelineMetrics) RecordRelay(ctx context.Context, accepted int) {
	if m == nil || accepted <= 0 {
		return
	}
	m.relayRecords.Add(ctx, int64(accepted))
}
