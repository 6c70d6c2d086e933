package stage

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ib-77/procpipe/pkg/pipe/stage"

// Log field keys.
const (
	FieldComponent   = "component"
	FieldTraversalID = "traversal_id"
	FieldStage       = "stage"
	FieldHop         = "hop"
	FieldMode        = "mode"
	FieldTerminal    = "terminal"
	FieldDuration    = "duration_ms"
)

// Terminal sources, used in logs and metrics.
const (
	TerminalCallback = "callback"
	TerminalDone     = "done"
	TerminalIdentity = "identity"
	TerminalFailed   = "failed"
)

func (s *Stage[T]) tracerOrGlobal() trace.Tracer {
	if s.tracer != nil {
		return s.tracer
	}
	return otel.Tracer(tracerName)
}

// Metrics holds the otel instruments stages record into. One Metrics value
// is normally shared by every stage of a pipeline.
type Metrics struct {
	hopTotal        metric.Int64Counter
	hopDuration     metric.Float64Histogram
	traversalTotal  metric.Int64Counter
	traversalActive metric.Int64UpDownCounter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	hopTotal, err := meter.Int64Counter("procpipe.stage.hops",
		metric.WithDescription("Stages entered by traversals"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating procpipe.stage.hops counter: %w", err)
	}

	hopDuration, err := meter.Float64Histogram("procpipe.stage.duration",
		metric.WithDescription("Time from a stage's transform start to its completion"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating procpipe.stage.duration histogram: %w", err)
	}

	traversalTotal, err := meter.Int64Counter("procpipe.traversals",
		metric.WithDescription("Completed traversals by terminal source"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating procpipe.traversals counter: %w", err)
	}

	traversalActive, err := meter.Int64UpDownCounter("procpipe.traversals.active",
		metric.WithDescription("Traversals started and not yet terminated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating procpipe.traversals.active gauge: %w", err)
	}

	return &Metrics{
		hopTotal:        hopTotal,
		hopDuration:     hopDuration,
		traversalTotal:  traversalTotal,
		traversalActive: traversalActive,
	}, nil
}

func (m *Metrics) recordStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.traversalActive.Add(ctx, 1)
}

func (m *Metrics) recordHop(ctx context.Context, stage, mode string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("mode", mode),
	)
	m.hopTotal.Add(ctx, 1, attrs)
	m.hopDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) recordEnd(ctx context.Context, terminal string) {
	if m == nil {
		return
	}
	m.traversalActive.Add(ctx, -1)
	m.traversalTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("terminal", terminal)))
}
