package stage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/ib-77/procpipe/pkg/pipe"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestLogging_TraversalEvents(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := zerolog.New(&buf)
	a := NewSync(addSync(1), WithLogger[int](log), WithName[int]("a"))
	a.Pipe(NewSync(addSync(1), WithLogger[int](log), WithName[int]("b")))

	_, err := a.Input(context.Background(), 0, nil)
	require.NoError(t, err)

	lines := logLines(t, &buf)
	var msgs []string
	ids := map[any]struct{}{}
	for _, l := range lines {
		msgs = append(msgs, l[zerolog.MessageFieldName].(string))
		if id, ok := l[FieldTraversalID]; ok {
			ids[id] = struct{}{}
		}
		assert.Equal(t, "stage", l[FieldComponent])
	}

	assert.Equal(t, []string{
		"stage piped",
		"traversal started",
		"stage entered",
		"stage completed",
		"stage entered",
		"stage completed",
		"traversal terminated",
	}, msgs)
	assert.Len(t, ids, 1)
	assert.Equal(t, TerminalIdentity, lines[len(lines)-1][FieldTerminal])
}

func TestLogging_DoubleCompletionWarns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	a := NewAsync(func(_ context.Context, in int, done pipe.Completion[int]) {
		done(in)
		done(in)
	}, WithLogger[int](zerolog.New(&buf).Level(zerolog.WarnLevel)))

	_, err := a.Input(context.Background(), 1, nil)
	require.NoError(t, err)

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "warn", lines[0][zerolog.LevelFieldName])
	assert.Equal(t, "completion called more than once, ignored", lines[0][zerolog.MessageFieldName])
}

func TestTracing_SpansPerHop(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	tracer := tp.Tracer("test")

	a := NewSync(addSync(1), WithName[int]("a"), WithTracer[int](tracer))
	a.Pipe(NewAsync(addAsync(1), WithName[int]("b"), WithTracer[int](tracer)))

	_, err := a.Input(context.Background(), 0, nil)
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "stage.a", spans[0].Name)
	assert.Equal(t, "stage.b", spans[1].Name)
	assert.Equal(t, "pipe.traversal", spans[2].Name)

	root := spans[2].SpanContext.SpanID()
	assert.Equal(t, root, spans[0].Parent.SpanID())
	assert.Equal(t, root, spans[1].Parent.SpanID())
	assert.Equal(t, spans[2].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
}

func TestTracing_MisconfiguredStageMarksError(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	tracer := tp.Tracer("test")

	bad := New(WithTransform(pipe.Sync(addSync(1))), WithName[int]("bad"), WithTracer[int](tracer))
	var a *Stage[int]
	a = NewSync(func(_ context.Context, in int) int {
		a.Pipe(bad)
		return in
	}, WithName[int]("a"), WithTracer[int](tracer))

	_, err := a.Input(context.Background(), 0, nil)
	require.ErrorIs(t, err, pipe.ErrConfiguration)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "stage.bad", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "pipe.traversal", spans[2].Name)
	assert.Equal(t, codes.Error, spans[2].Status.Code)
}

func TestNewMetrics_Noop(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	a := NewSync(addSync(1), WithMetrics[int](m))
	got, err := a.Input(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestMetrics_Recorded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(ctx)

	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	a := NewSync(addSync(1), WithMetrics[int](m))
	a.Pipe(NewSync(addSync(1), WithMetrics[int](m)))
	a.Done(func(v int) int { return v })

	for i := 0; i < 3; i++ {
		_, err := a.Input(ctx, i, nil)
		require.NoError(t, err)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	byName := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			byName[md.Name] = md
		}
	}

	hops, ok := byName["procpipe.stage.hops"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(6), sumPoints(hops.DataPoints))

	traversals, ok := byName["procpipe.traversals"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(3), sumPoints(traversals.DataPoints))
	for _, dp := range traversals.DataPoints {
		v, found := dp.Attributes.Value("terminal")
		require.True(t, found)
		assert.Equal(t, TerminalDone, v.AsString())
	}

	active, ok := byName["procpipe.traversals.active"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(0), sumPoints(active.DataPoints))

	_, ok = byName["procpipe.stage.duration"].Data.(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func sumPoints(points []metricdata.DataPoint[int64]) int64 {
	var total int64
	for _, p := range points {
		total += p.Value
	}
	return total
}
