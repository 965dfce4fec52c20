package tracing

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/psantana5/evprof/pkg/profiler"
)

// SpanObserver mirrors tracker events as spans. Each event becomes one span
// with the event's own start and end timestamps.
type SpanObserver struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[profiler.Token]trace.Span
}

// NewSpanObserver creates an observer that starts spans on tracer
func NewSpanObserver(tracer trace.Tracer) *SpanObserver {
	return &SpanObserver{
		tracer: tracer,
		spans:  make(map[profiler.Token]trace.Span),
	}
}

// EventStarted implements profiler.Observer
func (o *SpanObserver) EventStarted(token profiler.Token, name string, at time.Time) {
	_, span := o.tracer.Start(context.Background(), name,
		trace.WithTimestamp(at),
		trace.WithAttributes(
			attribute.String("evprof.event.name", name),
			attribute.String("evprof.event.token", token.String()),
		),
	)

	o.mu.Lock()
	o.spans[token] = span
	o.mu.Unlock()
}

// EventStopped implements profiler.Observer
func (o *SpanObserver) EventStopped(token profiler.Token, ev profiler.Event) {
	o.mu.Lock()
	span, ok := o.spans[token]
	delete(o.spans, token)
	o.mu.Unlock()

	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("evprof.event.duration_us", ev.Duration))
	span.End(trace.WithTimestamp(ev.EndTime))
}

// Open returns the number of spans still waiting for their event to stop
func (o *SpanObserver) Open() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.spans)
}
