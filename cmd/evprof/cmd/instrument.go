package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/psantana5/evprof/pkg/metrics"
	"github.com/psantana5/evprof/pkg/profiler"
	"github.com/psantana5/evprof/pkg/tracing"
)

// instrumented is a tracker with its metrics registry and tracer provider
type instrumented struct {
	tracker  *profiler.Tracker
	registry *prometheus.Registry
	provider *tracing.Provider
}

// newInstrumented builds a tracker that reports every event to Prometheus
// and, when tracing is enabled, to the OTLP collector
func (a *app) newInstrumented() (*instrumented, error) {
	reg := prometheus.NewRegistry()

	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register event metrics: %w", err)
	}

	provider, err := tracing.InitTracer(tracing.Config{
		ServiceName:    a.cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    a.cfg.Tracing.Environment,
		OTLPEndpoint:   a.cfg.Tracing.Endpoint,
		Enabled:        a.cfg.Tracing.Enabled,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	tracker := profiler.New(
		profiler.WithLogger(a.logger),
		profiler.WithObserver(recorder),
		profiler.WithObserver(tracing.NewSpanObserver(provider.Tracer())),
	)
	if err := reg.Register(metrics.NewCollector(tracker)); err != nil {
		return nil, fmt.Errorf("failed to register stats collector: %w", err)
	}

	return &instrumented{tracker: tracker, registry: reg, provider: provider}, nil
}

// shutdownTracing flushes pending spans. Failures are logged, not returned.
func (a *app) shutdownTracing(ctx context.Context, provider *tracing.Provider) {
	if err := provider.Shutdown(ctx); err != nil {
		a.logger.Warn("Failed to flush traces", map[string]interface{}{"error": err.Error()})
	}
}
