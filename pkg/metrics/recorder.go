package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/psantana5/evprof/pkg/profiler"
)

// Recorder is a profiler.Observer that feeds live counters and a duration
// histogram as events start and stop.
type Recorder struct {
	started  *prometheus.CounterVec
	stopped  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates a recorder and registers its metrics with reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		started: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evprof_events_started_total",
				Help: "Total events started by name",
			},
			[]string{"name"},
		),
		stopped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evprof_events_stopped_total",
				Help: "Total events stopped by name",
			},
			[]string{"name"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evprof_event_duration_seconds",
				Help:    "Histogram of finished event durations",
				Buckets: prometheus.ExponentialBuckets(0.0001, 10, 7), // 100us .. 100s
			},
			[]string{"name"},
		),
	}

	for _, c := range []prometheus.Collector{r.started, r.stopped, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// EventStarted implements profiler.Observer
func (r *Recorder) EventStarted(_ profiler.Token, name string, _ time.Time) {
	r.started.WithLabelValues(labelValue(name)).Inc()
}

// EventStopped implements profiler.Observer
func (r *Recorder) EventStopped(_ profiler.Token, ev profiler.Event) {
	label := labelValue(ev.Name)
	r.stopped.WithLabelValues(label).Inc()
	r.duration.WithLabelValues(label).Observe(ev.Elapsed().Seconds())
}
