package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/psantana5/evprof/pkg/profiler"
)

// StatsSource is the part of *profiler.Tracker the collector reads
type StatsSource interface {
	Stats() map[string]profiler.Summary
	Running() int
}

// Collector exports tracker statistics as Prometheus metrics. Values are
// computed from the tracker on every scrape.
type Collector struct {
	source StatsSource

	duration *prometheus.Desc
	min      *prometheus.Desc
	max      *prometheus.Desc
	mean     *prometheus.Desc
	stddev   *prometheus.Desc
	running  *prometheus.Desc
}

// NewCollector creates a collector over source
func NewCollector(source StatsSource) *Collector {
	labels := []string{"name"}
	return &Collector{
		source: source,
		duration: prometheus.NewDesc(
			"evprof_event_stats_duration_seconds",
			"Durations of finished events by name, with the median as the 0.5 quantile",
			labels, nil,
		),
		min: prometheus.NewDesc(
			"evprof_event_stats_min_seconds",
			"Shortest finished event duration by name",
			labels, nil,
		),
		max: prometheus.NewDesc(
			"evprof_event_stats_max_seconds",
			"Longest finished event duration by name",
			labels, nil,
		),
		mean: prometheus.NewDesc(
			"evprof_event_stats_mean_seconds",
			"Mean finished event duration by name",
			labels, nil,
		),
		stddev: prometheus.NewDesc(
			"evprof_event_stats_stddev_seconds",
			"Population standard deviation of finished event durations by name",
			labels, nil,
		),
		running: prometheus.NewDesc(
			"evprof_running_events",
			"Events started but not yet stopped",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.duration
	ch <- c.min
	ch <- c.max
	ch <- c.mean
	ch <- c.stddev
	ch <- c.running
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, float64(c.source.Running()))

	seen := make(map[string]bool)
	for name, s := range c.source.Stats() {
		// a literal "\xNN" in one name can collide with an escaped byte in another
		label := labelValue(name)
		if seen[label] {
			continue
		}
		seen[label] = true

		var count uint64
		var sum, lo, hi, mean, median, stddev float64

		switch s := s.(type) {
		case profiler.Single:
			count, sum = 1, s.Value
			lo, hi, mean, median = s.Value, s.Value, s.Value, s.Value
		case profiler.Aggregate:
			count, sum = uint64(s.Count), s.Mean*float64(s.Count)
			lo, hi, mean, median, stddev = s.Min, s.Max, s.Mean, s.Median, s.StdDev
		default:
			continue
		}

		ch <- prometheus.MustNewConstSummary(c.duration, count, seconds(sum),
			map[float64]float64{0.5: seconds(median)}, label)
		ch <- prometheus.MustNewConstMetric(c.min, prometheus.GaugeValue, seconds(lo), label)
		ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, seconds(hi), label)
		ch <- prometheus.MustNewConstMetric(c.mean, prometheus.GaugeValue, seconds(mean), label)
		ch <- prometheus.MustNewConstMetric(c.stddev, prometheus.GaugeValue, seconds(stddev), label)
	}
}

// seconds converts tracker microseconds to the Prometheus base unit
func seconds(us float64) float64 {
	return us / 1e6
}

// WriteText writes every metric gathered from g in the Prometheus text format
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	encoder := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
