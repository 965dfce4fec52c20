package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/evprof/pkg/profiler"
)

// Source is the read side of *profiler.Tracker used by reports
type Source interface {
	Stats() map[string]profiler.Summary
	FinishedEvents() map[string][]profiler.Event
	Running() int
}

// Report is a point-in-time view of a tracker
type Report struct {
	GeneratedAt time.Time                   `json:"generated_at" yaml:"generated_at"`
	Host        *HostInfo                   `json:"host,omitempty" yaml:"host,omitempty"`
	Running     int                         `json:"running_events" yaml:"running_events"`
	Stats       map[string]profiler.Summary `json:"stats" yaml:"stats"`
	Events      map[string][]profiler.Event `json:"events,omitempty" yaml:"events,omitempty"`
}

// New snapshots source. Raw events are only included when withEvents is set.
func New(source Source, withEvents bool) *Report {
	r := &Report{
		GeneratedAt: time.Now(),
		Running:     source.Running(),
		Stats:       source.Stats(),
	}
	if withEvents {
		r.Events = source.FinishedEvents()
	}
	return r
}

// WithHost attaches host information
func (r *Report) WithHost(h *HostInfo) *Report {
	r.Host = h
	return r
}

// Write renders the report as "table", "json" or "yaml"
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)

	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(r); err != nil {
			return err
		}
		return encoder.Close()

	case "table", "":
		return r.writeTable(w)

	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func (r *Report) writeTable(w io.Writer) error {
	if r.Host != nil {
		fmt.Fprintf(w, "Host: %s (%s/%s)\n", r.Host.Hostname, r.Host.OS, r.Host.Platform)
		fmt.Fprintf(w, "  CPU: %s (%d threads)\n", r.Host.CPUModel, r.Host.CPUThreads)
		fmt.Fprintf(w, "  RAM: %s\n\n", FormatRAM(r.Host.MemoryTotal))
	}

	names := sortedNames(r.Stats)

	table := tablewriter.NewWriter(w)
	table.Header("Event", "Count", "Min (us)", "Max (us)", "Mean (us)", "Median (us)", "Stdev (us)", "Variance")
	for _, name := range names {
		table.Append(statsRow(name, r.Stats[name]))
	}
	if err := table.Render(); err != nil {
		return err
	}

	if r.Running > 0 {
		fmt.Fprintf(w, "\n%d event(s) still running\n", r.Running)
	}

	if len(r.Events) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	events := tablewriter.NewWriter(w)
	events.Header("Event", "#", "Start", "End", "Duration (us)")
	for _, name := range sortedNames(r.Events) {
		for i, ev := range r.Events[name] {
			events.Append(
				name,
				fmt.Sprintf("%d", i+1),
				ev.StartTime.Format(time.RFC3339Nano),
				ev.EndTime.Format(time.RFC3339Nano),
				fmt.Sprintf("%d", ev.Duration),
			)
		}
	}
	return events.Render()
}

// statsRow renders one table row; fields a summary variant lacks print as "-"
func statsRow(name string, s profiler.Summary) []string {
	const none = "-"
	switch s := s.(type) {
	case profiler.Single:
		v := formatFloat(s.Value)
		return []string{name, "1", v, v, v, v, none, none}
	case profiler.Aggregate:
		return []string{
			name,
			fmt.Sprintf("%d", s.Count),
			formatFloat(s.Min),
			formatFloat(s.Max),
			formatFloat(s.Mean),
			formatFloat(s.Median),
			formatFloat(s.StdDev),
			formatFloat(s.Variance),
		}
	default:
		return []string{name, "0", none, none, none, none, none, none}
	}
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
