package example

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/psantana5/evprof/pkg/profiler"
)

// simulated wires a tracker clock to a sleep function that only advances it
func simulated() (*profiler.Tracker, func(context.Context, time.Duration) error) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker := profiler.New(profiler.WithClock(func() time.Time { return now }))
	sleep := func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		now = now.Add(d)
		return nil
	}
	return tracker, sleep
}

// sequence returns the given values in order, repeating the last one
func sequence(values ...float64) func() float64 {
	i := 0
	return func() float64 {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

func TestRun_RecordsNestedEvents(t *testing.T) {
	tracker, sleep := simulated()
	var out bytes.Buffer

	r := &Runner{
		Tracker:    tracker,
		Iterations: 10,
		MaxDelay:   3 * time.Second,
		Out:        &out,
		Rand:       sequence(0.0, 0.5, 0.99, 0.4),
		Sleep:      sleep,
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats := tracker.Stats()
	if len(stats) != 2 {
		t.Fatalf("got %d event names, want 2", len(stats))
	}

	loop, ok := stats[LoopEvent].(profiler.Aggregate)
	if !ok {
		t.Fatalf("loop stats = %#v, want Aggregate", stats[LoopEvent])
	}
	if loop.Count != 10 {
		t.Errorf("loop count = %d, want 10", loop.Count)
	}
	// delays: 0s, 1s, 2s, then 1s for the remaining seven
	if loop.Min != 0 || loop.Max != 2_000_000 {
		t.Errorf("loop min/max = %v/%v, want 0/2000000", loop.Min, loop.Max)
	}

	run, ok := stats[RunLoopEvent].(profiler.Single)
	if !ok {
		t.Fatalf("run_loop stats = %#v, want Single", stats[RunLoopEvent])
	}
	if run.Value != 10_000_000 {
		t.Errorf("run_loop = %v, want 10000000 (sum of loop delays)", run.Value)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 10 || lines[0] != "Iteration #1" || lines[9] != "Iteration #10" {
		t.Errorf("unexpected progress output: %q", out.String())
	}
	if tracker.Running() != 0 {
		t.Errorf("Running() = %d, want 0", tracker.Running())
	}
}

func TestRun_ZeroIterations(t *testing.T) {
	tracker, sleep := simulated()
	r := &Runner{Tracker: tracker, Sleep: sleep}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, ok := tracker.Stats()[LoopEvent]; ok {
		t.Error("no loop events expected")
	}
	if _, ok := tracker.Stats()[RunLoopEvent].(profiler.Single); !ok {
		t.Error("run_loop should still be recorded once")
	}
}

func TestRun_CancelStopsOpenEvents(t *testing.T) {
	tracker, _ := simulated()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	r := &Runner{
		Tracker:    tracker,
		Iterations: 5,
		MaxDelay:   time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			calls++
			if calls == 3 {
				cancel()
			}
			return ctx.Err()
		},
	}

	err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if tracker.Running() != 0 {
		t.Errorf("Running() = %d, want 0 after cancellation", tracker.Running())
	}
	if got := len(tracker.Events(LoopEvent)); got != 3 {
		t.Errorf("loop events = %d, want 3", got)
	}
	if got := len(tracker.Events(RunLoopEvent)); got != 1 {
		t.Errorf("run_loop events = %d, want 1", got)
	}
}

func TestDelay(t *testing.T) {
	tests := []struct {
		name     string
		maxDelay time.Duration
		f        float64
		want     time.Duration
	}{
		{"disabled", 0, 0.7, 0},
		{"whole seconds", 3 * time.Second, 0.7, 2 * time.Second},
		{"below one second", 3 * time.Second, 0.2, 0},
		{"sub-second max keeps precision", 100 * time.Millisecond, 0.5, 50 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Runner{MaxDelay: tt.maxDelay}
			if got := r.delay(tt.f); got != tt.want {
				t.Errorf("delay(%v) = %v, want %v", tt.f, got, tt.want)
			}
		})
	}
}

func TestSleepContext(t *testing.T) {
	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("SleepContext returned %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := SleepContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("SleepContext error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled sleep should return immediately")
	}
}
