// Package profiler tracks named events between Start and Stop marks and
// aggregates their durations per name.
//
//	tracker := profiler.New()
//	runTok := tracker.Start("run_loop")
//	for i := 0; i < 10; i++ {
//		tok := tracker.Start("loop")
//		doWork()
//		tracker.Stop(tok)
//	}
//	tracker.Stop(runTok)
//	fmt.Println(tracker.Stats())
//
// Events with the same name are tracked separately but grouped together when
// computing statistics.
package profiler

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/psantana5/evprof/pkg/logging"
)

// ErrEventNotFound is returned by Stop for a token that is not running,
// either because it was never issued or because it was already stopped.
var ErrEventNotFound = errors.New("event not found")

// Observer is notified about event transitions. Calls happen synchronously
// on the caller's goroutine, after the tracker has released its lock.
type Observer interface {
	EventStarted(token Token, name string, at time.Time)
	EventStopped(token Token, ev Event)
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock replaces time.Now as the tracker's time source
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLogger sets the logger used for debug and warning output
func WithLogger(logger *logging.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger.WithField("component", "profiler")
	}
}

// WithObserver registers an observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(t *Tracker) {
		t.observers = append(t.observers, o)
	}
}

// Tracker is safe for concurrent use
type Tracker struct {
	mu        sync.RWMutex
	running   map[Token]*Event
	finished  map[string][]Event
	now       func() time.Time
	logger    *logging.Logger
	observers []Observer
}

// New creates an empty tracker
func New(opts ...Option) *Tracker {
	t := &Tracker{
		running:  make(map[Token]*Event),
		finished: make(map[string][]Event),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins tracking an event called name and returns the token to pass
// to Stop. Any name is accepted, including the empty string.
func (t *Tracker) Start(name string) Token {
	token := newToken()
	start := t.now()

	t.mu.Lock()
	t.running[token] = &Event{Name: name, StartTime: start}
	t.mu.Unlock()

	t.logger.Debug("event started", map[string]interface{}{
		"name":  name,
		"token": token.String(),
	})
	for _, o := range t.observers {
		o.EventStarted(token, name, start)
	}
	return token
}

// Stop finishes the event started with token and returns the finished
// record. It returns ErrEventNotFound, and changes nothing, if token is not
// running.
func (t *Tracker) Stop(token Token) (Event, error) {
	t.mu.Lock()
	ev, ok := t.running[token]
	if !ok {
		t.mu.Unlock()
		t.logger.Warn("stop for unknown event", map[string]interface{}{
			"token": token.String(),
		})
		return Event{}, ErrEventNotFound
	}
	delete(t.running, token)
	ev.finish(t.now())
	t.finished[ev.Name] = append(t.finished[ev.Name], *ev)
	done := *ev
	t.mu.Unlock()

	t.logger.Debug("event stopped", map[string]interface{}{
		"name":        done.Name,
		"token":       token.String(),
		"duration_us": done.Duration,
	})
	for _, o := range t.observers {
		o.EventStopped(token, done)
	}
	return done, nil
}

// Track runs fn as an event called name
func (t *Tracker) Track(name string, fn func()) Event {
	token := t.Start(name)
	defer func() {
		if r := recover(); r != nil {
			t.Stop(token)
			panic(r)
		}
	}()
	fn()
	ev, _ := t.Stop(token)
	return ev
}

// FinishedEvents returns a copy of all finished events grouped by name, each
// group in stop order. Changing the result does not affect the tracker.
func (t *Tracker) FinishedEvents() map[string][]Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string][]Event, len(t.finished))
	for name, events := range t.finished {
		result[name] = append([]Event(nil), events...)
	}
	return result
}

// Events returns a copy of the finished events called name, or nil
func (t *Tracker) Events(name string) []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	events, ok := t.finished[name]
	if !ok {
		return nil
	}
	return append([]Event(nil), events...)
}

// Stats computes a Summary for every finished event name. Running events are
// not included.
func (t *Tracker) Stats() map[string]Summary {
	durations := t.durations()

	result := make(map[string]Summary, len(durations))
	for name, values := range durations {
		result[name] = Summarize(values)
	}
	return result
}

// StatsFor computes the Summary for a single name. ok is false if no event
// with that name has finished.
func (t *Tracker) StatsFor(name string) (Summary, bool) {
	t.mu.RLock()
	events, ok := t.finished[name]
	values := make([]int64, len(events))
	for i, ev := range events {
		values[i] = ev.Duration
	}
	t.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return Summarize(values), true
}

// durations snapshots finished durations per name under the read lock
func (t *Tracker) durations() map[string][]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string][]int64, len(t.finished))
	for name, events := range t.finished {
		values := make([]int64, len(events))
		for i, ev := range events {
			values[i] = ev.Duration
		}
		result[name] = values
	}
	return result
}

// Running returns the number of events started but not yet stopped
func (t *Tracker) Running() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.running)
}

// Names returns the finished event names in sorted order
func (t *Tracker) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.finished))
	for name := range t.finished {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
