package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestShutdown_ReverseOrder(t *testing.T) {
	m := New(time.Second, nil)

	var order []string
	for _, name := range []string{"tracer", "server"} {
		name := name
		m.Register(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if errs := m.Shutdown(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(order) != 2 || order[0] != "server" || order[1] != "tracer" {
		t.Errorf("order = %v, want [server tracer]", order)
	}
}

func TestShutdown_CollectsErrorsAndRunsOnce(t *testing.T) {
	m := New(time.Second, nil)
	boom := errors.New("boom")

	calls := 0
	m.Register("ok", func(ctx context.Context) error { calls++; return nil })
	m.Register("bad", func(ctx context.Context) error { calls++; return boom })

	errs := m.Shutdown()
	if len(errs) != 1 || !errors.Is(errs[0], boom) {
		t.Errorf("errs = %v, want [bad: boom]", errs)
	}

	m.Shutdown()
	if calls != 2 {
		t.Errorf("shutdown functions ran %d times, want 2", calls)
	}
}

func TestShutdown_DeadlineApplied(t *testing.T) {
	m := New(50*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("shutdown context should carry a deadline")
		}
		return nil
	})
	m.Shutdown()
}

func TestWaitWithContext(t *testing.T) {
	m := New(time.Second, nil)
	done := false
	m.Register("flag", func(ctx context.Context) error { done = true; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m.WaitWithContext(ctx)
	if !done {
		t.Error("shutdown should run when the context is cancelled")
	}
}

type fakeServer struct{ err error }

func (s fakeServer) Shutdown(context.Context) error { return s.err }

func TestStopHTTPServer(t *testing.T) {
	if err := StopHTTPServer(fakeServer{})(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	failing := errors.New("listener stuck")
	if err := StopHTTPServer(fakeServer{err: failing})(context.Background()); !errors.Is(err, failing) {
		t.Errorf("error = %v, want wrapped %v", err, failing)
	}
}
