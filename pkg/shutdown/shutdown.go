package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/psantana5/evprof/pkg/logging"
)

// Func releases one resource within the deadline carried by ctx
type Func func(ctx context.Context) error

// Manager runs registered shutdown functions once, in reverse order of
// registration
type Manager struct {
	funcs   []namedFunc
	mu      sync.Mutex
	timeout time.Duration
	logger  *logging.Logger
	once    sync.Once
	errs    []error
}

type namedFunc struct {
	name string
	fn   Func
}

// New creates a new shutdown manager
func New(timeout time.Duration, logger *logging.Logger) *Manager {
	return &Manager{
		timeout: timeout,
		logger:  logger.WithField("component", "shutdown"),
	}
}

// Register adds a shutdown function
func (m *Manager) Register(name string, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, namedFunc{name: name, fn: fn})
}

// Shutdown executes all registered functions (LIFO) and returns their
// errors. Only the first call does any work.
func (m *Manager) Shutdown() []error {
	m.once.Do(func() {
		m.mu.Lock()
		funcs := append([]namedFunc(nil), m.funcs...)
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		for i := len(funcs) - 1; i >= 0; i-- {
			f := funcs[i]
			if err := f.fn(ctx); err != nil {
				m.logger.Error("Shutdown step failed", map[string]interface{}{
					"step":  f.name,
					"error": err.Error(),
				})
				m.errs = append(m.errs, fmt.Errorf("%s: %w", f.name, err))
				continue
			}
			m.logger.Debug("Shutdown step complete", map[string]interface{}{"step": f.name})
		}
		m.logger.Info("Graceful shutdown complete")
	})
	return m.errs
}

// WaitWithContext blocks until SIGINT/SIGTERM or ctx is done, then runs
// Shutdown
func (m *Manager) WaitWithContext(ctx context.Context) []error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		m.logger.Info("Received signal, shutting down", map[string]interface{}{"signal": sig.String()})
	case <-ctx.Done():
		m.logger.Info("Context done, shutting down")
	}
	return m.Shutdown()
}

// StopHTTPServer creates a shutdown function for an http.Server
func StopHTTPServer(server interface{ Shutdown(context.Context) error }) Func {
	return func(ctx context.Context) error {
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop HTTP server: %w", err)
		}
		return nil
	}
}
