// Package runtime coordinates graceful shutdown of the serve process.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joss/pairkit/internal/logging"
)

// ShutdownFunc releases one resource
type ShutdownFunc func(ctx context.Context) error

// ShutdownManager runs registered cleanup in reverse registration order,
// so a resource registered after its dependencies is released before them.
type ShutdownManager struct {
	mu       sync.Mutex
	handlers []namedHandler
	timeout  time.Duration
	log      *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

type namedHandler struct {
	name string
	fn   ShutdownFunc
}

// DefaultShutdownTimeout bounds the whole cleanup sequence
const DefaultShutdownTimeout = 10 * time.Second

// NewShutdownManager creates a manager whose Context derives from parent.
func NewShutdownManager(parent context.Context, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithCancel(parent)
	return &ShutdownManager{
		timeout: timeout,
		log:     logging.New("shutdown"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (m *ShutdownManager) Register(name string, fn ShutdownFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, namedHandler{name: name, fn: fn})
}

// RegisterSimple adds a cleanup function that cannot fail
func (m *ShutdownManager) RegisterSimple(name string, fn func()) {
	m.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// Context is cancelled when shutdown begins
func (m *ShutdownManager) Context() context.Context {
	return m.ctx
}

// Done is closed once every handler has returned or the timeout passed
func (m *ShutdownManager) Done() <-chan struct{} {
	return m.done
}

// ListenForSignals triggers Shutdown on SIGINT or SIGTERM. The listener
// stops when shutdown begins for any other reason.
func (m *ShutdownManager) ListenForSignals() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			m.log.Info("shutdown.signal", map[string]any{"signal": sig.String()})
			m.Shutdown()
		case <-m.ctx.Done():
		}
	}()
}

// Shutdown runs the handlers once and returns their joined errors.
// Later calls wait for the first to finish and return the same result.
func (m *ShutdownManager) Shutdown() error {
	m.once.Do(m.run)
	<-m.done
	return m.err
}

func (m *ShutdownManager) run() {
	defer close(m.done)
	m.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	handlers := append([]namedHandler(nil), m.handlers...)
	m.mu.Unlock()

	start := time.Now()
	var errs []error
	for i := len(handlers) - 1; i >= 0; i-- {
		h := handlers[i]
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, ctx.Err()))
			continue
		}
		if err := m.call(ctx, h); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}

	m.err = errors.Join(errs...)
	m.log.TimedEvent("shutdown.complete", start, map[string]any{
		"handlers": len(handlers),
		"errors":   len(errs),
	})
}

// call runs one handler, giving up when ctx expires
func (m *ShutdownManager) call(ctx context.Context, h namedHandler) error {
	start := time.Now()
	result := make(chan error, 1)
	go func() {
		result <- logging.NewRecoveryHandler("shutdown").WrapError(func() error {
			return h.fn(ctx)
		})
	}()

	var err error
	select {
	case err = <-result:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		m.log.Warn("shutdown.handler_failed", map[string]any{"handler": h.name}, err)
		return err
	}
	m.log.TimedEvent("shutdown.handler", start, map[string]any{"handler": h.name})
	return nil
}
