package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestShutdownRunsHandlersInReverse(t *testing.T) {
	m := NewShutdownManager(context.Background(), time.Second)

	var order []string
	m.RegisterSimple("pool", func() { order = append(order, "pool") })
	m.RegisterSimple("watcher", func() { order = append(order, "watcher") })
	m.RegisterSimple("metrics", func() { order = append(order, "metrics") })

	require.NoError(t, m.Shutdown())
	assert.Equal(t, []string{"metrics", "watcher", "pool"}, order)
}

func TestShutdownCancelsContext(t *testing.T) {
	m := NewShutdownManager(context.Background(), time.Second)
	ctx := m.Context()
	assert.NoError(t, ctx.Err())

	var sawCancel atomic.Bool
	m.Register("probe", func(context.Context) error {
		sawCancel.Store(ctx.Err() != nil)
		return nil
	})
	require.NoError(t, m.Shutdown())

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.True(t, sawCancel.Load(), "context cancelled before handlers run")

	select {
	case <-m.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestShutdownParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	m := NewShutdownManager(parent, time.Second)
	cancel()
	assert.ErrorIs(t, m.Context().Err(), context.Canceled)
	require.NoError(t, m.Shutdown())
}

func TestShutdownJoinsErrors(t *testing.T) {
	m := NewShutdownManager(context.Background(), time.Second)
	boom := errors.New("boom")

	var ran atomic.Int32
	m.Register("first", func(context.Context) error { ran.Add(1); return nil })
	m.Register("second", func(context.Context) error { ran.Add(1); return boom })

	err := m.Shutdown()
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "second: boom")
	assert.EqualValues(t, 2, ran.Load(), "a failing handler does not stop the rest")
}

func TestShutdownRecoversPanics(t *testing.T) {
	m := NewShutdownManager(context.Background(), time.Second)
	m.RegisterSimple("bad", func() { panic("kaboom") })

	err := m.Shutdown()
	assert.ErrorContains(t, err, "panic in shutdown: kaboom")
}

func TestShutdownTimeout(t *testing.T) {
	m := NewShutdownManager(context.Background(), 50*time.Millisecond)

	var later atomic.Bool
	m.RegisterSimple("later", func() { later.Store(true) })
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	err := m.Shutdown()
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, later.Load(), "handlers after the deadline are skipped")
}

func TestShutdownOnce(t *testing.T) {
	m := NewShutdownManager(context.Background(), time.Second)

	var calls atomic.Int32
	m.Register("once", func(context.Context) error {
		calls.Add(1)
		return errors.New("fail")
	})

	first := m.Shutdown()
	second := m.Shutdown()
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load())
}

func TestListenForSignalsStopsOnShutdown(t *testing.T) {
	m := NewShutdownManager(context.Background(), time.Second)
	m.ListenForSignals()
	require.NoError(t, m.Shutdown())
}
