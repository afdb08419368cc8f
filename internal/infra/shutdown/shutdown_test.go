package shutdown

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/servicelayer-go/internal/telemetry/logger"
)

func TestNewHandler_DefaultTimeout(t *testing.T) {
	h := NewHandler(0, nil)
	assert.Equal(t, DefaultTimeout, h.timeout)
	assert.NotNil(t, h.log)
}

func TestShutdown_ReverseOrder(t *testing.T) {
	h := NewHandler(time.Second, logger.Nop())

	var order []string
	for _, name := range []string{"client", "watcher", "http"} {
		name := name
		h.OnShutdown(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, h.Shutdown())
	assert.Equal(t, []string{"http", "watcher", "client"}, order)
}

func TestShutdown_ContinuesAfterError(t *testing.T) {
	h := NewHandler(time.Second, logger.Nop())
	boom := errors.New("boom")

	var ran bool
	h.OnShutdown("first", func(context.Context) error {
		ran = true
		return nil
	})
	h.OnShutdown("failing", func(context.Context) error { return boom })

	err := h.Shutdown()
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.True(t, ran)
}

func TestShutdown_Once(t *testing.T) {
	h := NewHandler(time.Second, logger.Nop())
	calls := 0
	h.OnShutdown("count", func(context.Context) error {
		calls++
		return nil
	})

	_ = h.Shutdown()
	_ = h.Shutdown()
	assert.Equal(t, 1, calls)
}

func TestShutdown_HookDeadline(t *testing.T) {
	h := NewHandler(50*time.Millisecond, logger.Nop())
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	err := h.Shutdown()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWait(t *testing.T) {
	h := NewHandler(time.Second, logger.Nop())
	done := make(chan struct{})
	h.OnShutdown("mark", func(context.Context) error {
		close(done)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, h.Wait(ctx))
	select {
	case <-done:
	default:
		t.Fatal("hook did not run")
	}
}

func TestWithSignals(t *testing.T) {
	ctx, cancel := WithSignals(context.Background())
	defer cancel()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled by SIGTERM")
	}
}
