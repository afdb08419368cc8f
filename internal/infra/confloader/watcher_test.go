package confloader

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/servicelayer-go/internal/telemetry/logger"
)

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher("/nonexistent/dir/config.yaml", func(string) {})
	assert.Error(t, err)
}

func TestWatcher_NotifiesOnWrite(t *testing.T) {
	path := writeFile(t, "a: 1")

	changed := make(chan string, 4)
	w, err := NewWatcher(path, func(p string) { changed <- p },
		WithDebounce(20*time.Millisecond),
		WithWatcherLogger(logger.Nop()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Let the watcher settle before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("a: 2"), 0o600))

	select {
	case got := <-changed:
		want, err := filepath.Abs(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	path := writeFile(t, "a: 1")

	var calls atomic.Int32
	w, err := NewWatcher(path, func(string) { calls.Add(1) },
		WithDebounce(10*time.Millisecond),
		WithWatcherLogger(logger.Nop()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	other := filepath.Join(filepath.Dir(path), "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("b: 1"), 0o600))
	time.Sleep(200 * time.Millisecond)

	cancel()
	<-done
	assert.Zero(t, calls.Load(), "unrelated file triggered onChange")
}

func TestWatcher_Debounce(t *testing.T) {
	path := writeFile(t, "a: 1")

	var calls atomic.Int32
	w, err := NewWatcher(path, func(string) { calls.Add(1) },
		WithDebounce(150*time.Millisecond),
		WithWatcherLogger(logger.Nop()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		_ = os.WriteFile(path, []byte("a: "+string(rune('2'+i))), 0o600)
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, int32(1), calls.Load())
}
