package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasperwreed/msgstats/internal/watcher"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]watcher.Event
}

func (r *recorder) refresh(_ context.Context, events []watcher.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, events)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) last() []watcher.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func TestDaemon_RefreshesOnChange(t *testing.T) {
	inbox := t.TempDir()
	conv := filepath.Join(inbox, "bob_1")
	require.NoError(t, os.Mkdir(conv, 0o755))
	statusFile := filepath.Join(t.TempDir(), "watch.status")

	rec := &recorder{}
	d, err := New(Config{
		Inbox:      inbox,
		Pattern:    "message_*.json",
		Debounce:   50 * time.Millisecond,
		StatusFile: statusFile,
	}, rec.refresh, nil)
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	require.Equal(t, 1, rec.count())
	assert.Nil(t, rec.last())

	path := filepath.Join(conv, "message_1.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	require.Eventually(t, func() bool { return rec.count() >= 2 }, 5*time.Second, 20*time.Millisecond)
	events := rec.last()
	require.NotEmpty(t, events)
	assert.Equal(t, path, events[0].Path)

	status, err := ReadStatus(statusFile)
	require.NoError(t, err)
	assert.Equal(t, "running", status.Status)
	assert.GreaterOrEqual(t, status.Metrics.Refreshes, int64(2))
	assert.Contains(t, status.Watching, conv)

	metrics := d.Metrics()
	assert.GreaterOrEqual(t, metrics.EventsReceived, int64(1))
	assert.Zero(t, metrics.RefreshFailures)

	require.NoError(t, d.Stop())
	status, err = ReadStatus(statusFile)
	require.NoError(t, err)
	assert.Equal(t, "stopped", status.Status)
}

func TestDaemon_InitialRefreshFailure(t *testing.T) {
	boom := errors.New("boom")
	d, err := New(Config{Inbox: t.TempDir(), Pattern: "message_*.json"},
		func(context.Context, []watcher.Event) error { return boom }, nil)
	require.NoError(t, err)

	err = d.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), d.Metrics().RefreshFailures)
	assert.Equal(t, "boom", d.Metrics().LastError)
}

func TestDaemon_RunStopsWithContext(t *testing.T) {
	rec := &recorder{}
	d, err := New(Config{Inbox: t.TempDir(), Pattern: "message_*.json"}, rec.refresh, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.count() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}
