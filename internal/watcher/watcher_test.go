package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 100 * time.Millisecond

func startWatcher(t *testing.T, inbox string) (*ExportWatcher, <-chan []Event) {
	t.Helper()

	w, err := NewExportWatcher("message_*.json", testDebounce, nil)
	require.NoError(t, err)
	require.NoError(t, w.WatchInbox(inbox))

	batches := make(chan []Event, 16)
	w.AddHandler(func(events []Event) error {
		batches <- events
		return nil
	})
	require.NoError(t, w.Start())
	t.Cleanup(func() { w.Stop() })

	return w, batches
}

func waitBatch(t *testing.T, batches <-chan []Event) []Event {
	t.Helper()
	select {
	case events := <-batches:
		return events
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher events")
		return nil
	}
}

func TestExportWatcher_WatchesConversationDirectories(t *testing.T) {
	inbox := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(inbox, "bob_1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "notes.txt"), nil, 0o644))

	w, _ := startWatcher(t, inbox)

	assert.Equal(t, []string{inbox, filepath.Join(inbox, "bob_1")}, w.WatchedPaths())
}

func TestExportWatcher_CoalescesChanges(t *testing.T) {
	inbox := t.TempDir()
	conv := filepath.Join(inbox, "bob_1")
	require.NoError(t, os.Mkdir(conv, 0o755))

	_, batches := startWatcher(t, inbox)

	path := filepath.Join(conv, "message_1.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(`{"messages":[]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(conv, "photo.jpg"), []byte("x"), 0o644))

	events := waitBatch(t, batches)
	require.Len(t, events, 1)
	assert.Equal(t, path, events[0].Path)
	assert.Equal(t, "bob_1", events[0].Conversation)
}

func TestExportWatcher_PicksUpNewConversation(t *testing.T) {
	inbox := t.TempDir()
	w, batches := startWatcher(t, inbox)

	conv := filepath.Join(inbox, "eve_2")
	require.NoError(t, os.Mkdir(conv, 0o755))
	require.Eventually(t, func() bool {
		for _, p := range w.WatchedPaths() {
			if p == conv {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	path := filepath.Join(conv, "message_1.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	events := waitBatch(t, batches)
	require.Len(t, events, 1)
	assert.Equal(t, path, events[0].Path)

	require.NoError(t, os.Remove(path))
	events = waitBatch(t, batches)
	require.Len(t, events, 1)
	assert.Equal(t, EventRemoved, events[0].Type)
}

func TestExportWatcher_MissingInbox(t *testing.T) {
	w, err := NewExportWatcher("message_*.json", 0, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.WatchInbox(filepath.Join(t.TempDir(), "missing")))
	assert.Equal(t, DefaultDebounce, w.debounce)
}
