package launch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsChanges(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mixins")
	log, _ := test.NewNullLogger()

	w, err := NewWatcher(dir, log)
	require.NoError(t, err)
	assert.DirExists(t, dir, "watcher creates the directory")

	events := make(chan fsnotify.Event, 16)
	w.OnChange = func(event fsnotify.Event) {
		select {
		case events <- event:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	path := filepath.Join(dir, "patch.jar")
	require.NoError(t, os.WriteFile(path, []byte("zip"), 0644))

	select {
	case event := <-events:
		assert.Equal(t, path, event.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_IgnoresChmod(t *testing.T) {
	log, hook := test.NewNullLogger()
	called := false
	w := &Watcher{dir: "mixins", log: log, OnChange: func(fsnotify.Event) { called = true }}

	w.handle(fsnotify.Event{Name: "mixins/a.jar", Op: fsnotify.Chmod})
	assert.False(t, called)
	assert.Empty(t, hook.Entries)

	w.handle(fsnotify.Event{Name: "mixins/a.jar", Op: fsnotify.Remove})
	assert.True(t, called)
	assert.Len(t, hook.Entries, 1)
}

func TestWatcher_SurvivesPanickingCallback(t *testing.T) {
	log, hook := test.NewNullLogger()
	calls := 0
	w := &Watcher{dir: "mixins", log: log, OnChange: func(fsnotify.Event) {
		calls++
		panic("callback exploded")
	}}

	assert.NotPanics(t, func() {
		w.handle(fsnotify.Event{Name: "mixins/a.jar", Op: fsnotify.Create})
		w.handle(fsnotify.Event{Name: "mixins/b.jar", Op: fsnotify.Write})
	})
	assert.Equal(t, 2, calls)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "PANIC recovered", last.Message)
	assert.Equal(t, "callback exploded", last.Data["panic"])
	assert.Equal(t, "mixins watcher", last.Data["context"])
}
