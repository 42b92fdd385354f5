package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/sling/internal/adapters/watcher"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/sling/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestWatcher_ReportsWritesAndSkipsIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "dep"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), 0o750))

	w, err := watcher.NewWatcher(log, "dist")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx, root))
	defer func() { _ = w.Stop() }()

	events := make(chan ports.WatchEvent, 16)
	go func() {
		for event := range w.Events() {
			events <- event
		}
		close(events)
	}()

	writeFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "x")
	writeFile(t, filepath.Join(root, "dist", "main.js"), "x")
	target := filepath.Join(root, "src", "index.js")
	writeFile(t, target, "x")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-events:
			require.True(t, ok, "event stream closed early")
			require.NotContains(t, event.Path, "node_modules")
			require.NotContains(t, event.Path, filepath.Join(root, "dist"))
			if event.Path == target {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for write event")
		}
	}
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	root := t.TempDir()
	w, err := watcher.NewWatcher(log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx, root))
	defer func() { _ = w.Stop() }()

	events := make(chan ports.WatchEvent, 16)
	go func() {
		for event := range w.Events() {
			events <- event
		}
	}()

	sub := filepath.Join(root, "components")
	require.NoError(t, os.Mkdir(sub, 0o750))

	target := filepath.Join(sub, "Button.jsx")
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case event := <-events:
			if event.Path == target {
				return
			}
		case <-tick.C:
			// The directory watch is added asynchronously; keep touching the file.
			writeFile(t, target, "x")
		case <-deadline:
			t.Fatal("timed out waiting for event in new directory")
		}
	}
}
