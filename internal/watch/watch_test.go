package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlint/internal/testutil"
	"github.com/leapstack-labs/sqlint/internal/watch"
)

func startWatcher(t *testing.T, dir string, opts ...watch.Option) <-chan []string {
	t.Helper()
	changes := make(chan []string, 10)
	opts = append([]watch.Option{watch.WithLogger(testutil.NewTestLogger(t)), watch.WithDebounce(50 * time.Millisecond)}, opts...)
	w := watch.New([]string{dir}, func(_ context.Context, paths []string) {
		changes <- paths
	}, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	select {
	case <-w.Ready():
	case err := <-done:
		t.Fatalf("watcher exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher not ready")
	}
	return changes
}

func waitChange(t *testing.T, changes <-chan []string) []string {
	t.Helper()
	select {
	case paths := <-changes:
		return paths
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
		return nil
	}
}

func TestWatcher_ReportsSQLChanges(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"models/a.sql": "SELECT 1"})

	changes := startWatcher(t, dir)

	target := filepath.Join(dir, "models", "a.sql")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(target, []byte("SELECT * FROM users"), 0o600))

	assert.Equal(t, []string{target}, waitChange(t, changes))
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"a.sql": "", "b.sql": ""})

	changes := startWatcher(t, dir, watch.WithDebounce(200*time.Millisecond))

	a := filepath.Join(dir, "a.sql")
	b := filepath.Join(dir, "b.sql")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(a, []byte("SELECT 1"), 0o600))
		require.NoError(t, os.WriteFile(b, []byte("SELECT 2"), 0o600))
	}

	assert.Equal(t, []string{a, b}, waitChange(t, changes))

	select {
	case extra := <-changes:
		t.Fatalf("unexpected second batch: %v", extra)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	changes := startWatcher(t, dir, watch.WithExtensions(".star"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.sql"), []byte("x"), 0o600))
	plugin := filepath.Join(dir, "rule.star")
	require.NoError(t, os.WriteFile(plugin, []byte("x"), 0o600))

	assert.Equal(t, []string{plugin}, waitChange(t, changes))
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := watch.New([]string{filepath.Join(t.TempDir(), "missing")}, func(context.Context, []string) {})
	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}
