package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(w Watcher) {
	for {
		select {
		case <-w.Events():
		default:
			return
		}
	}
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	w, err := NewWatcher(path, WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	abs, _ := filepath.Abs(path)
	assert.Equal(t, abs, w.Path())

	require.NoError(t, os.WriteFile(path, []byte("longer content"), 0o644))
	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	w, err := NewWatcher(path, WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	time.Sleep(50 * time.Millisecond)
	drain(w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	select {
	case <-w.Events():
		t.Fatal("unexpected notification for sibling file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherCoalesces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	w, err := NewWatcher(path, WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	for i := range 5 {
		require.NoError(t, os.WriteFile(path, []byte(string(rune('b'+i))+"0123456789"[:i+1]), 0o644))
	}
	time.Sleep(100 * time.Millisecond)

	assert.Len(t, w.Events(), 1)
	assert.Equal(t, 1, cap(w.Events()))
}

func TestWatcherMissingFile(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing.wgsl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatcherCloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shader.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))
	w, err := NewWatcher(path)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
