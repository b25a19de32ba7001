package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		w := New("/tmp/docs")

		require.NotNil(t, w)
		assert.Equal(t, "/tmp/docs", w.Root())
		assert.Equal(t, DefaultSettle, w.settle)
		assert.NotNil(t, w.log)
	})

	t.Run("options", func(t *testing.T) {
		w := New("/tmp/docs", WithSettle(time.Second), WithLogger(nil))

		assert.Equal(t, time.Second, w.settle)
		assert.NotNil(t, w.log)
	})

	t.Run("non-positive settle is ignored", func(t *testing.T) {
		w := New("/tmp/docs", WithSettle(0))
		assert.Equal(t, DefaultSettle, w.settle)
	})
}

func TestAccepted(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.pdf", true},
		{"notes.md", true},
		{"README.TXT", true},
		{"memo.docx", true},
		{"image.png", false},
		{".hidden.txt", false},
		{"~$memo.docx", false},
		{"noextension", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accepted(tt.name))
		})
	}
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("content"), 0o644))
	hidden := filepath.Join(dir, ".notes.txt")
	require.NoError(t, os.WriteFile(hidden, []byte("content"), 0o644))
	sub := filepath.Join(dir, "folder.md")
	require.NoError(t, os.Mkdir(sub, 0o755))

	now := time.Now()

	tests := []struct {
		name    string
		event   fsnotify.Event
		pending bool
	}{
		{"create file", fsnotify.Event{Name: file, Op: fsnotify.Create}, true},
		{"write file", fsnotify.Event{Name: file, Op: fsnotify.Write}, true},
		{"chmod is ignored", fsnotify.Event{Name: file, Op: fsnotify.Chmod}, false},
		{"hidden file is ignored", fsnotify.Event{Name: hidden, Op: fsnotify.Create}, false},
		{"directory is ignored", fsnotify.Event{Name: sub, Op: fsnotify.Create}, false},
		{"missing file is ignored", fsnotify.Event{Name: filepath.Join(dir, "gone.txt"), Op: fsnotify.Create}, false},
		{"unsupported type is ignored", fsnotify.Event{Name: filepath.Join(dir, "a.png"), Op: fsnotify.Create}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(dir)
			w.handleFsEvent(tt.event, now)

			_, ok := w.pending[tt.event.Name]
			assert.Equal(t, tt.pending, ok)
		})
	}

	t.Run("remove forgets a pending file", func(t *testing.T) {
		w := New(dir)
		w.handleFsEvent(fsnotify.Event{Name: file, Op: fsnotify.Create}, now)
		w.handleFsEvent(fsnotify.Event{Name: file, Op: fsnotify.Remove}, now)

		assert.Empty(t, w.pending)
	})

	t.Run("rename forgets a pending file", func(t *testing.T) {
		w := New(dir)
		w.handleFsEvent(fsnotify.Event{Name: file, Op: fsnotify.Create}, now)
		w.handleFsEvent(fsnotify.Event{Name: file, Op: fsnotify.Rename}, now)

		assert.Empty(t, w.pending)
	})
}

func TestReady(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.md")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	w := New(dir, WithSettle(time.Second))
	start := time.Now()
	w.handleFsEvent(fsnotify.Event{Name: b, Op: fsnotify.Create}, start)
	w.handleFsEvent(fsnotify.Event{Name: a, Op: fsnotify.Create}, start)

	assert.Empty(t, w.ready(start.Add(500*time.Millisecond)))

	// A later write restarts the settle period.
	w.handleFsEvent(fsnotify.Event{Name: b, Op: fsnotify.Write}, start.Add(800*time.Millisecond))

	assert.Equal(t, []string{a}, w.ready(start.Add(time.Second)))
	assert.Equal(t, []string{b}, w.ready(start.Add(2*time.Second)))
	assert.Empty(t, w.ready(start.Add(3*time.Second)))
}

func TestExisting(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.txt", ".hidden.md", "image.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.md"), 0o755))

	paths, err := New(dir).Existing()

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.pdf")}, paths)
}

func TestExisting_MissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing")).Existing()
	assert.Error(t, err)
}

func TestWatch_RejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := New(file).Watch(context.Background())
	assert.Error(t, err)
}

func TestWatch_ReportsSettledFile(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(dir, WithSettle(50*time.Millisecond))
	paths, err := w.Watch(ctx)
	require.NoError(t, err)

	file := filepath.Join(dir, "new.md")
	require.NoError(t, os.WriteFile(file, []byte("# title"), 0o644))

	select {
	case got := <-paths:
		assert.Equal(t, file, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for settled file")
	}

	cancel()
	for range paths {
	}
}
