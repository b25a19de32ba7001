// Package filesystem watches a local directory and reports document files
// once they have stopped changing.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultSettle is how long a file must stay unchanged before it is reported.
const DefaultSettle = 2 * time.Second

// Watcher reports supported files created or written under a directory.
// Hidden files, directories and unsupported file types are ignored.
type Watcher struct {
	root   string
	settle time.Duration
	log    *logger.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle sets the quiet period before a changed file is reported.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(w *Watcher) {
		w.log = logger.OrNop(l)
	}
}

// New creates a watcher for root.
func New(root string, opts ...Option) *Watcher {
	w := &Watcher{
		root:    root,
		settle:  DefaultSettle,
		log:     logger.Nop(),
		pending: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Existing returns the supported files already present in the root, sorted by name.
func (w *Watcher) Existing() ([]string, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", w.root, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !accepted(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.root, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Watch emits settled file paths until ctx is cancelled. The returned
// channel is closed when watching stops.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", w.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.root, err)
	}

	out := make(chan string)
	go w.loop(ctx, fsw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer fsw.Close()

	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ev, time.Now())

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.log.Warn("watch events overflowed; some files may be missed", "dir", w.root)
				continue
			}
			w.log.Error("watch error", "dir", w.root, "error", err)

		case now := <-ticker.C:
			for _, path := range w.ready(now) {
				select {
				case out <- path:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *Watcher) tick() time.Duration {
	if t := w.settle / 4; t > 10*time.Millisecond {
		return t
	}
	return 10 * time.Millisecond
}

// handleFsEvent records creates and writes of supported files and forgets
// files that were removed or renamed away.
func (w *Watcher) handleFsEvent(ev fsnotify.Event, now time.Time) {
	if !accepted(filepath.Base(ev.Name)) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(w.pending, ev.Name)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
			return
		}
		w.pending[ev.Name] = now
	}
}

// ready returns the pending paths unchanged for the settle period, sorted.
func (w *Watcher) ready(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var paths []string
	for path, changed := range w.pending {
		if now.Sub(changed) >= w.settle {
			paths = append(paths, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// accepted reports whether name is a visible file of a supported type.
func accepted(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return false
	}
	_, ok := domain.FileTypeFromFilename(name)
	return ok
}
