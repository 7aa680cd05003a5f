// Package watch re-runs a function whenever one of a set of files changes.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AntoineDao/queenbee/internal/ctxlog"
	"github.com/AntoineDao/queenbee/internal/progress"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period after the last event before fn runs again.
	Debounce time.Duration
	// Extensions limits events inside watched directories to these file
	// extensions. Explicitly listed files always count.
	Extensions []string
	// Indicator, when set, spins while waiting for changes.
	Indicator *progress.Indicator
}

// Watcher observes files and directories through their parent directories,
// so editors that replace a file by rename are still seen.
type Watcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	dirs    map[string]bool
	exts    map[string]bool
	opts    Options
}

// New starts watching paths. Files must exist; directories are watched
// recursively for changes to files with the configured extensions.
func New(paths []string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher: fw,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
		exts:    make(map[string]bool),
		opts:    opts,
	}
	for _, ext := range opts.Extensions {
		w.exts[strings.ToLower(ext)] = true
	}

	watched := make(map[string]bool)
	add := func(dir string) error {
		if watched[dir] {
			return nil
		}
		watched[dir] = true
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		return nil
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("watching %s: %w", p, err)
		}

		if !info.IsDir() {
			w.files[abs] = true
			if err := add(filepath.Dir(abs)); err != nil {
				fw.Close()
				return nil, err
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			w.dirs[path] = true
			return add(path)
		})
		if err != nil {
			fw.Close()
			return nil, err
		}
	}

	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Files returns the explicitly watched files, sorted.
func (w *Watcher) Files() []string {
	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// relevant reports whether an event on name should trigger a run.
func (w *Watcher) relevant(name string) bool {
	name = filepath.Clean(name)
	if w.files[name] {
		return true
	}
	if !w.dirs[filepath.Dir(name)] {
		return false
	}
	return len(w.exts) == 0 || w.exts[strings.ToLower(filepath.Ext(name))]
}

// Run calls fn once, then again after every settled burst of changes,
// until ctx is cancelled. Errors from fn are logged and do not stop the
// loop; Run returns nil on cancellation and an error if the watcher fails.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	logger := ctxlog.FromContext(ctx)

	run := func() {
		if w.opts.Indicator != nil {
			w.opts.Indicator.Stop()
		}
		if err := fn(ctx); err != nil {
			logger.Warn("Run after change failed.", "error", err)
		}
		if w.opts.Indicator != nil {
			w.opts.Indicator.Start(fmt.Sprintf("Watching %d path(s) for changes (Ctrl+C to stop)", len(w.files)+len(w.dirs)))
		}
	}

	run()
	defer func() {
		if w.opts.Indicator != nil {
			w.opts.Indicator.Stop()
		}
	}()

	// settle fires once no event has arrived for the debounce period.
	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if event.Has(fsnotify.Create) {
				w.addIfDir(event.Name)
			}
			if !w.relevant(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("File changed.", "file", event.Name, "op", event.Op.String())
			settle = time.After(w.opts.Debounce)
		case <-settle:
			settle = nil
			run()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// addIfDir starts watching a directory created inside a watched directory.
func (w *Watcher) addIfDir(name string) {
	name = filepath.Clean(name)
	if w.dirs[name] || !w.dirs[filepath.Dir(name)] {
		return
	}
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.watcher.Add(name); err == nil {
		w.dirs[name] = true
	}
}
