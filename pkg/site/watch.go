package site

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/jlrickert/stanza/pkg/log"
)

// DefaultDebounce batches editor write bursts (save-all, atomic rename
// dances) into a single rebuild.
const DefaultDebounce = 250 * time.Millisecond

// Watcher rebuilds the site whenever the source tree changes. Events are
// debounced; a rebuild already in flight is never cancelled, events that
// arrive during it trigger one more rebuild afterwards.
type Watcher struct {
	site     *Site
	debounce time.Duration

	// OnRebuild, when set, is called after every rebuild attempt with its
	// outcome. The dev server uses it to surface errors without stopping
	// the watch loop.
	OnRebuild func(err error)
}

// NewWatcher wires a watcher to the site. A non-positive debounce falls
// back to DefaultDebounce.
func NewWatcher(s *Site, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{site: s, debounce: debounce}
}

// Run watches the source tree and rebuilds until ctx is cancelled. The
// initial build runs before the first event is consumed so the destination
// is populated from the start.
func (w *Watcher) Run(ctx context.Context) error {
	logger := log.FromContext(ctx)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addDirs(fw); err != nil {
		return err
	}

	w.rebuild(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.ignored(ev.Name) {
				continue
			}
			// New directories need registering before anything inside
			// them can be seen.
			if ev.Op.Has(fsnotify.Create) {
				if info, err := w.site.fs.Stat(ev.Name); err == nil && info.IsDir() {
					_ = fw.Add(ev.Name)
				}
			}
			logger.Debug("source changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.rebuild(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) rebuild(ctx context.Context) {
	logger := log.FromContext(ctx)
	start := time.Now()

	err := w.site.Update(ctx)
	if err == nil {
		err = w.site.Build(ctx)
	}
	if err != nil {
		logger.Error("rebuild failed", "error", err)
	} else {
		logger.Info("rebuilt", "elapsed", time.Since(start).Round(time.Millisecond))
	}
	if w.OnRebuild != nil {
		w.OnRebuild(err)
	}
}

// addDirs registers the source tree, skipping the same directories the
// build skips. fsnotify watches are per-directory, not recursive.
func (w *Watcher) addDirs(fw *fsnotify.Watcher) error {
	cfg := w.site.Config()
	return afero.Walk(w.site.fs, cfg.SourcePath(), func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if w.ignored(path) && path != cfg.SourcePath() {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

// ignored reports whether path lives under a directory the build never
// reads, so changes there must not trigger rebuild loops.
func (w *Watcher) ignored(path string) bool {
	cfg := w.site.Config()
	for _, dir := range []string{cfg.DestinationPath(), cfg.CacheDir()} {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "."
}
