/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package build

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before rebuilding.
const DefaultDebounce = 500 * time.Millisecond

// WatchConfig selects what triggers a rebuild.
type WatchConfig struct {
	Files    []string // watched through their parent directory so editor renames are seen
	Dirs     []string // watched recursively
	Ignore   []string // paths below these never trigger, e.g. the build dir
	Debounce time.Duration
}

// Watch calls rebuild whenever a watched input changes, until ctx is done.
// Rebuilds run on the calling goroutine, so they never overlap.
func Watch(ctx context.Context, cfg WatchConfig, rebuild func(context.Context), logger zerolog.Logger) error {
	logger = logger.With().Str("component", "watch").Logger()
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	w := &inputWatcher{
		watcher: watcher,
		files:   make(map[string]bool),
		logger:  logger,
	}
	if err := w.setup(cfg); err != nil {
		return err
	}

	timer := time.NewTimer(cfg.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	logger.Info().
		Strs("files", cfg.Files).
		Strs("dirs", cfg.Dirs).
		Msg("watching inputs")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				w.addIfDir(event.Name)
			}
			logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("input changed")
			timer.Reset(cfg.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("file watcher error")

		case <-timer.C:
			rebuild(ctx)

		case <-ctx.Done():
			return nil
		}
	}
}

type inputWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	dirs    []string
	ignore  []string
	logger  zerolog.Logger
}

func (w *inputWatcher) setup(cfg WatchConfig) error {
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f, err)
		}
		w.files[abs] = true
		if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
		}
	}
	for _, d := range cfg.Ignore {
		abs, err := filepath.Abs(d)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", d, err)
		}
		w.ignore = append(w.ignore, abs)
	}
	for _, d := range cfg.Dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", d, err)
		}
		w.dirs = append(w.dirs, abs)
		if err := w.addTree(abs); err != nil {
			return err
		}
	}
	return nil
}

func (w *inputWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(p) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

func (w *inputWatcher) addIfDir(p string) {
	for _, d := range w.dirs {
		if within(p, d) {
			if err := w.addTree(p); err != nil {
				w.logger.Debug().Err(err).Str("path", p).Msg("not watching new path")
			}
			return
		}
	}
}

func (w *inputWatcher) ignored(p string) bool {
	for _, d := range w.ignore {
		if within(p, d) {
			return true
		}
	}
	return false
}

// relevant filters events down to changes of watched inputs. Chmod-only
// events and temp files from atomic writes are dropped.
func (w *inputWatcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	base := filepath.Base(name)
	if strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, "~") {
		return false
	}
	if w.ignored(name) {
		return false
	}
	if w.files[name] {
		return true
	}
	for _, d := range w.dirs {
		if within(name, d) {
			return true
		}
	}
	return false
}
