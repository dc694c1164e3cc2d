package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/bep/debounce"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/treecss/treecss/internal/cache"
	"github.com/treecss/treecss/internal/config"
	"github.com/treecss/treecss/internal/css"
)

const WATCHER_LOG_SRC = "watcher"

func newWatchCommand(state *cliState) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Recompile a stylesheet each time it, a stylesheet next to it or one of its imports changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("pattern") {
				state.config.WatchPattern = pattern
			}
			if err := state.config.Validate(); err != nil {
				return err
			}

			path, err := stylesheetPath(args[0])
			if err != nil {
				return err
			}

			w := &stylesheetWatcher{
				path:     path,
				pattern:  state.config.WatchPattern,
				compiler: state.newCompiler(),
				cache:    cache.NewStylesheetCache(),
				debounce: debounce.New(state.config.DebounceDuration()),
				logger:   state.logger.With().Str(css.SOURCE_LOG_FIELD_NAME, WATCHER_LOG_SRC).Logger(),
			}
			return w.watch(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", config.DEFAULT_WATCH_PATTERN, "glob matched against the names of the changed files")

	return cmd
}

type stylesheetWatcher struct {
	path     string //absolute, slash-separated
	pattern  string
	compiler *css.Compiler
	cache    *cache.StylesheetCache
	debounce func(f func())
	logger   zerolog.Logger

	//called after each compilation, used by tests. stylesheet is nil if the file could not be read.
	onCompiled func(stylesheet *css.StyleSheet, cached bool)

	fsWatcher *fsnotify.Watcher

	lock        sync.Mutex //held during compilations
	last        *css.StyleSheet
	watchedDirs map[string]struct{}
}

// watch compiles the stylesheet, then recompiles it after changes of the stylesheets in its
// directory and in the directories of its imports until ctx is done.
func (w *stylesheetWatcher) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	w.fsWatcher = watcher
	w.watchedDirs = map[string]struct{}{}

	if err := w.watchDir(filepath.Dir(filepath.FromSlash(w.path))); err != nil {
		return err
	}

	w.compile(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !w.isWatchedFile(event.Name) {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			//cached stylesheets do not depend on the content of their imports.
			if filepath.ToSlash(event.Name) != w.path {
				w.cache.InvalidateAllEntries()
			}

			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("change detected")

			w.debounce(func() {
				w.compile(ctx)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Err(err).Msg("watcher error")
		}
	}
}

func (w *stylesheetWatcher) compile(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	content, err := os.ReadFile(filepath.FromSlash(w.path))
	if err != nil {
		w.logger.Err(err).Msg("failed to read the stylesheet")

		if w.last != nil {
			w.cache.DeleteEntryByValue(w.last)
			w.last = nil
		}
		if w.onCompiled != nil {
			w.onCompiled(nil, false)
		}
		return
	}

	stylesheet, cached, err := w.cache.GetOrCompile(ctx, w.compiler, w.path, string(content))
	if err != nil {
		w.logger.Err(err).Msg("compilation failed")
		return
	}

	if cached {
		w.logger.Debug().Str("file", w.path).Msg("stylesheet unchanged")
	} else {
		//only the current version is kept.
		w.cache.KeepEntriesByValue(stylesheet)

		for _, d := range stylesheet.Diagnostics {
			w.logger.Warn().Str("kind", d.Kind.String()).Msg(d.Error())
		}

		w.logger.Info().
			Str("file", w.path).
			Int("rules", len(stylesheet.Rules)).
			Int("diagnostics", len(stylesheet.Diagnostics)).
			Msg("stylesheet compiled")
	}

	w.last = stylesheet

	for _, imported := range stylesheet.Imports {
		dir := filepath.Dir(filepath.FromSlash(imported))
		if err := w.watchDir(dir); err != nil {
			w.logger.Err(err).Str("dir", dir).Msg("failed to watch the directory of an import")
		}
	}

	if w.onCompiled != nil {
		w.onCompiled(stylesheet, cached)
	}
}

func (w *stylesheetWatcher) watchDir(dir string) error {
	if _, ok := w.watchedDirs[dir]; ok {
		return nil
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		return err
	}
	w.watchedDirs[dir] = struct{}{}
	w.logger.Debug().Str("dir", dir).Msg("watching directory")
	return nil
}

func (w *stylesheetWatcher) isWatchedFile(path string) bool {
	if filepath.ToSlash(path) == w.path {
		return true
	}
	ok, _ := doublestar.Match(w.pattern, filepath.Base(path))
	return ok
}
