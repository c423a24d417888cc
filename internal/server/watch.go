package server

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/workspace"
)

// watchEvent is a filesystem change that survived filtering.
type watchEvent struct {
	path   string
	op     string
	config bool
}

// watcher watches a project tree recursively, ignoring the build output.
type watcher struct {
	fs         *fsnotify.Watcher
	root       string
	output     string
	configFile string
	log        *slog.Logger
}

func newWatcher(root, outputDir, configFile string, log *slog.Logger) (*watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, sberrors.FileSystemError("abs", root, err)
	}
	absOut, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, sberrors.FileSystemError("abs", outputDir, err)
	}
	var absConfig string
	if configFile != "" {
		if absConfig, err = filepath.Abs(configFile); err != nil {
			return nil, sberrors.FileSystemError("abs", configFile, err)
		}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, sberrors.Wrap(err, sberrors.CategoryRuntime, sberrors.SeverityFatal, "failed to create file watcher")
	}
	w := &watcher{fs: fw, root: absRoot, output: absOut, configFile: absConfig, log: log}
	if err := w.addDirsRecursive(absRoot); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops the underlying fsnotify watcher.
func (w *watcher) Close() error { return w.fs.Close() }

// run forwards filtered events until ctx is done or the watcher closes.
func (w *watcher) run(ctx context.Context) <-chan watchEvent {
	out := make(chan watchEvent, 16)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fs.Events:
				if !ok {
					return
				}
				we, keep := w.handleFileEvent(ev)
				if !keep {
					continue
				}
				select {
				case out <- we:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.fs.Errors:
				if !ok {
					return
				}
				w.log.Warn("watcher error", logfields.Error(err))
			}
		}
	}()
	return out
}

func (w *watcher) handleFileEvent(ev fsnotify.Event) (watchEvent, bool) {
	if ev.Op == fsnotify.Chmod {
		return watchEvent{}, false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		abs = ev.Name
	}
	if w.configFile != "" && abs == w.configFile {
		return watchEvent{path: ev.Name, op: ev.Op.String(), config: true}, true
	}
	if w.inOutput(abs) || shouldIgnoreEvent(abs) {
		return watchEvent{}, false
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(abs)
		}
	}
	return watchEvent{path: ev.Name, op: ev.Op.String()}, true
}

// inOutput reports whether path is the output tree or one of its staging or
// backup siblings.
func (w *watcher) inOutput(path string) bool {
	return workspace.IsBuildPath(w.output, path)
}

func (w *watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && (w.inOutput(path) || shouldIgnoreEvent(path) || d.Name() == "node_modules") {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.log.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for paths that should not trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	if base == "Thumbs.db" {
		return true
	}
	return strings.Contains(filepath.ToSlash(path), "/node_modules/")
}
