package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/glustercore/iocore/internal/logger"
	"github.com/glustercore/iocore/pkg/iothreads"
)

// ReloadHandler receives the freshly loaded configuration on every
// change to the watched file. Errors from Load are logged and skipped;
// the previous configuration stays in effect.
type ReloadHandler func(cfg *Config)

// Watcher watches a config file for writes and re-applies IOThreads
// tunables on change, a filesystem-driven alternative to a REST-driven
// control-plane reload.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
}

// WatchIOThreads starts watching configPath and calls it.Reconfigure
// whenever the file is rewritten and reloads cleanly. onReload, if
// non-nil, is invoked after every successful reload (including the
// IOThreads.Reconfigure call) for callers that want to react to other
// sections of the config too.
func WatchIOThreads(configPath string, it *iothreads.IOThreads, onReload ReloadHandler) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	if err := fw.Add(configPath); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	w := &Watcher{
		path:    configPath,
		watcher: fw,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go w.loop(it, onReload)

	return w, nil
}

func (w *Watcher) loop(it *iothreads.IOThreads, onReload ReloadHandler) {
	defer close(w.done)

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, err := Load(w.path)
			if err != nil {
				logger.Error("config reload failed, keeping previous configuration", "path", w.path, "error", err)
				continue
			}

			it.Reconfigure(cfg.IOThreads)
			logger.Info("applied reconfigured io-threads tunables", "path", w.path)

			if onReload != nil {
				onReload(cfg)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("config watcher error", "error", err)
		}
	}
}

// Close stops the watcher and releases its underlying fsnotify handle.
func (w *Watcher) Close() error {
	close(w.stop)
	<-w.done
	return w.watcher.Close()
}
