package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/posecap/logging"
)

// A Watcher delivers every new valid revision of a config file. Revisions that fail to parse
// or validate are logged and skipped so a half-saved file never reaches the pipeline.
type Watcher struct {
	path    string
	fs      *fsnotify.Watcher
	configs chan *Config
	workers *goutils.StoppableWorkers
	logger  logging.Logger
	last    []byte
	current *Config
}

// NewWatcher watches the config file at path. The file's directory is watched rather than the
// file itself since editors commonly save by replacing the file.
func NewWatcher(path string, logger logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	//nolint:gosec
	initial, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		return nil, errors.Wrapf(multierr.Combine(err, fsWatcher.Close()), "cannot watch %q", path)
	}

	w := &Watcher{
		path:    abs,
		fs:      fsWatcher,
		configs: make(chan *Config, 1),
		logger:  logger,
		last:    initial,
	}
	if current, err := fromBytes(abs, initial); err == nil {
		w.current = current
	}
	w.workers = goutils.NewBackgroundStoppableWorkers(w.watch)
	return w, nil
}

// Config returns the channel new revisions are sent on. Only the latest revision is kept if
// the receiver falls behind.
func (w *Watcher) Config() <-chan *Config {
	return w.configs
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.fs.Close()
	w.workers.Stop()
	return err
}

func (w *Watcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("error watching config", "path", w.path, "error", err)
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	//nolint:gosec
	buf, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Debugw("config file not readable yet", "path", w.path, "error", err)
		return
	}
	if bytes.Equal(buf, w.last) {
		return
	}
	cfg, err := fromBytes(w.path, buf)
	if err != nil {
		w.logger.Warnw("ignoring invalid config revision", "path", w.path, "error", err)
		return
	}
	w.last = buf
	w.logger.Infow("config changed", "path", w.path)
	if w.current != nil {
		if diff, err := Diff(w.current, cfg); err == nil {
			w.logger.Debugw("config diff", "diff", diff)
		}
	}
	w.current = cfg

	// drop a revision nobody picked up yet in favor of this one.
	select {
	case <-w.configs:
	default:
	}
	select {
	case w.configs <- cfg:
	case <-ctx.Done():
	}
}
