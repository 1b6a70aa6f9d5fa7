package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher follows a config file and reports the hot-reloadable differences
// of every valid new version. Invalid versions are logged and skipped; the
// last valid config stays current.
//
// The parent directory is watched rather than the file so editors that save
// by renaming a temporary file over the original are picked up.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(d ConfigDiff, cfg *Config)
	fs       *fsnotify.Watcher
	close    sync.Once

	mu      sync.Mutex
	current *Config
	sum     [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits for a burst of file events
// to settle before reloading. The default is 250ms.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher loads the config at path and subscribes to changes of it.
// Changes are delivered once [Watcher.Run] is running.
func NewWatcher(path string, onChange func(d ConfigDiff, cfg *Config), opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: watcher: %w", err)
	}
	w := &Watcher{path: abs, debounce: 250 * time.Millisecond, onChange: onChange}
	for _, opt := range opts {
		opt(w)
	}

	if w.current, w.sum, err = w.read(); err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	if w.fs, err = fsnotify.NewWatcher(); err != nil {
		return nil, fmt.Errorf("config: watcher: %w", err)
	}
	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		_ = w.fs.Close()
		return nil, fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close releases the file subscription. Run closes the watcher on return.
func (w *Watcher) Close() error {
	var err error
	w.close.Do(func() { err = w.fs.Close() })
	return err
}

// Run delivers changes until ctx is cancelled and returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	settle := time.NewTimer(w.debounce)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			settle.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher: notify error", "path", w.path, "err", err)
		case <-settle.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, sum, err := w.read()
	if err != nil {
		slog.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if sum == w.sum {
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current, w.sum = cfg, sum
	w.mu.Unlock()

	d := Diff(old, cfg)
	slog.Info("config watcher: configuration reloaded",
		"path", w.path,
		"log_level_changed", d.LogLevelChanged,
		"speaker_changes", len(d.SpeakerChanges),
	)
	if d.RestartRequired {
		slog.Warn("config watcher: some changes only take effect after a restart", "path", w.path)
	}
	// Outside the lock so the callback may call Current.
	if w.onChange != nil {
		w.onChange(d, cfg)
	}
}

// read parses and validates the file and returns it with the SHA-256 of its
// content.
func (w *Watcher) read() (*Config, [sha256.Size]byte, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	return cfg, sha256.Sum256(data), nil
}
