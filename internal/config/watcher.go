package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// settleDelay coalesces the burst of events an editor produces on save.
const settleDelay = 100 * time.Millisecond

// Watcher reloads settings when the config file changes.
// It watches the directory so that editors that replace the file on save
// are still seen.
type Watcher struct {
	v        *viper.Viper
	path     string
	onChange func(Settings)

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	timer   *time.Timer
	done    chan struct{}
	closed  bool
}

// NewWatcher starts watching the file v was read from. onChange receives
// every successfully loaded snapshot; invalid files are logged and skipped.
func NewWatcher(v *viper.Viper, onChange func(Settings)) (*Watcher, error) {
	path := v.ConfigFileUsed()
	if path == "" {
		return nil, errors.New("no config file in use")
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	log.Info("fsnotify watching config", "file", path)

	w := &Watcher{
		v:        v,
		path:     path,
		onChange: onChange,
		watcher:  fw,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Debug("fsnotify error", "file", w.path, "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(settleDelay, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	if err := w.v.ReadInConfig(); err != nil {
		log.Error("Can't re-read config", "file", w.path, "error", err)
		return
	}
	s, err := Load(w.v)
	if err != nil {
		log.Error("Ignoring invalid config", "file", w.path, "error", err)
		return
	}
	log.Info("Config reloaded", "file", w.path)
	w.onChange(s)
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}
