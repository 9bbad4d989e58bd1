package policy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadedEvent signals that the watched policy directory was reloaded
type ReloadedEvent struct {
	Timestamp time.Time
	Count     int
	Err       error
}

// FileWatcher monitors a policy directory and reloads the store when
// files change. Events are debounced so editors that write multiple
// times trigger one reload.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	loader   *Loader
	store    Store
	logger   *zap.Logger
	debounce time.Duration

	events chan ReloadedEvent
	stop   chan struct{}

	mu       sync.Mutex
	watching bool
}

// NewFileWatcher creates a watcher for a policy directory
func NewFileWatcher(path string, store Store, loader *Loader, logger *zap.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		path:     path,
		loader:   loader,
		store:    store,
		logger:   logger,
		debounce: 500 * time.Millisecond,
		events:   make(chan ReloadedEvent, 10),
		stop:     make(chan struct{}),
	}, nil
}

// Events returns the reload notification channel
func (fw *FileWatcher) Events() <-chan ReloadedEvent {
	return fw.events
}

// Watch starts watching the policy directory for changes
func (fw *FileWatcher) Watch(ctx context.Context) error {
	fw.mu.Lock()
	if fw.watching {
		fw.mu.Unlock()
		return fmt.Errorf("watcher is already running")
	}
	fw.watching = true
	fw.mu.Unlock()

	if err := fw.watcher.Add(fw.path); err != nil {
		fw.mu.Lock()
		fw.watching = false
		fw.mu.Unlock()
		return fmt.Errorf("failed to watch path: %w", err)
	}

	fw.logger.Info("watching policy directory",
		zap.String("path", fw.path),
		zap.Duration("debounce", fw.debounce),
	)

	go fw.watchLoop(ctx)
	return nil
}

// Stop stops the watcher
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if !fw.watching {
		return nil
	}
	fw.watching = false
	close(fw.stop)
	return fw.watcher.Close()
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stop:
			return
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(fw.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("policy watcher error", zap.Error(err))
		case <-fire:
			fw.reload(ctx)
		}
	}
}

func (fw *FileWatcher) reload(ctx context.Context) {
	count, err := fw.loader.LoadIntoStore(ctx, fw.path, fw.store)
	event := ReloadedEvent{Timestamp: time.Now(), Count: count, Err: err}
	if err != nil {
		fw.logger.Error("policy reload failed", zap.Error(err))
	} else {
		fw.logger.Info("policies reloaded", zap.Int("count", count))
	}

	select {
	case fw.events <- event:
	default:
		// Slow consumer; drop rather than block the watch loop
	}
}
