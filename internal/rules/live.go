package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Live holds the engine for a rule file and swaps it when the file changes.
type Live struct {
	path string
	log  *zap.Logger

	mu     sync.RWMutex
	engine *Engine
}

// NewLive loads path and returns a Live engine over it.
func NewLive(path string, log *zap.Logger) (*Live, error) {
	e, err := LoadFile(path, log)
	if err != nil {
		return nil, err
	}
	return &Live{path: path, log: log, engine: e}, nil
}

// Apply matches errText against the current rules.
func (l *Live) Apply(errText string) (Match, bool) {
	l.mu.RLock()
	e := l.engine
	l.mu.RUnlock()
	return e.Apply(errText)
}

// Len returns the number of usable rules currently loaded.
func (l *Live) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.engine.Len()
}

// Reload re-reads the rule file. On error the previous rules stay active.
func (l *Live) Reload() error {
	e, err := LoadFile(l.path, l.log)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.engine = e
	l.mu.Unlock()
	l.log.Info("rules reloaded", zap.String("path", l.path), zap.Int("rules", e.Len()))
	return nil
}

// Watch reloads the rules whenever the rule file is written, created or
// renamed into place. It blocks until ctx is done. The parent directory is
// watched so editors that replace the file are picked up.
func (l *Live) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(l.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(l.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if err := l.Reload(); err != nil {
				l.log.Warn("rule reload failed, keeping previous rules", zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.log.Warn("rule watcher error", zap.Error(err))
		}
	}
}
