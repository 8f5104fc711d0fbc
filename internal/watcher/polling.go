package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"
)

// PollingWatcher detects changes to one file by comparing its modification
// time and size on every tick. Used when fsnotify is unavailable.
type PollingWatcher struct {
	interval time.Duration
	events   chan FileEvent
	errors   chan error
	stopCh   chan struct{}

	mu      sync.Mutex
	stopped bool
	path    string
	last    fileSnapshot
}

type fileSnapshot struct {
	exists  bool
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a polling watcher with the given interval.
func NewPollingWatcher(interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		interval: interval,
		events:   make(chan FileEvent, 100),
		errors:   make(chan error, 10),
		stopCh:   make(chan struct{}),
	}
}

// Start polls path until ctx is done or Stop is called.
func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	snap, err := statFile(path)
	if err != nil {
		return fmt.Errorf("initial stat: %w", err)
	}
	p.mu.Lock()
	p.path = path
	p.last = snap
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.poll(); err != nil {
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

func statFile(path string) (fileSnapshot, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileSnapshot{}, nil
	}
	if err != nil {
		return fileSnapshot{}, err
	}
	return fileSnapshot{exists: true, modTime: info.ModTime(), size: info.Size()}, nil
}

// poll compares the file with the previous tick and emits at most one event.
func (p *PollingWatcher) poll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur, err := statFile(p.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", p.path, err)
	}
	prev := p.last
	p.last = cur

	var op Operation
	switch {
	case !prev.exists && cur.exists:
		op = OpCreate
	case prev.exists && !cur.exists:
		op = OpDelete
	case cur.exists && (prev.modTime != cur.modTime || prev.size != cur.size):
		op = OpModify
	default:
		return nil
	}
	p.emitLocked(FileEvent{Path: p.path, Operation: op, Timestamp: time.Now()})
	return nil
}

func (p *PollingWatcher) emitLocked(event FileEvent) {
	if p.stopped {
		return
	}
	select {
	case p.events <- event:
	default:
		slog.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()))
	}
}

// Stop stops polling and closes the channels. Safe to call multiple times.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}
