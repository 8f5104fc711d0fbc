package lexicon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often a blocked lock attempt is retried.
const lockRetryDelay = 20 * time.Millisecond

// FileLock guards a lexicon file against concurrent writers in other
// processes. The lock lives next to the file as <file>.lock. Readers take
// a shared lock, writers an exclusive one.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock for the lexicon at path.
func NewFileLock(path string) *FileLock {
	lockPath := path + ".lock"
	return &FileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

func (l *FileLock) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	return nil
}

// Lock takes the exclusive lock, waiting until ctx is done.
func (l *FileLock) Lock(ctx context.Context) error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	ok, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = ok
	return nil
}

// RLock takes the shared lock, waiting until ctx is done.
func (l *FileLock) RLock(ctx context.Context) error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	ok, err := l.flock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire shared lock: %w", err)
	}
	l.locked = ok
	return nil
}

// TryLock attempts the exclusive lock without blocking. It returns false
// if another process holds the lock.
func (l *FileLock) TryLock() (bool, error) {
	if err := l.ensureDir(); err != nil {
		return false, err
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. It is safe to call on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// IsLocked reports whether the lock is held.
func (l *FileLock) IsLocked() bool {
	return l.locked
}
