package daemon

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"briefcast/internal/config"
)

// ErrLocked is returned when another briefcast process holds the data lock.
var ErrLocked = errors.New("another briefcast process is using the data directory")

// LockPath returns the lock file guarding cfg's data directory.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "briefcast.lock")
}

// Lock is a held data-directory lock.
type Lock struct {
	lock *flock.Flock
}

// AcquireLock takes the data-directory lock without waiting.
func AcquireLock(cfg *config.Config) (*Lock, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	fl := flock.New(LockPath(cfg))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{lock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.lock.Path()
}

// Release unlocks. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}

// Locked reports whether some process currently holds the lock for cfg.
func Locked(cfg *config.Config) bool {
	fl := flock.New(LockPath(cfg))
	ok, err := fl.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = fl.Unlock()
		return false
	}
	return true
}
