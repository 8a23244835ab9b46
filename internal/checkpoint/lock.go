package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked means another run holds the checkpoint.
var ErrLocked = errors.New("checkpoint is locked by another run")

// Lock guards a checkpoint file against concurrent runs.
type Lock struct {
	lock *flock.Flock
}

// AcquireLock takes a non-blocking exclusive lock on path+".lock".
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	l := flock.New(path + ".lock")
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, l.Path())
	}
	return &Lock{lock: l}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return l.lock.Unlock()
}
