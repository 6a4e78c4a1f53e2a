package backup

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// rootLock is an advisory lock file in the backup root so two runs never
// write into the same root at once.
type rootLock struct {
	flock *flock.Flock
}

func newRootLock(root string) *rootLock {
	return &rootLock{flock: flock.New(filepath.Join(root, lockName))}
}

func (l *rootLock) Lock() error {
	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock backup root: %w", err)
	}
	if !locked {
		return ErrRootLocked
	}
	return nil
}

func (l *rootLock) Unlock() error {
	if !l.flock.Locked() {
		return nil
	}

	// the lock file is left in place
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock backup root: %w", err)
	}
	return nil
}
