// Package buildlock serializes deploy daemon rebuilds against a single
// working directory using a non-blocking advisory flock on $GIT_DIR/config,
// the same file git itself locks briefly during ref updates, per §5's
// "GIT_DIR/config doubles as the build lock" shared-resource note.
package buildlock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned by Acquire when another process already holds the
// build lock.
var ErrLocked = errors.New("buildlock: already held by another process")

// Lock represents a held advisory lock on a config file. The zero value is
// not usable; obtain one from Acquire.
type Lock struct {
	f *os.File
}

// Acquire takes a non-blocking exclusive flock on configPath. It returns
// ErrLocked (not a generic error) when the lock is already held, so
// callers can distinguish "someone else is building" from a real I/O
// failure.
func Acquire(configPath string) (*Lock, error) {
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("buildlock: opening %s: %w", configPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("buildlock: flock %s: %w", configPath, err)
	}

	return &Lock{f: f}, nil
}

// Release drops the lock and closes the underlying file descriptor.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	if err != nil {
		return err
	}
	return closeErr
}
