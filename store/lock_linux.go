package store

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const lockPollInterval = 50 * time.Millisecond

// FileLocker takes an exclusive flock(2) on a lock file next to the store.
type FileLocker struct {
	path string
	file *os.File
}

func NewFileLocker(path string) *FileLocker {
	return &FileLocker{path: path}
}

func (l *FileLocker) Lock(timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil { //nolint:gomnd // state dir mode
		return errors.Wrapf(err, "failed to create directory for %s", l.path)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gomnd // lock file mode
	if err != nil {
		return errors.Wrapf(err, "failed to open lock file %s", l.path)
	}

	deadline := time.Now().Add(timeout)
	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			l.file = f
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			f.Close()
			return errors.Wrapf(err, "failed to lock %s", l.path)
		}
		if time.Now().After(deadline) {
			f.Close()
			return errors.Wrapf(ErrTimeoutLockingStore, "%s after %s", l.path, timeout)
		}
		time.Sleep(lockPollInterval)
	}
}

func (l *FileLocker) Unlock() error {
	if l.file == nil {
		return ErrStoreNotLocked
	}
	defer func() { l.file = nil }()
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return errors.Wrapf(err, "failed to unlock %s", l.path)
	}
	return errors.Wrapf(l.file.Close(), "failed to close %s", l.path)
}
