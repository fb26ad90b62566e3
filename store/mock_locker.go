package store

import "time"

// MockLocker satisfies Locker without touching the filesystem.
type MockLocker struct {
	LockErr error
	Held    bool
}

func (m *MockLocker) Lock(time.Duration) error {
	if m.LockErr != nil {
		return m.LockErr
	}
	m.Held = true
	return nil
}

func (m *MockLocker) Unlock() error {
	m.Held = false
	return nil
}
