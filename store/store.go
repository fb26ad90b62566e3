// Copyright 2017 Microsoft. All rights reserved.
// MIT License

package store

import (
	"time"

	"github.com/pkg/errors"
)

// KeyValueStore is an interface to a persistent store of key value pairs.
type KeyValueStore interface {
	Exists() bool
	Read(key string, value interface{}) error
	Write(key string, value interface{}) error
	Lock(timeout time.Duration) error
	Unlock() error
	GetModificationTime() (time.Time, error)
	Remove()
}

var (
	// ErrKeyNotFound is returned when the key is not present in the store.
	ErrKeyNotFound = errors.New("key not found")
	// ErrStoreEmpty is returned when the backing file is missing or empty.
	ErrStoreEmpty = errors.New("empty store")
	// ErrStoreNotLocked is returned when an operation needs the lock and it is not held.
	ErrStoreNotLocked = errors.New("store is not locked")
	// ErrTimeoutLockingStore is returned when another process holds the lock past the timeout.
	ErrTimeoutLockingStore = errors.New("timed out locking store")
)
