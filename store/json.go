// Copyright 2017 Microsoft. All rights reserved.
// MIT License

package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cort-runtime/cortnet/internal/fs"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	lockExtension = ".lock"
	// DefaultLockTimeout is used when Lock is given a zero timeout.
	DefaultLockTimeout = 10 * time.Second
)

// Locker serializes access to the store across processes.
type Locker interface {
	Lock(timeout time.Duration) error
	Unlock() error
}

// jsonFileStore is an implementation of KeyValueStore using a local JSON file.
type jsonFileStore struct {
	fileName string
	fs       afero.Fs
	locker   Locker
	data     map[string]*json.RawMessage
	inSync   bool
	locked   bool
	sync.Mutex
}

// NewJsonFileStore creates a new jsonFileStore object, accessed as a KeyValueStore.
//
//nolint:revive // keeping the historical name
func NewJsonFileStore(fileName string, fsys afero.Fs, locker Locker) (KeyValueStore, error) {
	if fileName == "" {
		return nil, errors.New("store file name is empty")
	}
	if locker == nil {
		locker = NewFileLocker(fileName + lockExtension)
	}
	return &jsonFileStore{
		fileName: fileName,
		fs:       fsys,
		locker:   locker,
		data:     make(map[string]*json.RawMessage),
	}, nil
}

func (kvs *jsonFileStore) Exists() bool {
	ok, err := afero.Exists(kvs.fs, kvs.fileName)
	return err == nil && ok
}

// Read restores the value for the given key from persistent store.
func (kvs *jsonFileStore) Read(key string, value interface{}) error {
	kvs.Mutex.Lock()
	defer kvs.Mutex.Unlock()

	if !kvs.inSync {
		if err := kvs.load(); err != nil {
			return err
		}
	}

	raw, ok := kvs.data[key]
	if !ok {
		return errors.Wrapf(ErrKeyNotFound, "%s", key)
	}
	return errors.Wrapf(json.Unmarshal(*raw, value), "failed to decode key %s", key)
}

func (kvs *jsonFileStore) load() error {
	b, err := afero.ReadFile(kvs.fs, kvs.fileName)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(b) == 0) {
		return ErrStoreEmpty
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", kvs.fileName)
	}
	if err := json.Unmarshal(b, &kvs.data); err != nil {
		return errors.Wrapf(err, "failed to decode %s", kvs.fileName)
	}
	kvs.inSync = true
	return nil
}

// Write saves the given key value pair to persistent store.
func (kvs *jsonFileStore) Write(key string, value interface{}) error {
	kvs.Mutex.Lock()
	defer kvs.Mutex.Unlock()

	if !kvs.inSync {
		if err := kvs.load(); err != nil && !errors.Is(err, ErrStoreEmpty) {
			return err
		}
	}

	b, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode key %s", key)
	}
	raw := json.RawMessage(b)
	kvs.data[key] = &raw

	return kvs.flush()
}

func (kvs *jsonFileStore) flush() error {
	if err := kvs.fs.MkdirAll(filepath.Dir(kvs.fileName), 0o755); err != nil { //nolint:gomnd // state dir mode
		return errors.Wrapf(err, "failed to create directory for %s", kvs.fileName)
	}

	b, err := json.MarshalIndent(&kvs.data, "", "\t")
	if err != nil {
		return errors.Wrap(err, "failed to encode store")
	}

	w, err := fs.NewAtomicWriter(kvs.fs, kvs.fileName)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	kvs.inSync = true
	return nil
}

// Lock locks the store for exclusive access.
func (kvs *jsonFileStore) Lock(timeout time.Duration) error {
	if timeout == 0 {
		timeout = DefaultLockTimeout
	}
	if err := kvs.locker.Lock(timeout); err != nil {
		return err
	}

	kvs.Mutex.Lock()
	defer kvs.Mutex.Unlock()
	kvs.locked = true
	// another process may have written while we were unlocked
	kvs.inSync = false
	kvs.data = make(map[string]*json.RawMessage)
	return nil
}

// Unlock unlocks the store.
func (kvs *jsonFileStore) Unlock() error {
	kvs.Mutex.Lock()
	defer kvs.Mutex.Unlock()

	if !kvs.locked {
		return ErrStoreNotLocked
	}
	kvs.locked = false
	return kvs.locker.Unlock()
}

// GetModificationTime returns the modification time of the persistent store.
func (kvs *jsonFileStore) GetModificationTime() (time.Time, error) {
	info, err := kvs.fs.Stat(kvs.fileName)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to stat %s", kvs.fileName)
	}
	return info.ModTime().UTC(), nil
}

// Remove deletes the backing file and resets the in-memory state.
func (kvs *jsonFileStore) Remove() {
	kvs.Mutex.Lock()
	defer kvs.Mutex.Unlock()

	_ = kvs.fs.Remove(kvs.fileName)
	kvs.data = make(map[string]*json.RawMessage)
	kvs.inSync = false
}
