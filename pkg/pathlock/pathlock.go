// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package pathlock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Lock is a named mutex keyed by a filesystem path. It provides mutual
// exclusion both between goroutines of this process and between processes
// (via an advisory lock on the file itself). Acquire blocks until the lock
// is held; there is no timeout.
type Lock struct {
	path string
}

// Handle represents a held lock. Release must be called exactly once.
type Handle struct {
	entry    *lockEntry
	released bool
}

type lockEntry struct {
	mu       sync.Mutex
	fileLock *flock.Flock
	refs     int
}

var (
	registryMu sync.Mutex
	registry   = map[string]*lockEntry{}
)

// NewLock returns the lock named by path. The lock file is created on first
// acquire if it does not exist. Locks with the same cleaned absolute path
// share one underlying mutex.
func NewLock(path string) *Lock {
	return &Lock{path: path}
}

// Acquire blocks until the lock is held and returns a handle that releases
// it. Goroutines of this process serialize on an in-process mutex; the
// holder additionally takes an advisory file lock for cross-process
// exclusion.
func (l *Lock) Acquire() (*Handle, error) {
	abs, err := filepath.Abs(l.path)
	if err != nil {
		return nil, fmt.Errorf("resolving lock path: %s", err)
	}

	registryMu.Lock()
	entry, found := registry[abs]
	if !found {
		entry = &lockEntry{fileLock: flock.New(abs)}
		registry[abs] = entry
	}
	entry.refs++
	registryMu.Unlock()

	entry.mu.Lock()

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		l.abandon(abs, entry)
		return nil, fmt.Errorf("creating lock file directory: %s", err)
	}
	if err := entry.fileLock.Lock(); err != nil {
		l.abandon(abs, entry)
		return nil, fmt.Errorf("locking '%s': %s", abs, err)
	}

	return &Handle{entry: entry}, nil
}

func (l *Lock) abandon(abs string, entry *lockEntry) {
	entry.mu.Unlock()
	registryMu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(registry, abs)
	}
	registryMu.Unlock()
}

// Release gives the lock up. Releasing twice is a no-op.
func (h *Handle) Release() error {
	if h.released {
		return nil
	}
	h.released = true

	err := h.entry.fileLock.Unlock()
	h.entry.mu.Unlock()

	registryMu.Lock()
	h.entry.refs--
	if h.entry.refs == 0 {
		delete(registry, h.entry.fileLock.Path())
	}
	registryMu.Unlock()

	if err != nil {
		return fmt.Errorf("unlocking '%s': %s", h.entry.fileLock.Path(), err)
	}
	return nil
}

// With acquires the lock named by path for the duration of fn. The lock is
// released even when fn returns an error.
func With(path string, fn func() error) error {
	handle, err := NewLock(path).Acquire()
	if err != nil {
		return err
	}
	defer handle.Release()
	return fn()
}
