// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package pathlock_test

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagwire.dev/tagwire/pkg/pathlock"
)

func TestMutualExclusion(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "shared.lock")

	var running, maxRunning, total int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			handle, err := pathlock.NewLock(lockPath).Acquire()
			if err != nil {
				t.Error(err)
				return
			}
			defer handle.Release()

			now := atomic.AddInt32(&running, 1)
			for {
				max := atomic.LoadInt32(&maxRunning)
				if now <= max || atomic.CompareAndSwapInt32(&maxRunning, max, now) {
					break
				}
			}
			atomic.AddInt32(&total, 1)
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
	assert.Equal(t, int32(10), atomic.LoadInt32(&total))
}

func TestWithReleasesOnError(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "with.lock")

	err := pathlock.With(lockPath, func() error {
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	// the lock is free again
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := pathlock.With(lockPath, func() error { return nil })
		assert.NoError(t, err)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock was not released")
	}
}

func TestReleaseTwiceIsNoop(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "twice.lock")

	handle, err := pathlock.NewLock(lockPath).Acquire()
	require.NoError(t, err)
	require.NoError(t, handle.Release())
	require.NoError(t, handle.Release())
}

func TestDistinctPathsDoNotBlock(t *testing.T) {
	dir := t.TempDir()

	first, err := pathlock.NewLock(filepath.Join(dir, "a.lock")).Acquire()
	require.NoError(t, err)
	defer first.Release()

	done := make(chan struct{})
	go func() {
		defer close(done)
		second, err := pathlock.NewLock(filepath.Join(dir, "b.lock")).Acquire()
		if assert.NoError(t, err) {
			second.Release()
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unrelated lock blocked")
	}
}
