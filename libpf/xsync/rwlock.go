// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package xsync holds lock types that own the data they protect.
package xsync // import "github.com/perfpt/jitperf/libpf/xsync"

import "sync"

// RWMutex wraps sync.RWMutex together with the value it guards. The value is only reachable
// through RLock/WLock, so code that forgets to lock does not compile.
//
//	type store struct {
//		entries xsync.RWMutex[map[uint64]string]
//	}
//
//	func (s *store) put(k uint64, v string) {
//		entries := s.entries.WLock()
//		defer s.entries.WUnlock(&entries)
//		(*entries)[k] = v
//	}
type RWMutex[T any] struct {
	guarded T
	mutex   sync.RWMutex
}

// NewRWMutex creates a new read-write mutex guarding the given value.
func NewRWMutex[T any](guarded T) RWMutex[T] {
	return RWMutex[T]{
		guarded: guarded,
	}
}

// RLock locks for reading and returns a pointer to the guarded value. The caller must not
// write through it or keep it past RUnlock.
func (mtx *RWMutex[T]) RLock() *T {
	mtx.mutex.RLock()
	return &mtx.guarded
}

// RUnlock releases a read lock and nils the reference obtained from RLock.
func (mtx *RWMutex[T]) RUnlock(ref **T) {
	*ref = nil
	mtx.mutex.RUnlock()
}

// WLock locks for writing and returns a pointer to the guarded value. The caller must not keep
// it past WUnlock.
func (mtx *RWMutex[T]) WLock() *T {
	mtx.mutex.Lock()
	return &mtx.guarded
}

// WUnlock releases a write lock and nils the reference obtained from WLock.
func (mtx *RWMutex[T]) WUnlock(ref **T) {
	*ref = nil
	mtx.mutex.Unlock()
}
