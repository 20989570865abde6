// Package keylock serialises read-modify-write cycles on a named key.
package keylock

import (
	"context"
	"sync"
)

// Locker grants exclusive access to a key. Lock blocks until the key is free
// or ctx is done; the returned func releases it and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// MemoryLocker is an in-process Locker. Each key gets its own one-slot
// channel, so unrelated keys never wait on each other.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch    chan struct{}
	users int
}

// NewMemoryLocker returns an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: map[string]*slot{}}
}

// Lock implements Locker.
func (m *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	s := m.acquireSlot(key)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		m.releaseSlot(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			m.releaseSlot(key, s)
		})
	}, nil
}

func (m *MemoryLocker) acquireSlot(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.users++
	return s
}

func (m *MemoryLocker) releaseSlot(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.users--
	if s.users == 0 {
		delete(m.slots, key)
	}
}

// Len reports how many keys are currently held or waited on.
func (m *MemoryLocker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}
