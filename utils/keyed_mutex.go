package utils

import "sync"

// KeyedMutex provides per-key locking. Locks are created on demand and
// removed once no goroutine holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[uint]*keyedLock)}
}

// Lock acquires the lock for the given key, blocking until it is free
func (km *KeyedMutex) Lock(key uint) {
	km.mu.Lock()
	lock, ok := km.locks[key]
	if !ok {
		lock = &keyedLock{}
		km.locks[key] = lock
	}
	lock.refs++
	km.mu.Unlock()

	lock.mu.Lock()
}

// Unlock releases the lock for the given key
func (km *KeyedMutex) Unlock(key uint) {
	km.mu.Lock()
	lock, ok := km.locks[key]
	if !ok {
		km.mu.Unlock()
		panic("keyed mutex: unlock of unlocked key")
	}
	lock.refs--
	if lock.refs == 0 {
		delete(km.locks, key)
	}
	km.mu.Unlock()

	lock.mu.Unlock()
}
