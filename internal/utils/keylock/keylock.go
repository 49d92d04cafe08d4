// Package keylock provides the per-tournament serialization token shared by
// the leaderboard ranker, the registration gate and the sync scheduler.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock serializes work per key. Entries are created on first use and
// removed once no goroutine references them.
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *KeyLock {
	return &KeyLock{entries: make(map[string]*entry)}
}

func (l *KeyLock) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *KeyLock) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Do runs fn while holding the key's token, waiting for it if necessary.
func (l *KeyLock) Do(key string, fn func()) {
	e := l.acquire(key)
	defer l.release(key, e)

	e.mu.Lock()
	defer e.mu.Unlock()

	fn()
}

// TryDo runs fn only if the key's token is free, reporting whether it ran.
// An overlapping attempt is skipped, never queued.
func (l *KeyLock) TryDo(key string, fn func()) bool {
	e := l.acquire(key)
	defer l.release(key, e)

	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	fn()
	return true
}
