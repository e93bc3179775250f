// Package joblock provides economy.JobLocker implementations for electing a
// single runner of a scheduled job.
//
// Local serializes runs inside one process. Redis coordinates several
// processes that share a store.
package joblock

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/economy"
)

// Compile-time interface checks.
var (
	_ economy.JobLocker = (*Local)(nil)
	_ economy.JobLocker = (*Redis)(nil)
)

// Local is an in-process JobLocker. Locks expire after their TTL even if
// never released, mirroring the Redis implementation.
type Local struct {
	mu    sync.Mutex
	held  map[string]localLock
	now   func() time.Time
	nextN uint64
}

type localLock struct {
	n       uint64
	expires time.Time
}

// NewLocal returns an empty Local locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]localLock), now: time.Now}
}

// TryLock acquires key for ttl if it is free or expired.
func (l *Local) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, false, nil
	}

	l.nextN++
	n := l.nextN
	l.held[key] = localLock{n: n, expires: now.Add(ttl)}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// A lock that expired and was taken over belongs to someone else.
		if cur, ok := l.held[key]; ok && cur.n == n {
			delete(l.held, key)
		}
	}
	return release, true, nil
}
