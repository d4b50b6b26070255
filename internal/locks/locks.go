// Package locks provides keyed, non-blocking mutual exclusion. Acquire never
// waits: a held key fails immediately with ErrLocked.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrLocked = errors.New("lock is held")

type Locker interface {
	// Acquire takes the lock for key. The lease expires after ttl unless
	// released earlier; a non-positive ttl means no expiry where supported.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}

// Local is an in-process Locker. Leases ignore ttl: the process owning them
// is the only one that can hold them.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ Locker = (*Local)(nil)

func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

func (l *Local) Acquire(_ context.Context, key string, _ time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrLocked
	}
	l.held[key] = struct{}{}
	return &localLease{owner: l, key: key}, nil
}

type localLease struct {
	owner *Local
	key   string
	once  sync.Once
}

func (l *localLease) Release(context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		delete(l.owner.held, l.key)
		l.owner.mu.Unlock()
	})
	return nil
}
