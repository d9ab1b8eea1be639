// Package sendlock keeps at most one send in flight per wallet.
//
// The engines do not lock: two sends against the same UTXO set or nonce
// would race. Callers acquire the wallet's key here first.
package sendlock

import (
	"context"
	"sync"

	"github.com/AlexZinkM/escrow-custody/internal/model"
)

// Lease is a held lock. Release is idempotent.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out leases. Acquire never waits: a held key is a conflict.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Key names the lock for one wallet.
func Key(asset model.Asset, address string) string {
	return "send:" + asset.String() + ":" + address
}

func errHeld(key string) error {
	return model.Errorf(model.KindConflict, "acquire send lock", "a send for %s is already in flight", key)
}

// Local is a process-wide Locker.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal creates an empty local locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

func (l *Local) Acquire(ctx context.Context, key string) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, errHeld(key)
	}
	l.held[key] = struct{}{}
	return &localLease{owner: l, key: key}, nil
}

type localLease struct {
	owner *Local
	key   string
	once  sync.Once
}

func (l *localLease) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		delete(l.owner.held, l.key)
		l.owner.mu.Unlock()
	})
	return nil
}
