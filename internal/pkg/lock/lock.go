// Package lock provides per-entity locking so that every read-modify-write of
// a game or duel row runs alone.
package lock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Scopes used by the services.
const (
	ScopeAutobus  = "autobus"
	ScopeDuel     = "duel"
	ScopeDuelUser = "duel_user"
)

// Key identifies a lockable entity.
type Key struct {
	Scope string
	ID    int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Scope, k.ID)
}

// AutobusGame returns the key of an Autobus game.
func AutobusGame(id int64) Key { return Key{Scope: ScopeAutobus, ID: id} }

// Duel returns the key of a duel.
func Duel(id int64) Key { return Key{Scope: ScopeDuel, ID: id} }

// DuelUser returns the key guarding duel creation for a user.
func DuelUser(userID int64) Key { return Key{Scope: ScopeDuelUser, ID: userID} }

// entry is a one-slot semaphore, so waiting can be cancelled.
type entry chan struct{}

// Keyed hands out one mutex per key.
type Keyed struct {
	locks sync.Map // map[Key]entry
}

// NewKeyed creates a new Keyed instance.
func NewKeyed() *Keyed {
	return &Keyed{}
}

func (k *Keyed) get(key Key) entry {
	if v, ok := k.locks.Load(key); ok {
		return v.(entry)
	}
	actual, _ := k.locks.LoadOrStore(key, make(entry, 1))
	return actual.(entry)
}

// Unlock releases key. Unlocking a key that is not held is a no-op.
func (k *Keyed) Unlock(key Key) {
	select {
	case <-k.get(key):
	default:
	}
}

// LockContext waits for key until ctx is done or timeout elapses.
// A zero timeout waits on ctx alone.
func (k *Keyed) LockContext(ctx context.Context, key Key, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case k.get(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		return ctx.Err()
	}
}

// WithLockContext executes fn while holding key, giving up after timeout.
func (k *Keyed) WithLockContext(ctx context.Context, key Key, timeout time.Duration, fn func() error) error {
	return k.WithLocksContext(ctx, []Key{key}, timeout, fn)
}

// WithLocksContext acquires every key in a fixed order, runs fn and releases
// them. The order makes overlapping key sets safe against deadlock.
func (k *Keyed) WithLocksContext(ctx context.Context, keys []Key, timeout time.Duration, fn func() error) error {
	ordered := dedupe(keys)

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	held := make([]Key, 0, len(ordered))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			k.Unlock(held[i])
		}
	}()

	for _, key := range ordered {
		remaining := time.Duration(0)
		if !deadline.IsZero() {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
		}
		if err := k.LockContext(ctx, key, remaining); err != nil {
			return err
		}
		held = append(held, key)
	}

	return fn()
}

func dedupe(keys []Key) []Key {
	out := make([]Key, 0, len(keys))
	seen := make(map[Key]bool, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].ID < out[j].ID
	})
	return out
}
