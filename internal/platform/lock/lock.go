// Package lock provides keyed critical sections for mutating service
// operations. Keys name the resource being protected, e.g. "visit:42" or
// "schedule:doctor:3".
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when a lock could not be obtained before the
// context was done.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker acquires an exclusive lock on key. The returned func releases it and
// is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Do runs fn while holding key.
func Do(ctx context.Context, l Locker, key string, fn func(ctx context.Context) error) error {
	unlock, err := l.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(ctx)
}
