// Package lock provides short-lived exclusive locks keyed by string, used to
// keep two requests from verifying the same payment at once.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLocked is returned by Acquire when another holder owns the key.
var ErrLocked = errors.New("lock is already held")

// Release gives up a lock obtained from Acquire. Releasing a lock that has
// expired and been taken by someone else is a no-op.
type Release func(ctx context.Context) error

// Locker hands out exclusive, expiring locks.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}
