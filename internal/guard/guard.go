// Package guard makes sure only one check loop runs at a time for a given device.
//
// The guard is a lease rather than a flag: a holder that dies without releasing it blocks new loops for at most
// the lease expiry.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultExpiry is one full loop timeout plus a margin.
const DefaultExpiry = 10*time.Minute + time.Minute

// A Store persists leases. Acquire must be atomic: it grants the lease if there is none, or if the current one
// was acquired more than expiry ago. Release removes the lease, whether it exists or not.
type Store interface {
	Acquire(ctx context.Context, key string, now time.Time, expiry time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Guard is a lease on a single key.
type Guard struct {
	store  Store
	key    string
	expiry time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Guard for key. If expiry is not positive, DefaultExpiry is used.
func New(store Store, key string, expiry time.Duration, logger *slog.Logger) *Guard {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Guard{
		store:  store,
		key:    key,
		expiry: expiry,
		logger: logger,
		now:    time.Now,
	}
}

// Expiry returns the lease expiry needed for loops running at most maxDuration.
func Expiry(maxDuration, margin time.Duration) time.Duration {
	return maxDuration + margin
}

// TryAcquire takes the lease. It returns false if another holder has it.
func (g *Guard) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := g.store.Acquire(ctx, g.key, g.now(), g.expiry)
	if err != nil {
		return false, fmt.Errorf("guard %s: %w", g.key, err)
	}
	g.logger.Debug("lease requested", "key", g.key, "granted", ok)
	return ok, nil
}

// Release gives up the lease. Releasing a lease that isn't held is not an error.
func (g *Guard) Release(ctx context.Context) error {
	if err := g.store.Release(ctx, g.key); err != nil {
		return fmt.Errorf("guard %s: %w", g.key, err)
	}
	g.logger.Debug("lease released", "key", g.key)
	return nil
}
