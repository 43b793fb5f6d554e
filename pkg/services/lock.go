package services

import (
	"context"

	"github.com/hirepath/hirepath/pkg/locking"
)

// withLock runs fn while holding the aggregate lock for key.
func withLock(ctx context.Context, locker locking.Locker, key string, fn func() error) error {
	release, err := locker.Acquire(ctx, key, locking.DefaultTTL)
	if err != nil {
		return err
	}

	defer func() {
		_ = release(context.WithoutCancel(ctx))
	}()

	return fn()
}
