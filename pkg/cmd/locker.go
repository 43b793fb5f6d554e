package cmd

import (
	"fmt"
	"log/slog"

	"github.com/hirepath/hirepath/pkg/locking"
)

// NewLocker returns a Redis locker when a redis URL is given, else an in-process one. The
// returned close function releases the Redis client.
func NewLocker(redisURL string, logger *slog.Logger) (locking.Locker, func() error) {
	if redisURL == "" {
		logger.Warn("No redis url configured, using in-process locks; run a single API instance")

		return locking.NewLocalLocker(), func() error { return nil }
	}

	client, err := locking.NewRedisClient(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to create redis locker: %w", err))
	}

	locker := locking.NewRedisLocker(client, logger)

	return locker, locker.Close
}
