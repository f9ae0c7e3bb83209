package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/presensi/attendance-api/internal/core/domain"
)

const defaultLockTTL = 5 * time.Second

// releaseScript deletes the lock only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CheckInLocker serialises check-in attempts per user across replicas.
// Key format: checkin-lock:<user_id>
type CheckInLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCheckInLocker creates a CheckInLocker wrapping the given Redis client.
func NewCheckInLocker(client redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *CheckInLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &CheckInLocker{client: client, ttl: ttl, log: log}
}

// Acquire takes the per-user lock or fails with domain.ErrCheckInBusy when
// another attempt holds it. The returned release func is always safe to call.
func (l *CheckInLocker) Acquire(ctx context.Context, userID string) (func(), error) {
	key := l.key(userID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("checkin lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrCheckInBusy
	}

	release := func() {
		// Release even when the request context is already cancelled.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := releaseScript.Run(relCtx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.log.Warn().Err(err).Str("key", key).Msg("failed to release check-in lock")
		}
	}
	return release, nil
}

func (l *CheckInLocker) key(userID string) string {
	return "checkin-lock:" + userID
}
