package store

import (
	"context"
	"time"
)

// coalesceWindow bounds how long a burst of identical notifications on
// one channel collapses into a single authoritative read. Two
// close-together notifications may coalesce safely since each is
// resolved by a fresh read of the same state.
const coalesceWindow = 50 * time.Millisecond

// coalesceAcquire reports whether the caller should perform the
// authoritative read for (kind, key) now, or skip because another
// goroutine's read from within the last coalesceWindow already covers
// it. With no Redis configured every call proceeds directly against
// storage.
func (s *Store) coalesceAcquire(ctx context.Context, kind, key string) bool {
	if s.redis == nil {
		return true
	}
	cacheKey := "igo:coalesce:" + kind + ":" + key
	acquired, err := s.redis.SetNX(ctx, cacheKey, "1", coalesceWindow).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("coalesce cache unavailable, reading directly")
		return true
	}
	return acquired
}
