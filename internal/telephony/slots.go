package telephony

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"hotelvoice/pkg/utils"
)

// RedisSlots enforces per-hotel concurrent call caps across worker
// instances using atomic redis counters.
type RedisSlots struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
	log   *slog.Logger
}

// NewRedisSlots builds a limiter. The ttl guards against leaked slots on
// worker crash and should exceed the maximum call duration.
func NewRedisSlots(rdb *redis.Client, limit int, ttl time.Duration, log *slog.Logger) *RedisSlots {
	return &RedisSlots{rdb: rdb, limit: limit, ttl: ttl, log: log}
}

func (s *RedisSlots) Acquire(ctx context.Context, hotelID string) (bool, error) {
	return utils.AcquireCallSlot(ctx, s.rdb, hotelID, s.limit, s.ttl)
}

// AtCapacity is a non-authoritative read used by the webhook to answer
// over-limit calls with a spoken busy message. Acquire remains the only
// authoritative check.
func (s *RedisSlots) AtCapacity(ctx context.Context, hotelID string) bool {
	n, err := utils.ActiveCallCount(ctx, s.rdb, hotelID)
	if err != nil {
		s.log.Warn("call slot read failed", "hotel_id", hotelID, "err", err)
		return false
	}
	return n >= s.limit
}

func (s *RedisSlots) Release(ctx context.Context, hotelID string) {
	if err := utils.ReleaseCallSlot(ctx, s.rdb, hotelID); err != nil {
		// A failed release self-heals when the key's TTL expires.
		s.log.Warn("call slot release failed", "hotel_id", hotelID, "err", err)
	}
}

// UnlimitedSlots never refuses a call. Used when no redis is configured
// and in tests.
type UnlimitedSlots struct{}

func (UnlimitedSlots) Acquire(context.Context, string) (bool, error) { return true, nil }
func (UnlimitedSlots) Release(context.Context, string)               {}
func (UnlimitedSlots) AtCapacity(context.Context, string) bool       { return false }
