package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultHoldTTL = 30 * time.Minute

// RedisChecker is a ReservationChecker backed by Redis. CheckAndReserve is a
// conditional write keyed by provider+date+hour, so at most one holder can
// reserve a slot no matter how many actors contend for it.
type RedisChecker struct {
	redis   *redis.Client
	holdTTL time.Duration
	tracer  trace.Tracer
}

// NewRedisChecker creates a checker with the given hold TTL. A zero TTL uses
// the default, which matches the booking session TTL.
func NewRedisChecker(client *redis.Client, holdTTL time.Duration) *RedisChecker {
	if client == nil {
		panic("slots: redis client cannot be nil")
	}
	if holdTTL <= 0 {
		holdTTL = defaultHoldTTL
	}
	return &RedisChecker{
		redis:   client,
		holdTTL: holdTTL,
		tracer:  otel.Tracer("portal.internal.slots"),
	}
}

func holdKey(ref SlotRef) string {
	return fmt.Sprintf("slot_hold:%s", ref.Key())
}

// Availability reports whether no hold exists for the slot.
func (c *RedisChecker) Availability(ctx context.Context, ref SlotRef) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "slots.availability")
	defer span.End()

	n, err := c.redis.Exists(ctx, holdKey(ref)).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("slots: availability check: %w", err)
	}
	return n == 0, nil
}

// CheckAndReserve atomically claims the slot for holder. Reclaiming a hold
// the holder already owns succeeds without extending contention.
func (c *RedisChecker) CheckAndReserve(ctx context.Context, holder string, ref SlotRef) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "slots.check_and_reserve")
	defer span.End()

	ok, err := c.redis.SetNX(ctx, holdKey(ref), holder, c.holdTTL).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("slots: reserve: %w", err)
	}
	if ok {
		return true, nil
	}

	owner, err := c.redis.Get(ctx, holdKey(ref)).Result()
	if err != nil {
		if err == redis.Nil {
			// Hold expired between SetNX and Get; treat as lost, the
			// next selection attempt will re-reserve.
			return false, nil
		}
		span.RecordError(err)
		return false, fmt.Errorf("slots: reserve owner check: %w", err)
	}
	return owner == holder, nil
}

// Release drops the hold if holder owns it.
func (c *RedisChecker) Release(ctx context.Context, holder string, ref SlotRef) error {
	ctx, span := c.tracer.Start(ctx, "slots.release")
	defer span.End()

	owner, err := c.redis.Get(ctx, holdKey(ref)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		span.RecordError(err)
		return fmt.Errorf("slots: release owner check: %w", err)
	}
	if owner != holder {
		return nil
	}
	if err := c.redis.Del(ctx, holdKey(ref)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("slots: release: %w", err)
	}
	return nil
}
