package slots

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisChecker(t *testing.T) (*RedisChecker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisChecker(client, time.Minute), mr
}

func TestRedisCheckAndReserveAtMostOneHolder(t *testing.T) {
	checker, _ := newRedisChecker(t)
	ctx := context.Background()

	ok, err := checker.CheckAndReserve(ctx, "sess-1", ref(10))
	if err != nil || !ok {
		t.Fatalf("first reserve: ok=%v err=%v", ok, err)
	}

	ok, err = checker.CheckAndReserve(ctx, "sess-2", ref(10))
	if err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	if ok {
		t.Fatal("two holders reserved the same provider+date+hour")
	}
}

func TestRedisReserveIsStableForOwner(t *testing.T) {
	checker, _ := newRedisChecker(t)
	ctx := context.Background()

	if ok, _ := checker.CheckAndReserve(ctx, "sess-1", ref(11)); !ok {
		t.Fatal("reserve failed")
	}
	ok, err := checker.CheckAndReserve(ctx, "sess-1", ref(11))
	if err != nil || !ok {
		t.Fatalf("owner reselect should succeed, ok=%v err=%v", ok, err)
	}
}

func TestRedisAvailabilityReflectsHolds(t *testing.T) {
	checker, _ := newRedisChecker(t)
	ctx := context.Background()

	open, err := checker.Availability(ctx, ref(9))
	if err != nil || !open {
		t.Fatalf("expected unheld slot open, open=%v err=%v", open, err)
	}

	if ok, _ := checker.CheckAndReserve(ctx, "sess-1", ref(9)); !ok {
		t.Fatal("reserve failed")
	}
	open, _ = checker.Availability(ctx, ref(9))
	if open {
		t.Fatal("held slot must render unavailable")
	}
}

func TestRedisHoldExpires(t *testing.T) {
	checker, mr := newRedisChecker(t)
	ctx := context.Background()

	if ok, _ := checker.CheckAndReserve(ctx, "sess-1", ref(15)); !ok {
		t.Fatal("reserve failed")
	}
	mr.FastForward(2 * time.Minute)

	ok, err := checker.CheckAndReserve(ctx, "sess-2", ref(15))
	if err != nil || !ok {
		t.Fatalf("expected expired hold to be reservable, ok=%v err=%v", ok, err)
	}
}

func TestRedisRelease(t *testing.T) {
	checker, _ := newRedisChecker(t)
	ctx := context.Background()

	if ok, _ := checker.CheckAndReserve(ctx, "sess-1", ref(13)); !ok {
		t.Fatal("reserve failed")
	}
	if err := checker.Release(ctx, "sess-2", ref(13)); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := checker.CheckAndReserve(ctx, "sess-2", ref(13)); ok {
		t.Fatal("non-owner release must not free the hold")
	}

	if err := checker.Release(ctx, "sess-1", ref(13)); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := checker.CheckAndReserve(ctx, "sess-2", ref(13)); !ok {
		t.Fatal("owner release should free the hold")
	}
}
