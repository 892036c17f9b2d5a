package slots

import (
	"context"
	"testing"
)

func ref(hour int) SlotRef {
	return SlotRef{ProviderID: "prov-1", Date: "2026-09-07", Hour: hour}
}

func TestSimulatedAvailabilityIsMemoized(t *testing.T) {
	checker := NewSimulatedChecker(0.5, 0, 42)
	ctx := context.Background()

	first, err := checker.Availability(ctx, ref(9))
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := checker.Availability(ctx, ref(9))
		if again != first {
			t.Fatal("availability for a slot key must not change between checks")
		}
	}
}

func TestSimulatedCheckerExtremes(t *testing.T) {
	ctx := context.Background()

	alwaysOpen := NewSimulatedChecker(1.0, 0, 1)
	open, _ := alwaysOpen.Availability(ctx, ref(9))
	if !open {
		t.Error("base availability 1.0 must always be open")
	}

	neverOpen := NewSimulatedChecker(0.0, 0, 1)
	open, _ = neverOpen.Availability(ctx, ref(9))
	if open {
		t.Error("base availability 0.0 must never be open")
	}
}

func TestSimulatedReserveStableOnReselection(t *testing.T) {
	// Race chance 1.0 would lose every fresh roll; a held reservation
	// must not re-roll.
	checker := NewSimulatedChecker(1.0, 0, 7)
	ctx := context.Background()

	ok, err := checker.CheckAndReserve(ctx, "sess-1", ref(10))
	if err != nil || !ok {
		t.Fatalf("expected initial reserve to succeed, ok=%v err=%v", ok, err)
	}

	checker.raceChance = 1.0
	ok, _ = checker.CheckAndReserve(ctx, "sess-1", ref(10))
	if !ok {
		t.Fatal("reselecting an already-held slot must stay reserved, not re-roll")
	}

	ok, _ = checker.CheckAndReserve(ctx, "sess-2", ref(10))
	if ok {
		t.Fatal("a second holder must not steal a held slot")
	}
}

func TestSimulatedRaceLossIsPermanent(t *testing.T) {
	checker := NewSimulatedChecker(1.0, 1.0, 3)
	ctx := context.Background()

	ok, _ := checker.CheckAndReserve(ctx, "sess-1", ref(11))
	if ok {
		t.Fatal("race chance 1.0 must lose the first reserve")
	}

	checker.raceChance = 0
	ok, _ = checker.CheckAndReserve(ctx, "sess-1", ref(11))
	if ok {
		t.Fatal("a slot lost to the rival actor must stay taken")
	}
	open, _ := checker.Availability(ctx, ref(11))
	if open {
		t.Fatal("a taken slot must render unavailable")
	}
}

func TestSimulatedRelease(t *testing.T) {
	checker := NewSimulatedChecker(1.0, 0, 9)
	ctx := context.Background()

	if ok, _ := checker.CheckAndReserve(ctx, "sess-1", ref(14)); !ok {
		t.Fatal("reserve failed")
	}
	if err := checker.Release(ctx, "sess-2", ref(14)); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := checker.CheckAndReserve(ctx, "sess-2", ref(14)); ok {
		t.Fatal("release by a non-owner must not free the hold")
	}

	if err := checker.Release(ctx, "sess-1", ref(14)); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := checker.CheckAndReserve(ctx, "sess-2", ref(14)); !ok {
		t.Fatal("released slot should be reservable by another holder")
	}
}
