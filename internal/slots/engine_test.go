package slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harborview-health/patient-portal/internal/directory"
	"github.com/harborview-health/patient-portal/pkg/logging"
)

// stubChecker lets tests script availability and race outcomes.
type stubChecker struct {
	open    bool
	reserve bool
	err     error
}

func (s *stubChecker) Availability(ctx context.Context, ref SlotRef) (bool, error) {
	return s.open, s.err
}

func (s *stubChecker) CheckAndReserve(ctx context.Context, holder string, ref SlotRef) (bool, error) {
	return s.reserve, s.err
}

func mondayProvider() directory.Provider {
	return directory.Provider{
		ID:           "prov-1",
		Name:         "Dr. Sarah Chen",
		Availability: []string{"Mon", "Wed", "Fri"},
	}
}

func TestGenerateProducesHourlySlotsSkippingLunch(t *testing.T) {
	engine := NewEngine(DefaultConfig(), &stubChecker{open: true, reserve: true}, logging.Default())

	// 2026-09-07 is a Monday.
	list, suggestions, err := engine.Generate(context.Background(), mondayProvider(), "2026-09-07")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if suggestions != nil {
		t.Fatalf("expected no suggestions for an available day, got %v", suggestions)
	}
	if len(list.Slots) != 7 {
		t.Fatalf("expected 7 slots (9..16 minus lunch), got %d", len(list.Slots))
	}
	for _, s := range list.Slots {
		if s.Ref.Hour == 12 {
			t.Error("lunch hour must not be generated")
		}
		if !s.Available {
			t.Errorf("expected slot %s available", s.ID)
		}
	}
	if list.Slots[1].Display != "10:00 AM" {
		t.Errorf("expected second slot displayed as 10:00 AM, got %s", list.Slots[1].Display)
	}
}

func TestGenerateUnavailableWeekdaySuggestsDates(t *testing.T) {
	engine := NewEngine(DefaultConfig(), &stubChecker{open: true}, logging.Default())

	// 2026-09-06 is a Sunday; the provider works Mon/Wed/Fri.
	list, suggestions, err := engine.Generate(context.Background(), mondayProvider(), "2026-09-06")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(list.Slots) != 0 {
		t.Fatalf("expected empty slot list, got %d slots", len(list.Slots))
	}
	if len(suggestions) != 3 {
		t.Fatalf("expected 3 suggested dates, got %v", suggestions)
	}
	want := []string{"2026-09-07", "2026-09-09", "2026-09-11"}
	for i, date := range want {
		if suggestions[i] != date {
			t.Errorf("suggestion %d: expected %s, got %s", i, date, suggestions[i])
		}
	}
	provider := mondayProvider()
	for _, date := range suggestions {
		day, _ := time.Parse(dateLayout, date)
		if !provider.AvailableOn(day.Weekday().String()[:3]) {
			t.Errorf("suggested date %s falls outside provider availability", date)
		}
	}
}

func TestGenerateRejectsMalformedDate(t *testing.T) {
	engine := NewEngine(DefaultConfig(), &stubChecker{}, logging.Default())
	if _, _, err := engine.Generate(context.Background(), mondayProvider(), "07/09/2026"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestSelectRaceLossFlipsOnlyThatSlot(t *testing.T) {
	checker := &stubChecker{open: true, reserve: false}
	engine := NewEngine(DefaultConfig(), checker, logging.Default())

	list, _, err := engine.Generate(context.Background(), mondayProvider(), "2026-09-07")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	target := list.Slots[2].ID
	before := list.AvailableCount()

	_, err = engine.Select(context.Background(), "sess-1", list, target)
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if list.Find(target).Available {
		t.Error("raced slot must flip to unavailable")
	}
	if got := list.AvailableCount(); got != before-1 {
		t.Errorf("only the raced slot may change: expected %d available, got %d", before-1, got)
	}

	// The rest of the list stays selectable without a re-fetch.
	checker.reserve = true
	slot, err := engine.Select(context.Background(), "sess-1", list, list.Slots[3].ID)
	if err != nil {
		t.Fatalf("expected another slot to remain selectable, got %v", err)
	}
	if !slot.Available {
		t.Error("selected slot should be available")
	}
}

func TestSelectRejectsUnavailableAndUnknownSlots(t *testing.T) {
	engine := NewEngine(DefaultConfig(), &stubChecker{open: true, reserve: true}, logging.Default())
	list, _, _ := engine.Generate(context.Background(), mondayProvider(), "2026-09-07")

	list.MarkUnavailable(list.Slots[0].ID)
	if _, err := engine.Select(context.Background(), "sess-1", list, list.Slots[0].ID); !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("expected ErrSlotUnavailable, got %v", err)
	}
	if _, err := engine.Select(context.Background(), "sess-1", list, "prov-1:2026-09-07:23"); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("expected ErrUnknownSlot, got %v", err)
	}
}

// Once unavailable, a slot is never observed available again in the same
// list instance.
func TestSlotListMonotonicity(t *testing.T) {
	engine := NewEngine(DefaultConfig(), &stubChecker{open: true, reserve: false}, logging.Default())
	list, _, _ := engine.Generate(context.Background(), mondayProvider(), "2026-09-07")

	id := list.Slots[0].ID
	list.MarkUnavailable(id)
	for i := 0; i < 3; i++ {
		_, _ = engine.Select(context.Background(), "sess-1", list, id)
		if list.Find(id).Available {
			t.Fatal("unavailable slot observed available again")
		}
	}
}
