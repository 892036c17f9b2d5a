package slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harborview-health/patient-portal/internal/directory"
	"github.com/harborview-health/patient-portal/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrSlotTaken is the non-fatal race loss: the slot was claimed by
	// another actor between display and confirmation.
	ErrSlotTaken = errors.New("slots: slot was just taken")
	// ErrSlotUnavailable rejects selection of a slot already shown as taken.
	ErrSlotUnavailable = errors.New("slots: slot is not available")
	// ErrUnknownSlot rejects selection of a slot not in the current list.
	ErrUnknownSlot = errors.New("slots: unknown slot")
)

const dateLayout = "2006-01-02"

// Config bounds the bookable day.
type Config struct {
	OpenHour        int // first bookable hour, inclusive
	CloseHour       int // last bookable hour, inclusive
	LunchHour       int // excluded from generation
	SuggestionDays  int // how far ahead to scan for alternative dates
	SuggestionLimit int // at most this many suggestions
}

// DefaultConfig matches the hospital's walk-in day: 9..16 minus the 12:00
// lunch hour, suggesting up to 3 dates within two weeks.
func DefaultConfig() Config {
	return Config{OpenHour: 9, CloseHour: 16, LunchHour: 12, SuggestionDays: 14, SuggestionLimit: 3}
}

// Engine generates a provider's open slots for a date and resolves selection
// races through the ReservationChecker port.
type Engine struct {
	cfg     Config
	checker ReservationChecker
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewEngine constructs a slot engine.
func NewEngine(cfg Config, checker ReservationChecker, logger *logging.Logger) *Engine {
	if checker == nil {
		panic("slots: reservation checker required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.OpenHour == 0 && cfg.CloseHour == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		cfg:     cfg,
		checker: checker,
		logger:  logger,
		tracer:  otel.Tracer("portal.internal.slots"),
	}
}

// Generate produces the slot list for a (provider, date) pair. When the
// provider does not work that weekday the list is empty and up to
// SuggestionLimit alternative dates are returned instead.
func (e *Engine) Generate(ctx context.Context, provider directory.Provider, date string) (*SlotList, []string, error) {
	ctx, span := e.tracer.Start(ctx, "slots.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("portal.provider_id", provider.ID),
		attribute.String("portal.date", date),
	)

	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, nil, fmt.Errorf("slots: invalid date %q: %w", date, err)
	}

	list := &SlotList{ProviderID: provider.ID, Date: date}
	if !provider.AvailableOn(weekdayAbbrev(day)) {
		suggestions := e.SuggestDates(provider, day)
		e.logger.Info("provider unavailable on requested day",
			"provider_id", provider.ID,
			"date", date,
			"suggestions", len(suggestions),
		)
		return list, suggestions, nil
	}

	for hour := e.cfg.OpenHour; hour <= e.cfg.CloseHour; hour++ {
		if hour == e.cfg.LunchHour {
			continue
		}
		ref := SlotRef{ProviderID: provider.ID, Date: date, Hour: hour}
		open, err := e.checker.Availability(ctx, ref)
		if err != nil {
			span.RecordError(err)
			return nil, nil, err
		}
		list.Slots = append(list.Slots, TimeSlot{
			ID:        ref.Key(),
			Ref:       ref,
			Display:   DisplayHour(hour),
			Available: open,
		})
	}
	return list, nil, nil
}

// SuggestDates scans forward from the requested day, collecting dates whose
// weekday is in the provider's availability set, in ascending order.
func (e *Engine) SuggestDates(provider directory.Provider, from time.Time) []string {
	var out []string
	for i := 1; i <= e.cfg.SuggestionDays && len(out) < e.cfg.SuggestionLimit; i++ {
		day := from.AddDate(0, 0, i)
		if provider.AvailableOn(weekdayAbbrev(day)) {
			out = append(out, day.Format(dateLayout))
		}
	}
	return out
}

// Select re-validates a displayed slot at the moment of selection. On a lost
// race the slot is flipped unavailable in the list, and ErrSlotTaken is
// returned; the rest of the list is untouched so the patient can pick another
// slot without re-fetching. A lost race never silently succeeds.
func (e *Engine) Select(ctx context.Context, holder string, list *SlotList, slotID string) (*TimeSlot, error) {
	ctx, span := e.tracer.Start(ctx, "slots.select")
	defer span.End()
	span.SetAttributes(attribute.String("portal.slot_id", slotID))

	slot := list.Find(slotID)
	if slot == nil {
		return nil, ErrUnknownSlot
	}
	if !slot.Available {
		return nil, ErrSlotUnavailable
	}

	reserved, err := e.checker.CheckAndReserve(ctx, holder, slot.Ref)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !reserved {
		list.MarkUnavailable(slotID)
		e.logger.Info("slot lost to concurrent booking",
			"slot_id", slotID,
			"holder", holder,
		)
		return nil, ErrSlotTaken
	}

	selected := *slot
	return &selected, nil
}

type releaser interface {
	Release(ctx context.Context, holder string, ref SlotRef) error
}

// Release frees a held reservation when the checker supports it, e.g. after
// a cancelled booking.
func (e *Engine) Release(ctx context.Context, holder string, ref SlotRef) error {
	if r, ok := e.checker.(releaser); ok {
		return r.Release(ctx, holder, ref)
	}
	return nil
}

func weekdayAbbrev(day time.Time) string {
	return day.Weekday().String()[:3]
}
