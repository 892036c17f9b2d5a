package slots

import (
	"fmt"
	"time"
)

// SlotRef identifies a bookable slot by the externally-scarce resource it
// contends for: one provider at one hour on one date.
type SlotRef struct {
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"` // YYYY-MM-DD
	Hour       int    `json:"hour"`
}

// Key returns the canonical slot identity used for reservations.
func (r SlotRef) Key() string {
	return fmt.Sprintf("%s:%s:%02d", r.ProviderID, r.Date, r.Hour)
}

// TimeSlot is a projection of provider availability for one hour. Slots are
// regenerated per (provider, date) pair on demand and never persisted.
type TimeSlot struct {
	ID        string  `json:"id"`
	Ref       SlotRef `json:"ref"`
	Display   string  `json:"display"` // e.g. "10:00 AM"
	Available bool    `json:"available"`
}

// SlotList is one rendering instance of a day's slots. Within a list
// instance an unavailable slot never becomes selectable again.
type SlotList struct {
	ProviderID string     `json:"provider_id"`
	Date       string     `json:"date"`
	Slots      []TimeSlot `json:"slots"`
}

// Find returns the slot with the given id, or nil.
func (l *SlotList) Find(id string) *TimeSlot {
	for i := range l.Slots {
		if l.Slots[i].ID == id {
			return &l.Slots[i]
		}
	}
	return nil
}

// MarkUnavailable flips a slot to unavailable. There is deliberately no
// inverse operation: availability is monotonic within a list instance.
func (l *SlotList) MarkUnavailable(id string) {
	if s := l.Find(id); s != nil {
		s.Available = false
	}
}

// AvailableCount returns how many slots remain selectable.
func (l *SlotList) AvailableCount() int {
	n := 0
	for i := range l.Slots {
		if l.Slots[i].Available {
			n++
		}
	}
	return n
}

// DisplayHour renders an hour of day the way the booking screens show it.
func DisplayHour(hour int) string {
	return time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC).Format("3:04 PM")
}
