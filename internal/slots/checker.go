package slots

import (
	"context"
	"math/rand"
	"sync"
)

// ReservationChecker is the port to the authoritative slot occupancy source.
// Availability answers the rendering-time question; CheckAndReserve performs
// the selection-time check-and-reserve that decides slot races. A production
// implementation must make CheckAndReserve atomic per slot key.
type ReservationChecker interface {
	Availability(ctx context.Context, ref SlotRef) (bool, error)
	CheckAndReserve(ctx context.Context, holder string, ref SlotRef) (bool, error)
}

// SimulatedChecker models backend occupancy without a real backend: slots are
// open with a base probability, and a selection loses its race with a small
// independent probability. The probabilistic behavior of the workflow lives
// entirely here, behind the port.
type SimulatedChecker struct {
	mu               sync.Mutex
	rng              *rand.Rand
	baseAvailability float64
	raceChance       float64

	occupancy map[string]bool   // memoized render-time occupancy per slot key
	taken     map[string]bool   // slots lost to the simulated rival actor
	held      map[string]string // slot key -> holder that reserved it
}

// NewSimulatedChecker creates a checker with the given probabilities and
// deterministic seed.
func NewSimulatedChecker(baseAvailability, raceChance float64, seed int64) *SimulatedChecker {
	return &SimulatedChecker{
		rng:              rand.New(rand.NewSource(seed)),
		baseAvailability: baseAvailability,
		raceChance:       raceChance,
		occupancy:        make(map[string]bool),
		taken:            make(map[string]bool),
		held:             make(map[string]string),
	}
}

// Availability rolls (once per slot key) whether the slot is open.
func (c *SimulatedChecker) Availability(ctx context.Context, ref SlotRef) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := ref.Key()
	if c.taken[key] {
		return false, nil
	}
	if open, ok := c.occupancy[key]; ok {
		return open, nil
	}
	open := c.rng.Float64() < c.baseAvailability
	c.occupancy[key] = open
	return open, nil
}

// CheckAndReserve re-validates the slot at selection time. A reservation the
// holder already owns stays reserved: reselecting the same slot never
// re-rolls the race. A lost race is permanent for the slot key.
func (c *SimulatedChecker) CheckAndReserve(ctx context.Context, holder string, ref SlotRef) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := ref.Key()
	if c.taken[key] {
		return false, nil
	}
	if owner, ok := c.held[key]; ok {
		return owner == holder, nil
	}
	if c.rng.Float64() < c.raceChance {
		c.taken[key] = true
		c.occupancy[key] = false
		return false, nil
	}
	c.held[key] = holder
	return true, nil
}

// Release frees a reservation held by holder, e.g. on cancellation.
func (c *SimulatedChecker) Release(ctx context.Context, holder string, ref SlotRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := ref.Key()
	if c.held[key] == holder {
		delete(c.held, key)
	}
	return nil
}
