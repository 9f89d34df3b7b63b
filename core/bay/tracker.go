package bay

import (
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// Transition describes the effect of a presence toggle.
type Transition int

const (
	Arrived Transition = iota + 1
	Departed
)

func (t Transition) String() string {
	switch t {
	case Arrived:
		return "arrived"
	case Departed:
		return "departed"
	}
	return "none"
}

// Tracker applies presence toggles and counts parked cycles.
type Tracker struct {
	store    *Store
	arrivals ArrivalSource
}

// NewTracker returns a tracker mutating store. Arriving vehicles take their
// charge level from arrivals.
func NewTracker(store *Store, arrivals ArrivalSource) *Tracker {
	if arrivals == nil {
		arrivals = FixedArrival{}
	}
	return &Tracker{store: store, arrivals: arrivals}
}

// OnPresenceToggle flips the occupancy of id. An arriving vehicle gets its
// charge level from the arrival source; a departing one leaves the level in
// place.
func (t *Tracker) OnPresenceToggle(id model.SlotID) (Transition, error) {
	sl, err := t.store.get(id)
	if err != nil {
		return 0, err
	}
	if sl.occupied {
		sl.occupied = false
		return Departed, nil
	}
	sl.occupied = true
	sl.charge = t.store.clamp(t.arrivals.ArrivalCharge(id))
	return Arrived, nil
}

// Tick advances the parked counter of occupied slots and resets empty ones.
func (t *Tracker) Tick() {
	for i := range t.store.slots {
		sl := &t.store.slots[i]
		if sl.occupied {
			sl.parked++
		} else {
			sl.parked = 0
		}
	}
}
