package bay

import (
	"errors"
	"fmt"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// ErrUnknownSlot is returned for a slot ID outside the bay.
var ErrUnknownSlot = errors.New("unknown slot")

type slot struct {
	occupied bool
	charge   model.Energy
	parked   int
}

// Store is a fixed-size array of slots. It is not safe for concurrent use.
type Store struct {
	slots    []slot
	capacity model.Energy
}

// NewStore returns a store with n empty slots holding at most capacity each.
func NewStore(n int, capacity model.Energy) (*Store, error) {
	if n <= 0 {
		return nil, fmt.Errorf("slot count must be positive, got %d", n)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	return &Store{slots: make([]slot, n), capacity: capacity}, nil
}

// Len returns the number of slots.
func (s *Store) Len() int { return len(s.slots) }

// Capacity returns the per-slot capacity.
func (s *Store) Capacity() model.Energy { return s.capacity }

func (s *Store) get(id model.SlotID) (*slot, error) {
	if id < 0 || int(id) >= len(s.slots) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSlot, id.Number())
	}
	return &s.slots[id], nil
}

// View returns a copy of one slot. Mode is always idle.
func (s *Store) View(id model.SlotID) (model.SlotView, error) {
	sl, err := s.get(id)
	if err != nil {
		return model.SlotView{}, err
	}
	return s.view(id, sl), nil
}

// Views returns copies of all slots in index order.
func (s *Store) Views() []model.SlotView {
	out := make([]model.SlotView, len(s.slots))
	for i := range s.slots {
		out[i] = s.view(model.SlotID(i), &s.slots[i])
	}
	return out
}

func (s *Store) view(id model.SlotID, sl *slot) model.SlotView {
	return model.SlotView{
		ID:             id,
		Occupied:       sl.occupied,
		ChargeLevel:    sl.charge,
		ParkedDuration: sl.parked,
		Percent:        sl.charge.Percent(s.capacity),
	}
}

// OccupiedCount returns the number of occupied slots.
func (s *Store) OccupiedCount() int {
	n := 0
	for _, sl := range s.slots {
		if sl.occupied {
			n++
		}
	}
	return n
}

// Discharge draws up to delta from the slot and returns the amount removed.
func (s *Store) Discharge(id model.SlotID, delta model.Energy) (model.Energy, error) {
	sl, err := s.get(id)
	if err != nil {
		return 0, err
	}
	if delta <= 0 {
		return 0, nil
	}
	applied := model.MinEnergy(delta, sl.charge)
	sl.charge -= applied
	return applied, nil
}

// Charge adds up to delta to the slot and returns the amount stored.
func (s *Store) Charge(id model.SlotID, delta model.Energy) (model.Energy, error) {
	sl, err := s.get(id)
	if err != nil {
		return 0, err
	}
	if delta <= 0 {
		return 0, nil
	}
	applied := model.MinEnergy(delta, s.capacity-sl.charge)
	sl.charge += applied
	return applied, nil
}

func (s *Store) clamp(e model.Energy) model.Energy {
	if e < 0 {
		return 0
	}
	if e > s.capacity {
		return s.capacity
	}
	return e
}
