package bay

import (
	"math/rand"
	"sync"
	"time"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// ArrivalSource provides the charge level of a vehicle parking in a slot.
type ArrivalSource interface {
	ArrivalCharge(id model.SlotID) model.Energy
}

// ArrivalFunc adapts a function to ArrivalSource.
type ArrivalFunc func(id model.SlotID) model.Energy

func (f ArrivalFunc) ArrivalCharge(id model.SlotID) model.Energy { return f(id) }

// FixedArrival gives every vehicle the same level.
type FixedArrival struct {
	Level model.Energy
}

func (f FixedArrival) ArrivalCharge(model.SlotID) model.Energy { return f.Level }

// RandomArrival draws a whole number of units uniformly from [MinUnits,
// MaxUnits) and multiplies by UnitSize.
type RandomArrival struct {
	MinUnits int
	MaxUnits int
	UnitSize model.Energy

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomArrival returns a RandomArrival seeded with seed. A zero seed uses
// the current time.
func NewRandomArrival(minUnits, maxUnits int, unit model.Energy, seed int64) *RandomArrival {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomArrival{
		MinUnits: minUnits,
		MaxUnits: maxUnits,
		UnitSize: unit,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (r *RandomArrival) ArrivalCharge(model.SlotID) model.Energy {
	r.mu.Lock()
	defer r.mu.Unlock()
	units := r.MinUnits
	if span := r.MaxUnits - r.MinUnits; span > 0 {
		units += r.rng.Intn(span)
	}
	return model.Energy(units) * r.UnitSize
}
