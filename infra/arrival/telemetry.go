// Package arrival provides arrival sources fed by vehicle telemetry.
package arrival

import (
	"math"
	"sync"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/bay"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// Telemetry reports the last state of charge published for a slot. A reading
// is consumed by the arrival it describes; slots without a reading use the
// fallback source.
type Telemetry struct {
	capacity model.Energy
	fallback bay.ArrivalSource

	mu      sync.Mutex
	percent map[model.SlotID]float64
}

var _ bay.ArrivalSource = (*Telemetry)(nil)

// NewTelemetry returns a Telemetry source converting percentages against
// capacity. A nil fallback yields an empty battery.
func NewTelemetry(capacity model.Energy, fallback bay.ArrivalSource) *Telemetry {
	if fallback == nil {
		fallback = bay.FixedArrival{}
	}
	return &Telemetry{capacity: capacity, fallback: fallback, percent: make(map[model.SlotID]float64)}
}

// UpdateSoC stores the state of charge reported for id, in percent.
func (t *Telemetry) UpdateSoC(id model.SlotID, percent float64) {
	percent = math.Max(0, math.Min(100, percent))
	t.mu.Lock()
	t.percent[id] = percent
	t.mu.Unlock()
}

func (t *Telemetry) ArrivalCharge(id model.SlotID) model.Energy {
	t.mu.Lock()
	pct, ok := t.percent[id]
	delete(t.percent, id)
	t.mu.Unlock()
	if !ok {
		return t.fallback.ArrivalCharge(id)
	}
	return model.Energy(math.Round(pct / 100 * float64(t.capacity)))
}
