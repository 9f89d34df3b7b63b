package allocation

import "github.com/kristi80/Datakomm-prosjekt-2022/core/model"

// Result is the discharge decision of one cycle, indexed by slot.
type Result struct {
	Deficit         model.Power
	Residual        model.Energy
	TotalDischarged model.Energy
	Deltas          []model.Energy
	Modes           []model.Mode
}

// SelectDonor returns the eligible slot with the highest charge level. Ties go
// to the lowest index. A slot is eligible when it is occupied, not yet used
// this cycle, holds at least reserve and has charge to give. The boolean is
// false when no slot qualifies.
func SelectDonor(slots []model.SlotView, used []bool, reserve model.Energy) (model.SlotID, bool) {
	best := -1
	for i, s := range slots {
		if !s.Occupied || s.ChargeLevel <= 0 || s.ChargeLevel < reserve {
			continue
		}
		if i < len(used) && used[i] {
			continue
		}
		if best < 0 || s.ChargeLevel > slots[best].ChargeLevel {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return model.SlotID(best), true
}

// Engine computes discharge decisions.
type Engine struct {
	params Params
}

// NewEngine returns an engine using p.
func NewEngine(p Params) *Engine { return &Engine{params: p} }

// Params returns the engine parameters.
func (e *Engine) Params() Params { return e.params }

// Compute covers demand from the parked batteries. Each slot gives at most
// one quantum and never more than it holds; anything left is the residual.
func (e *Engine) Compute(demand model.Power, slots []model.SlotView) Result {
	res := Result{
		Deltas: make([]model.Energy, len(slots)),
		Modes:  make([]model.Mode, len(slots)),
	}
	res.Deficit = e.params.policy().Deficit(demand, e.params.GridCapacity)
	deficit := res.Deficit.PerCycle()
	if deficit <= 0 {
		return res
	}

	reserve := e.params.Reserve()
	used := make([]bool, len(slots))
	for deficit > 0 {
		id, ok := SelectDonor(slots, used, reserve)
		if !ok {
			break
		}
		delta := model.MinEnergy(e.params.DischargeQuantum, deficit, slots[id].ChargeLevel)
		used[id] = true
		res.Deltas[id] = delta
		res.Modes[id] = model.ModeDischarging
		res.TotalDischarged += delta
		deficit -= delta
	}
	res.Residual = max(deficit, 0)
	return res
}
