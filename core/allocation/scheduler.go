package allocation

import "github.com/kristi80/Datakomm-prosjekt-2022/core/model"

// ChargePlan is the charging decision of one cycle, indexed by slot.
type ChargePlan struct {
	Active       bool
	TotalCharged model.Energy
	Deltas       []model.Energy
	Modes        []model.Mode
}

// Scheduler computes charging decisions.
type Scheduler struct {
	params Params
}

// NewScheduler returns a scheduler using p.
func NewScheduler(p Params) *Scheduler { return &Scheduler{params: p} }

// Compute tops up every parked battery below capacity by one quantum. It only
// runs when demand is exactly zero; otherwise the plan is inactive and empty.
func (s *Scheduler) Compute(demand model.Power, slots []model.SlotView) ChargePlan {
	plan := ChargePlan{
		Deltas: make([]model.Energy, len(slots)),
		Modes:  make([]model.Mode, len(slots)),
	}
	if demand != 0 {
		return plan
	}
	plan.Active = true
	for i, sl := range slots {
		if !sl.Occupied || sl.ChargeLevel >= s.params.CapacityMax {
			continue
		}
		delta := model.MinEnergy(s.params.ChargeQuantum, s.params.CapacityMax-sl.ChargeLevel)
		plan.Deltas[i] = delta
		plan.Modes[i] = model.ModeCharging
		plan.TotalCharged += delta
	}
	return plan
}
