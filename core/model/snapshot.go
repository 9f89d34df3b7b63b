package model

import "time"

// Snapshot is the committed outcome of one control cycle. Observers receive
// it by value after every slot mutation of the cycle has been applied.
type Snapshot struct {
	Seq             uint64     `json:"seq"`
	Time            time.Time  `json:"time"`
	Demand          Power      `json:"demand"`
	Deficit         Power      `json:"deficit"`
	Residual        Energy     `json:"residual"`
	TotalDischarged Energy     `json:"total_discharged"`
	TotalCharged    Energy     `json:"total_charged"`
	CapacityMax     Energy     `json:"capacity_max"`
	Slots           []SlotView `json:"slots"`
	OccupiedCount   int        `json:"occupied_count"`
	Aux             bool       `json:"aux"`
}

// Unmet reports whether part of the demand was left uncovered.
func (s Snapshot) Unmet() bool { return s.Residual > 0 }

// Slot returns the view for id.
func (s Snapshot) Slot(id SlotID) (SlotView, bool) {
	if id < 0 || int(id) >= len(s.Slots) {
		return SlotView{}, false
	}
	return s.Slots[id], true
}

// Clone returns a deep copy so the slot slice can be handed to other
// goroutines.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Slots = append([]SlotView(nil), s.Slots...)
	return out
}
