package bay

import (
	"fmt"
	"strings"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// Violation is one broken slot invariant.
type Violation struct {
	// Slot is -1 for bay-wide rules.
	Slot model.SlotID
	Rule string
}

func (v Violation) String() string {
	if v.Slot < 0 {
		return "bay: " + v.Rule
	}
	return fmt.Sprintf("%s: %s", v.Slot, v.Rule)
}

// InvariantError lists every violation found in a committed cycle.
type InvariantError struct {
	Seq        uint64
	Violations []Violation
}

func (e *InvariantError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("cycle %d: invariant violated: %s", e.Seq, strings.Join(parts, "; "))
}

// CheckInvariants validates a committed snapshot. It returns nil or an
// *InvariantError.
func CheckInvariants(s model.Snapshot, reserve model.Energy) error {
	var vs []Violation
	add := func(id model.SlotID, format string, args ...any) {
		vs = append(vs, Violation{Slot: id, Rule: fmt.Sprintf(format, args...)})
	}
	var discharged, charged model.Energy
	for _, v := range s.Slots {
		if v.ChargeLevel < 0 || v.ChargeLevel > s.CapacityMax {
			add(v.ID, "charge level %d outside [0, %d]", v.ChargeLevel, s.CapacityMax)
		}
		if v.Delta < 0 {
			add(v.ID, "negative delta %d", v.Delta)
		}
		if !v.Occupied {
			if v.Mode != model.ModeIdle {
				add(v.ID, "empty slot in mode %s", v.Mode)
			}
			if v.ParkedDuration != 0 {
				add(v.ID, "empty slot parked for %d cycles", v.ParkedDuration)
			}
		}
		switch v.Mode {
		case model.ModeDischarging:
			discharged += v.Delta
			if v.ChargeLevel+v.Delta < reserve {
				add(v.ID, "donor below reserve %d before draw", reserve)
			}
		case model.ModeCharging:
			charged += v.Delta
		default:
			if v.Delta != 0 {
				add(v.ID, "idle slot moved %d", v.Delta)
			}
		}
	}
	if discharged != s.TotalDischarged {
		add(-1, "discharged sum %d differs from total %d", discharged, s.TotalDischarged)
	}
	if charged != s.TotalCharged {
		add(-1, "charged sum %d differs from total %d", charged, s.TotalCharged)
	}
	if s.TotalDischarged > model.Energy(max(s.Demand, 0)) {
		add(-1, "discharged %d exceeds demand %d", s.TotalDischarged, s.Demand)
	}
	if len(vs) == 0 {
		return nil
	}
	return &InvariantError{Seq: s.Seq, Violations: vs}
}
