// Package report aggregates cycle history into a coverage summary.
package report

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/cyclelog"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// SlotSummary aggregates one slot over the period.
type SlotSummary struct {
	Slot            int          `json:"slot"`
	OccupiedCycles  int          `json:"occupied_cycles"`
	DischargeCycles int          `json:"discharge_cycles"`
	ChargeCycles    int          `json:"charge_cycles"`
	Discharged      model.Energy `json:"discharged"`
	Charged         model.Energy `json:"charged"`
	// Utilisation is the share of occupied cycles in which the slot moved
	// energy.
	Utilisation float64 `json:"utilisation"`
}

// Summary aggregates a series of cycles.
type Summary struct {
	Cycles          int           `json:"cycles"`
	MeanDemand      float64       `json:"mean_demand"`
	StdDemand       float64       `json:"std_demand"`
	PeakDemand      float64       `json:"peak_demand"`
	TotalDemand     model.Energy  `json:"total_demand"`
	TotalDischarged model.Energy  `json:"total_discharged"`
	TotalCharged    model.Energy  `json:"total_charged"`
	TotalResidual   model.Energy  `json:"total_residual"`
	Coverage        float64       `json:"coverage"`
	UnmetCycles     int           `json:"unmet_cycles"`
	MeanOccupancy   float64       `json:"mean_occupancy"`
	Slots           []SlotSummary `json:"slots"`
}

// Summarize computes the summary of recs. Coverage is the discharged share of
// total demand and is 1 when there was no demand.
func Summarize(recs []cyclelog.Record) Summary {
	sum := Summary{Cycles: len(recs), Coverage: 1}
	if len(recs) == 0 {
		return sum
	}
	demand := make([]float64, len(recs))
	occupancy := make([]float64, len(recs))
	slots := map[int]*SlotSummary{}
	for i, r := range recs {
		demand[i] = float64(r.Demand)
		occupancy[i] = float64(r.OccupiedCount)
		sum.TotalDischarged += r.TotalDischarged
		sum.TotalCharged += r.TotalCharged
		sum.TotalResidual += r.Residual
		if r.Unmet() {
			sum.UnmetCycles++
		}
		for _, s := range r.Slots {
			ss, ok := slots[s.Slot]
			if !ok {
				ss = &SlotSummary{Slot: s.Slot}
				slots[s.Slot] = ss
			}
			if s.Occupied {
				ss.OccupiedCycles++
			}
			switch s.Mode {
			case model.ModeDischarging:
				ss.DischargeCycles++
				ss.Discharged += s.Delta
			case model.ModeCharging:
				ss.ChargeCycles++
				ss.Charged += s.Delta
			}
		}
	}
	sum.MeanDemand, sum.StdDemand = stat.MeanStdDev(demand, nil)
	if len(demand) < 2 {
		sum.StdDemand = 0
	}
	sum.PeakDemand = floats.Max(demand)
	sum.TotalDemand = model.Energy(floats.Sum(demand))
	sum.MeanOccupancy = stat.Mean(occupancy, nil)
	if sum.TotalDemand > 0 {
		sum.Coverage = float64(sum.TotalDischarged) / float64(sum.TotalDemand)
	}

	sum.Slots = make([]SlotSummary, 0, len(slots))
	for _, ss := range slots {
		if ss.OccupiedCycles > 0 {
			ss.Utilisation = float64(ss.DischargeCycles+ss.ChargeCycles) / float64(ss.OccupiedCycles)
		}
		sum.Slots = append(sum.Slots, *ss)
	}
	sort.Slice(sum.Slots, func(i, j int) bool { return sum.Slots[i].Slot < sum.Slots[j].Slot })
	return sum
}
