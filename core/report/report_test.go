package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/cyclelog"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Cycles)
	assert.Equal(t, 1.0, s.Coverage)
}

func TestSummarize(t *testing.T) {
	recs := []cyclelog.Record{
		{Demand: 8000, TotalDischarged: 8000, OccupiedCount: 2, Slots: []cyclelog.SlotRecord{
			{Slot: 1, Occupied: true, Mode: model.ModeDischarging, Delta: 5000},
			{Slot: 2, Occupied: true, Mode: model.ModeDischarging, Delta: 3000},
		}},
		{Demand: 4000, Residual: 4000, OccupiedCount: 2, Slots: []cyclelog.SlotRecord{
			{Slot: 1, Occupied: true},
			{Slot: 2, Occupied: true},
		}},
		{Demand: 0, TotalCharged: 5000, OccupiedCount: 1, Slots: []cyclelog.SlotRecord{
			{Slot: 1, Occupied: true, Mode: model.ModeCharging, Delta: 5000},
			{Slot: 2},
		}},
	}
	s := Summarize(recs)
	assert.Equal(t, 3, s.Cycles)
	assert.InDelta(t, 4000, s.MeanDemand, 1e-9)
	assert.InDelta(t, 4000, s.StdDemand, 1e-9)
	assert.Equal(t, 8000.0, s.PeakDemand)
	assert.Equal(t, model.Energy(12000), s.TotalDemand)
	assert.Equal(t, model.Energy(8000), s.TotalDischarged)
	assert.Equal(t, model.Energy(5000), s.TotalCharged)
	assert.Equal(t, model.Energy(4000), s.TotalResidual)
	assert.InDelta(t, 2.0/3.0, s.Coverage, 1e-9)
	assert.Equal(t, 1, s.UnmetCycles)
	assert.InDelta(t, 5.0/3.0, s.MeanOccupancy, 1e-9)

	require.Len(t, s.Slots, 2)
	assert.Equal(t, 1, s.Slots[0].Slot)
	assert.Equal(t, 3, s.Slots[0].OccupiedCycles)
	assert.InDelta(t, 2.0/3.0, s.Slots[0].Utilisation, 1e-9)
	assert.Equal(t, model.Energy(3000), s.Slots[1].Discharged)
	assert.InDelta(t, 0.5, s.Slots[1].Utilisation, 1e-9)
}
