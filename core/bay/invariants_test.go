package bay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

func TestCheckInvariantsValid(t *testing.T) {
	s := model.Snapshot{
		Demand:          8000,
		CapacityMax:     capacity,
		TotalDischarged: 8000,
		Slots: []model.SlotView{
			{ID: 0, Occupied: true, ChargeLevel: 175000, Mode: model.ModeDischarging, Delta: 5000, ParkedDuration: 2},
			{ID: 1, Occupied: true, ChargeLevel: 105000, Mode: model.ModeDischarging, Delta: 3000, ParkedDuration: 1},
			{ID: 2},
		},
	}
	assert.NoError(t, CheckInvariants(s, 36000))
}

func TestCheckInvariantsReportsViolations(t *testing.T) {
	s := model.Snapshot{
		Seq:         9,
		CapacityMax: capacity,
		Slots: []model.SlotView{
			{ID: 0, ChargeLevel: capacity + 1},
			{ID: 1, Mode: model.ModeCharging, Delta: 5000, ParkedDuration: 3},
			{ID: 2, Occupied: true, ChargeLevel: 1000, Mode: model.ModeDischarging, Delta: 500},
		},
	}
	err := CheckInvariants(s, 36000)
	require.Error(t, err)
	var ie *InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, uint64(9), ie.Seq)
	// range, empty mode, empty parked, donor reserve, discharged sum, charged sum
	assert.Len(t, ie.Violations, 6)
	assert.Contains(t, err.Error(), "cycle 9")
	assert.Contains(t, err.Error(), "bay: ")
}

func TestCheckInvariantsDrawAboveDemand(t *testing.T) {
	s := model.Snapshot{
		Demand:          1000,
		CapacityMax:     capacity,
		TotalDischarged: 5000,
		Slots: []model.SlotView{
			{ID: 0, Occupied: true, ChargeLevel: 100000, Mode: model.ModeDischarging, Delta: 5000},
		},
	}
	var ie *InvariantError
	require.True(t, errors.As(CheckInvariants(s, 36000), &ie))
	require.Len(t, ie.Violations, 1)
	assert.Equal(t, model.SlotID(-1), ie.Violations[0].Slot)
}
