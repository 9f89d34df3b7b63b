package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristi80/Datakomm-prosjekt-2022/config"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/controller"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

func TestRunEveningScenario(t *testing.T) {
	sc, err := Parse([]byte(evening))
	require.NoError(t, err)

	var seen int
	obs := controller.ObserverFunc(func(context.Context, model.Snapshot) error {
		seen++
		return nil
	})
	recs, err := Run(context.Background(), sc, config.BayConfig{}, Options{Observers: []controller.Observer{obs}})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 3, seen)

	first := recs[0]
	assert.Equal(t, 1, first.OccupiedCount)
	assert.EqualValues(t, 5000, first.TotalDischarged)
	assert.EqualValues(t, 3000, first.Residual)
	assert.EqualValues(t, 175000, first.Slots[0].ChargeLevel)
	assert.Equal(t, model.ModeDischarging, first.Slots[0].Mode)

	second := recs[1]
	assert.EqualValues(t, 5000, second.TotalCharged)
	assert.EqualValues(t, 180000, second.Slots[0].ChargeLevel)
	assert.Equal(t, model.ModeCharging, second.Slots[0].Mode)
	assert.Equal(t, sc.Start.Add(2*time.Second), second.Timestamp)

	last := recs[2]
	assert.Equal(t, 0, last.OccupiedCount)
	assert.EqualValues(t, 8000, last.Residual)
	assert.EqualValues(t, 0, last.TotalDischarged)
}

func TestRunRejectsSlotOutsideBay(t *testing.T) {
	sc, err := Parse([]byte("demand: [0]\ntoggles: [{cycle: 0, slot: 4}]\n"))
	require.NoError(t, err)
	_, err = Run(context.Background(), sc, config.BayConfig{}, Options{})
	assert.Error(t, err)
}

func TestRunHonoursCancellation(t *testing.T) {
	sc, err := Parse([]byte("demand: [0]\ncycles: 5\n"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	recs, err := Run(ctx, sc, config.BayConfig{}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recs)
}
