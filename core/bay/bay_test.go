package bay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

const capacity = model.Energy(360000)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(3, capacity)
	require.NoError(t, err)
	return s
}

func TestNewStoreRejectsBadSizes(t *testing.T) {
	_, err := NewStore(0, capacity)
	assert.Error(t, err)
	_, err = NewStore(3, 0)
	assert.Error(t, err)
}

func TestStoreStartsEmpty(t *testing.T) {
	s := newStore(t)
	for _, v := range s.Views() {
		assert.False(t, v.Occupied)
		assert.Zero(t, v.ChargeLevel)
		assert.Zero(t, v.ParkedDuration)
		assert.Equal(t, model.StateEmpty, v.State())
	}
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, capacity, s.Capacity())
}

func TestStoreClampsMutations(t *testing.T) {
	s := newStore(t)
	tr := NewTracker(s, FixedArrival{Level: 3000})
	_, err := tr.OnPresenceToggle(0)
	require.NoError(t, err)

	got, err := s.Discharge(0, 5000)
	require.NoError(t, err)
	assert.Equal(t, model.Energy(3000), got)
	v, _ := s.View(0)
	assert.Zero(t, v.ChargeLevel)

	_, err = s.Charge(0, capacity-1000)
	require.NoError(t, err)
	got, err = s.Charge(0, 5000)
	require.NoError(t, err)
	assert.Equal(t, model.Energy(1000), got)
	v, _ = s.View(0)
	assert.Equal(t, capacity, v.ChargeLevel)
	assert.Equal(t, 100, v.Percent)

	got, err = s.Charge(0, -5)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestUnknownSlot(t *testing.T) {
	s := newStore(t)
	tr := NewTracker(s, nil)
	_, err := tr.OnPresenceToggle(3)
	assert.True(t, errors.Is(err, ErrUnknownSlot))
	_, err = s.View(-1)
	assert.True(t, errors.Is(err, ErrUnknownSlot))
	_, err = s.Discharge(7, 1)
	assert.True(t, errors.Is(err, ErrUnknownSlot))
}

func TestToggleArrivalAndDeparture(t *testing.T) {
	s := newStore(t)
	tr := NewTracker(s, FixedArrival{Level: 180000})

	tn, err := tr.OnPresenceToggle(1)
	require.NoError(t, err)
	assert.Equal(t, Arrived, tn)
	v, _ := s.View(1)
	assert.True(t, v.Occupied)
	assert.Equal(t, model.Energy(180000), v.ChargeLevel)
	assert.Equal(t, 1, s.OccupiedCount())

	tn, err = tr.OnPresenceToggle(1)
	require.NoError(t, err)
	assert.Equal(t, Departed, tn)
	v, _ = s.View(1)
	assert.False(t, v.Occupied)
	assert.Equal(t, model.Energy(180000), v.ChargeLevel, "charge is kept on departure")
}

func TestArrivalChargeIsClamped(t *testing.T) {
	s := newStore(t)
	tr := NewTracker(s, ArrivalFunc(func(id model.SlotID) model.Energy {
		if id == 0 {
			return -10
		}
		return capacity * 2
	}))
	_, _ = tr.OnPresenceToggle(0)
	_, _ = tr.OnPresenceToggle(1)
	v0, _ := s.View(0)
	v1, _ := s.View(1)
	assert.Zero(t, v0.ChargeLevel)
	assert.Equal(t, capacity, v1.ChargeLevel)
}

func TestParkedDurationCounts(t *testing.T) {
	s := newStore(t)
	tr := NewTracker(s, FixedArrival{Level: 100})
	_, _ = tr.OnPresenceToggle(0)
	for want := 1; want <= 3; want++ {
		tr.Tick()
		v, _ := s.View(0)
		assert.Equal(t, want, v.ParkedDuration)
	}
	_, _ = tr.OnPresenceToggle(0)
	tr.Tick()
	v, _ := s.View(0)
	assert.Zero(t, v.ParkedDuration)
}

func TestTickIdempotentOnEmptySlots(t *testing.T) {
	s := newStore(t)
	tr := NewTracker(s, nil)
	tr.Tick()
	first := s.Views()
	tr.Tick()
	assert.Equal(t, first, s.Views())
}

func TestRandomArrivalRange(t *testing.T) {
	r := NewRandomArrival(20, 80, 3600, 42)
	for i := 0; i < 500; i++ {
		e := r.ArrivalCharge(0)
		assert.GreaterOrEqual(t, e, model.Energy(20*3600))
		assert.Less(t, e, model.Energy(80*3600))
		assert.Zero(t, e%3600)
	}
	a := NewRandomArrival(20, 80, 3600, 7)
	b := NewRandomArrival(20, 80, 3600, 7)
	assert.Equal(t, a.ArrivalCharge(0), b.ArrivalCharge(0), "same seed gives same sequence")
}

func TestTransitionString(t *testing.T) {
	assert.Equal(t, "arrived", Arrived.String())
	assert.Equal(t, "departed", Departed.String())
	assert.Equal(t, "none", Transition(0).String())
}
