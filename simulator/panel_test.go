package simulator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

type fakePanel struct {
	calls []string
	fail  bool
}

func (f *fakePanel) PublishPot(raw int64) error {
	f.calls = append(f.calls, "pot")
	if f.fail {
		return errors.New("offline")
	}
	return nil
}

func (f *fakePanel) PublishToggle(slot model.SlotID) error {
	f.calls = append(f.calls, "toggle "+slot.String())
	return nil
}

func (f *fakePanel) PublishSoC(slot model.SlotID, _ float64) error {
	f.calls = append(f.calls, "soc "+slot.String())
	return nil
}

type mockPanel struct {
	mock.Mock
}

func (m *mockPanel) PublishPot(raw int64) error { return m.Called(raw).Error(0) }

func (m *mockPanel) PublishToggle(slot model.SlotID) error { return m.Called(slot).Error(0) }

func (m *mockPanel) PublishSoC(slot model.SlotID, percent float64) error {
	return m.Called(slot, percent).Error(0)
}

func TestPanelPublishesMappedReadings(t *testing.T) {
	sc, err := Parse([]byte("demand: [15000, 0, 7500]\nperiod: 1ms\ntoggles: [{cycle: 2, slot: 3, soc: 55}]\n"))
	require.NoError(t, err)
	mp := &mockPanel{}
	mp.On("PublishPot", int64(4095)).Return(nil).Once()
	mp.On("PublishPot", int64(0)).Return(nil).Once()
	mp.On("PublishPot", int64(2047)).Return(nil).Once()
	mp.On("PublishSoC", model.SlotID(2), 55.0).Return(nil).Once()
	mp.On("PublishToggle", model.SlotID(2)).Return(errors.New("broker gone")).Once()

	require.NoError(t, (&Panel{Client: mp}).Play(context.Background(), sc))
	mp.AssertExpectations(t)
}

func TestPanelPlaysScenario(t *testing.T) {
	sc, err := Parse([]byte("demand: [15000, 0]\nperiod: 1ms\ntoggles: [{cycle: 1, slot: 2, soc: 40}]\n"))
	require.NoError(t, err)
	fp := &fakePanel{}
	p := &Panel{Client: fp}
	require.NoError(t, p.Play(context.Background(), sc))
	assert.Equal(t, []string{"pot", "pot", "soc slot 2", "toggle slot 2"}, fp.calls)
}

func TestPanelKeepsGoingOnPublishErrors(t *testing.T) {
	sc, err := Parse([]byte("demand: [1, 2, 3]\nperiod: 1ms\n"))
	require.NoError(t, err)
	fp := &fakePanel{fail: true}
	require.NoError(t, (&Panel{Client: fp}).Play(context.Background(), sc))
	assert.Len(t, fp.calls, 3)
}

func TestPanelStopsOnCancel(t *testing.T) {
	sc, err := Parse([]byte("demand: [1]\ncycles: 10\nperiod: 1h\n"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = (&Panel{Client: &fakePanel{}}).Play(ctx, sc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPanelRequiresClient(t *testing.T) {
	sc, err := Parse([]byte("demand: [1]\n"))
	require.NoError(t, err)
	assert.Error(t, (&Panel{}).Play(context.Background(), sc))
}
