package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/bay"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/demand"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/factory"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/arrival"
	infrademand "github.com/kristi80/Datakomm-prosjekt-2022/infra/demand"
)

var env = Env{Capacity: 360000, UnitSize: 3600}

func TestDemandPlugins(t *testing.T) {
	src, err := NewDemand(env, factory.ModuleConfig{Type: "static", Conf: map[string]any{"value": 7000}})
	require.NoError(t, err)
	p, err := src.Sample()
	require.NoError(t, err)
	assert.Equal(t, model.Power(7000), p)

	src, err = NewDemand(env, factory.ModuleConfig{Type: "script", Conf: map[string]any{"values": []any{0, "5000"}}})
	require.NoError(t, err)
	p, _ = src.Sample()
	assert.Equal(t, model.Power(0), p)
	p, _ = src.Sample()
	assert.Equal(t, model.Power(5000), p)

	src, err = NewDemand(env, factory.ModuleConfig{Type: "mqtt", Conf: map[string]any{"max_age": "5s"}})
	require.NoError(t, err)
	assert.IsType(t, &infrademand.MQTT{}, src)
	_, ok := src.(demand.RawSink)
	assert.True(t, ok)

	_, err = NewDemand(env, factory.ModuleConfig{Type: "script"})
	assert.Error(t, err)
	_, err = NewDemand(env, factory.ModuleConfig{Type: "solar"})
	assert.ErrorContains(t, err, "static")
}

func TestArrivalPlugins(t *testing.T) {
	src, err := NewArrival(env, factory.ModuleConfig{Type: "fixed", Conf: map[string]any{"units": 50}})
	require.NoError(t, err)
	assert.Equal(t, model.Energy(180000), src.ArrivalCharge(0))

	src, err = NewArrival(env, factory.ModuleConfig{Type: "random", Conf: map[string]any{"seed": 7}})
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		lvl := src.ArrivalCharge(0)
		assert.GreaterOrEqual(t, lvl, model.Energy(20*3600))
		assert.Less(t, lvl, model.Energy(80*3600))
		assert.Zero(t, lvl%3600)
	}

	_, err = NewArrival(env, factory.ModuleConfig{Type: "random", Conf: map[string]any{"min_units": 50, "max_units": 10}})
	assert.Error(t, err)
}

func TestTelemetryArrivalFallback(t *testing.T) {
	src, err := NewArrival(env, factory.ModuleConfig{Type: "telemetry", Conf: map[string]any{
		"fallback": map[string]any{"type": "fixed", "conf": map[string]any{"units": 10}},
	}})
	require.NoError(t, err)
	tel, ok := src.(*arrival.Telemetry)
	require.True(t, ok)
	assert.Equal(t, model.Energy(36000), tel.ArrivalCharge(1))
	tel.UpdateSoC(1, 25)
	assert.Equal(t, model.Energy(90000), tel.ArrivalCharge(1))

	_, err = NewArrival(env, factory.ModuleConfig{Type: "telemetry", Conf: map[string]any{
		"fallback": map[string]any{"type": "telemetry"},
	}})
	assert.Error(t, err)

	var _ bay.ArrivalSource = tel
}
