package metrics_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/factory"
	metrics "github.com/kristi80/Datakomm-prosjekt-2022/core/metrics"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	inframetrics "github.com/kristi80/Datakomm-prosjekt-2022/infra/metrics"
)

type cycleCounter struct{ cycles int }

func (c *cycleCounter) RecordCycle(model.Snapshot) error {
	c.cycles++
	return nil
}

func init() {
	_ = metrics.RegisterMetricsSink("counter", func(map[string]any) (metrics.MetricsSink, error) {
		return &cycleCounter{}, nil
	})
}

func TestSinkTypesIncludeBuiltins(t *testing.T) {
	assert.Subset(t, metrics.SinkTypes(), []string{"influx", "nop", "prometheus"})
}

func TestNewMetricsSinkDropsNop(t *testing.T) {
	for name, cfgs := range map[string][]factory.ModuleConfig{
		"none":    nil,
		"one nop": {{Type: "nop"}},
		"two nop": {{Type: "nop"}, {Type: "nop"}},
	} {
		t.Run(name, func(t *testing.T) {
			s, err := metrics.NewMetricsSink(cfgs)
			require.NoError(t, err)
			assert.IsType(t, metrics.NopSink{}, s)
		})
	}
}

func TestNewMetricsSinkSingleIsUnwrapped(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "counter"}})
	require.NoError(t, err)
	assert.IsType(t, &cycleCounter{}, s)
}

func TestNewMetricsSinkFansOut(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "counter"}, {Type: "prometheus"}})
	require.NoError(t, err)
	multi, ok := s.(*metrics.MultiSink)
	require.True(t, ok, "got %T", s)
	require.Len(t, multi.Sinks, 2)
	assert.IsType(t, &inframetrics.PromSink{}, multi.Sinks[1])

	require.NoError(t, s.RecordCycle(model.Snapshot{Seq: 1}))
	assert.Equal(t, 1, multi.Sinks[0].(*cycleCounter).cycles)
}

func TestNewMetricsSinkRejects(t *testing.T) {
	_, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "statsd"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sinks[1]")

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "counter"}, {Type: "counter"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate counter sink")
}

func TestMetricsConfigFromJSON(t *testing.T) {
	data := `{"sinks":[{"type":"prometheus"},{"type":"nop"}],"prometheus_addr":":9100"}`
	var cfg metrics.Config
	require.NoError(t, json.Unmarshal([]byte(data), &cfg))
	assert.True(t, cfg.HasSink("prometheus"))
	assert.False(t, cfg.HasSink("influx"))
	assert.Equal(t, ":9100", cfg.PrometheusAddr)

	s, err := metrics.NewMetricsSink(cfg.Sinks)
	require.NoError(t, err)
	assert.IsType(t, &inframetrics.PromSink{}, s)
}
