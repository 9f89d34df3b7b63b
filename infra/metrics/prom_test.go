package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kristi80/Datakomm-prosjekt-2022/core/metrics"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/logger"
	"github.com/kristi80/Datakomm-prosjekt-2022/internal/eventbus"
)

func TestPromSinkRecordCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	snap := testSnapshot(time.Now())
	require.NoError(t, sink.RecordCycle(snap))
	require.NoError(t, sink.RecordCycle(snap))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.cycles))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.unmet))
	assert.Equal(t, 10000.0, testutil.ToFloat64(sink.discharged))
	assert.Equal(t, 7000.0, testutil.ToFloat64(sink.demand))
	assert.Equal(t, 2000.0, testutil.ToFloat64(sink.residual))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.occupied))
	assert.Equal(t, 175000.0, testutil.ToFloat64(sink.charge.WithLabelValues("1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.parked.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.mode.WithLabelValues("1", "discharging")))
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.mode.WithLabelValues("1", "idle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.mode.WithLabelValues("2", "idle")))
}

func TestPromSinkReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, a.RecordCycle(testSnapshot(time.Now())))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.cycles))
}

func TestPromSinkPublishAndToggle(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, sink.RecordPublish(coremetrics.PublishEvent{Channel: "battery"}))
	require.NoError(t, sink.RecordPublish(coremetrics.PublishEvent{Channel: "battery", Err: errors.New("x")}))
	require.NoError(t, sink.RecordToggle(coremetrics.ToggleEvent{Slot: 2, Source: "mqtt", Accepted: false}))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.publishes.WithLabelValues("battery", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.publishes.WithLabelValues("battery", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.toggles.WithLabelValues("3", "mqtt", "false")))
}

func TestSnapshotCollector(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)
	bus := eventbus.NewTyped[model.Snapshot](4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := StartSnapshotCollector(ctx, bus, sink, logger.NopLogger{})

	bus.Publish(testSnapshot(time.Now()))
	bus.Publish(testSnapshot(time.Now()))
	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.cycles))
}

func TestBuiltinSinks(t *testing.T) {
	nop := func(map[string]any) (coremetrics.MetricsSink, error) { return coremetrics.NopSink{}, nil }
	for _, n := range []string{"nop", "prometheus", "influx"} {
		assert.Error(t, coremetrics.RegisterMetricsSink(n, nop), "%s should already be registered", n)
	}
	sink, err := coremetrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, sink)
}
