package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristi80/Datakomm-prosjekt-2022/config"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/cyclelog"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/presence"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Bay.ControlPeriodMS = 10
	cfg.Bay.DebounceMS = 5
	cfg.Demand = config.PluginConfig{Type: "static", Conf: map[string]any{"value": 2000}}
	cfg.Arrival = config.PluginConfig{Type: "fixed", Conf: map[string]any{"units": 50}}
	cfg.API.Disabled = true
	cfg.SetDefaults()
	return cfg
}

func TestServiceRunsCyclesWithoutBroker(t *testing.T) {
	cfg := testConfig()
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, svc.Handler())

	require.NoError(t, svc.Controller.Submit(presence.ToggleEvent{Slot: 0, At: time.Now(), Source: "test"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		recs, err := svc.History.Query(context.Background(), cyclelog.Query{})
		return err == nil && len(recs) >= 3
	}, 2*time.Second, 10*time.Millisecond)

	snap, ok := svc.Controller.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 1, snap.OccupiedCount)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	assert.NoError(t, svc.Close())
}

func TestServiceHandlerReadiness(t *testing.T) {
	cfg := testConfig()
	cfg.API.Disabled = false
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Close()

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	svc.Controller.RunCycle(context.Background())
	rec = httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServiceRejectsBadHistory(t *testing.T) {
	cfg := testConfig()
	cfg.History.Backend = "tape"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOpenHistoryBackends(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]config.HistoryConfig{
		"memory":   {Backend: "memory", Limit: 5},
		"jsonl":    {Backend: "jsonl", Path: dir + "/plain.jsonl"},
		"rotating": {Backend: "jsonl", Path: dir + "/rot/cycles.jsonl", MaxSizeMB: 1},
		"sqlite":   {Backend: "sqlite", Path: dir + "/cycles.db"},
	}
	for name, hc := range cases {
		t.Run(name, func(t *testing.T) {
			store, err := openHistory(hc)
			require.NoError(t, err)
			require.NoError(t, store.Append(context.Background(), cyclelog.Record{Seq: 1}))
			recs, err := store.Query(context.Background(), cyclelog.Query{})
			require.NoError(t, err)
			assert.Len(t, recs, 1)
			assert.NoError(t, store.Close())
		})
	}

	store, err := openHistory(cases["rotating"])
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &cyclelog.RotatingJSONLStore{}, store)
}
