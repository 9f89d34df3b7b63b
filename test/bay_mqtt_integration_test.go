package test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristi80/Datakomm-prosjekt-2022/app"
	"github.com/kristi80/Datakomm-prosjekt-2022/config"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/mqtt"
	"github.com/kristi80/Datakomm-prosjekt-2022/test/util"
)

type topicLog struct {
	mu   sync.Mutex
	last map[string][]byte
}

func (l *topicLog) get(topic string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.last[topic]
	return b, ok
}

func subscribeOutput(t *testing.T, broker string) *topicLog {
	t.Helper()
	log := &topicLog{last: map[string][]byte{}}
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("observer"))
	require.Eventually(t, func() bool {
		token := cli.Connect()
		return token.WaitTimeout(time.Second) && token.Error() == nil
	}, 10*time.Second, 100*time.Millisecond, "observer connect")
	t.Cleanup(func() { cli.Disconnect(100) })
	token := cli.Subscribe("esp32/output/#", 0, func(_ paho.Client, m paho.Message) {
		log.mu.Lock()
		log.last[strings.TrimPrefix(m.Topic(), "esp32/output/")] = append([]byte(nil), m.Payload()...)
		log.mu.Unlock()
	})
	if token.Wait() && token.Error() != nil {
		t.Fatalf("observer subscribe: %v", token.Error())
	}
	return log
}

// TestBayOverMosquitto drives a bay through a real broker: the pot reading
// and a parking toggle go in, telemetry comes out.
func TestBayOverMosquitto(t *testing.T) {
	if !util.DockerAvailable() {
		t.Skip("set DOCKER_AVAILABLE=1 to run container tests")
	}
	ctx := context.Background()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto: %v", err)
	}
	defer cleanup()

	out := subscribeOutput(t, broker)

	cfg := &config.Config{}
	cfg.MQTT.Broker = broker
	cfg.Bay.ControlPeriodMS = 50
	cfg.Bay.DebounceMS = 5
	cfg.Arrival = config.PluginConfig{Type: "fixed", Conf: map[string]any{"units": 50}}
	cfg.API.Disabled = true
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "mqtt", cfg.Demand.Type)

	svc, err := app.New(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = svc.Run(runCtx) }()

	panel, err := mqtt.NewPahoClient(ctx, mqtt.Config{Broker: broker}, mqtt.Handlers{})
	require.NoError(t, err)
	defer panel.Disconnect()

	require.NoError(t, panel.PublishToggle(model.SlotID(0)))
	require.NoError(t, panel.PublishPot(4095))
	require.NoError(t, panel.PublishAux(true))

	require.Eventually(t, func() bool {
		b, ok := out.get("parking_status")
		if !ok {
			return false
		}
		var m struct {
			Message int64 `json:"message"`
		}
		return json.Unmarshal(b, &m) == nil && m.Message == 1
	}, 10*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		b, ok := out.get("powergrid/batteryPark")
		if !ok {
			return false
		}
		var m struct {
			Message int64 `json:"message"`
		}
		return json.Unmarshal(b, &m) == nil && m.Message == 5000
	}, 10*time.Second, 50*time.Millisecond)

	assert.Eventually(t, svc.Aux.On, 5*time.Second, 50*time.Millisecond)
}
