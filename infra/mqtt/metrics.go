package mqtt

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	publishSuccess *prometheus.CounterVec
	publishFailure *prometheus.CounterVec
	inboundTotal   *prometheus.CounterVec
	connected      prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Gauge) {
	suc := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_publish_success_total",
			Help: "Number of successful MQTT publish operations",
		},
		[]string{"channel"},
	)
	fail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_publish_failure_total",
			Help: "Number of MQTT publish operations that failed after all retries",
		},
		[]string{"channel"},
	)
	in := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_inbound_messages_total",
			Help: "Number of inbound MQTT messages by kind",
		},
		[]string{"kind"},
	)
	up := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mqtt_connected",
			Help: "1 when the broker link is up",
		},
	)
	return suc, fail, in, up
}

func init() {
	publishSuccess, publishFailure, inboundTotal, connected = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers MQTT metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(publishSuccess, publishFailure, inboundTotal, connected)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	publishSuccess, publishFailure, inboundTotal, connected = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
