package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kristi80/Datakomm-prosjekt-2022/core/metrics"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// PromSink exposes cycle results as Prometheus metrics.
type PromSink struct {
	cycles     prometheus.Counter
	unmet      prometheus.Counter
	discharged prometheus.Counter
	charged    prometheus.Counter
	demand     prometheus.Gauge
	residual   prometheus.Gauge
	draw       prometheus.Gauge
	occupied   prometheus.Gauge
	charge     *prometheus.GaugeVec
	parked     *prometheus.GaugeVec
	mode       *prometheus.GaugeVec
	toggles    *prometheus.CounterVec
	publishes  *prometheus.CounterVec
}

var (
	_ coremetrics.MetricsSink     = (*PromSink)(nil)
	_ coremetrics.PublishRecorder = (*PromSink)(nil)
	_ coremetrics.ToggleRecorder  = (*PromSink)(nil)
)

// NewPromSink registers bay metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// register adds c to reg, reusing an identical collector that is already
// registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	counter := func(name, help string) prometheus.Counter {
		if err != nil {
			return nil
		}
		var c prometheus.Counter
		c, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help}))
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		if err != nil {
			return nil
		}
		var g prometheus.Gauge
		g, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help}))
		return g
	}
	gaugeVec := func(name, help string, labels ...string) *prometheus.GaugeVec {
		if err != nil {
			return nil
		}
		var g *prometheus.GaugeVec
		g, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels))
		return g
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		if err != nil {
			return nil
		}
		var c *prometheus.CounterVec
		c, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels))
		return c
	}

	s.cycles = counter("bay_cycles_total", "Number of committed control cycles")
	s.unmet = counter("bay_unmet_cycles_total", "Cycles that ended with residual demand")
	s.discharged = counter("bay_discharged_energy_total", "Energy drawn from parked batteries")
	s.charged = counter("bay_charged_energy_total", "Energy added to parked batteries")
	s.demand = gauge("bay_demand", "Demand sampled in the last cycle")
	s.residual = gauge("bay_residual", "Residual demand after the last cycle")
	s.draw = gauge("bay_discharged", "Energy discharged in the last cycle")
	s.occupied = gauge("bay_occupied_slots", "Number of occupied slots")
	s.charge = gaugeVec("bay_slot_charge_level", "Charge level per slot", "slot")
	s.parked = gaugeVec("bay_slot_parked_cycles", "Cycles a vehicle has been parked per slot", "slot")
	s.mode = gaugeVec("bay_slot_mode", "1 for the current mode of a slot", "slot", "mode")
	s.toggles = counterVec("bay_presence_toggles_total", "Presence toggles by slot and outcome", "slot", "source", "accepted")
	s.publishes = counterVec("bay_telemetry_publish_total", "Telemetry publishes by channel and result", "channel", "result")
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RecordCycle updates every gauge from the snapshot.
func (s *PromSink) RecordCycle(snap model.Snapshot) error {
	s.cycles.Inc()
	if snap.Unmet() {
		s.unmet.Inc()
	}
	s.discharged.Add(float64(snap.TotalDischarged))
	s.charged.Add(float64(snap.TotalCharged))
	s.demand.Set(float64(snap.Demand))
	s.residual.Set(float64(snap.Residual))
	s.draw.Set(float64(snap.TotalDischarged))
	s.occupied.Set(float64(snap.OccupiedCount))
	for _, v := range snap.Slots {
		slot := strconv.Itoa(v.ID.Number())
		s.charge.WithLabelValues(slot).Set(float64(v.ChargeLevel))
		s.parked.WithLabelValues(slot).Set(float64(v.ParkedDuration))
		for _, m := range []model.Mode{model.ModeIdle, model.ModeCharging, model.ModeDischarging} {
			val := 0.0
			if v.Mode == m {
				val = 1
			}
			s.mode.WithLabelValues(slot, m.String()).Set(val)
		}
	}
	return nil
}

// RecordPublish counts telemetry publishes.
func (s *PromSink) RecordPublish(ev coremetrics.PublishEvent) error {
	result := "ok"
	if ev.Err != nil {
		result = "error"
	}
	s.publishes.WithLabelValues(ev.Channel, result).Inc()
	return nil
}

// RecordToggle counts presence toggles.
func (s *PromSink) RecordToggle(ev coremetrics.ToggleEvent) error {
	s.toggles.WithLabelValues(strconv.Itoa(ev.Slot.Number()), ev.Source, strconv.FormatBool(ev.Accepted)).Inc()
	return nil
}
