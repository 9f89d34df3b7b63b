package metrics

import (
	"fmt"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/factory"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink makes a sink type available to the metrics.sinks
// configuration list.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinkRegistry.Names() }

// NewMetricsSink builds the sinks listed in cfgs. nop entries are dropped, so
// an empty or all-nop list yields NopSink. A type may appear once: two
// prometheus sinks would share collectors and count every cycle twice.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	seen := make(map[string]bool, len(cfgs))
	var sinks []MetricsSink
	for i, c := range cfgs {
		if seen[c.Type] && c.Type != "nop" {
			return nil, fmt.Errorf("sinks[%d]: duplicate %s sink", i, c.Type)
		}
		seen[c.Type] = true
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, fmt.Errorf("sinks[%d]: %w", i, err)
		}
		if _, nop := s.(NopSink); nop {
			continue
		}
		sinks = append(sinks, s)
	}
	switch len(sinks) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}
