package metrics

import (
	"errors"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCycle forwards the snapshot to every sink. A failing sink does not
// stop the others; all errors are joined.
func (m *MultiSink) RecordCycle(s model.Snapshot) error {
	var errs []error
	for _, sink := range m.Sinks {
		if err := sink.RecordCycle(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordPublish forwards publish outcomes to sinks that support them.
func (m *MultiSink) RecordPublish(ev PublishEvent) error {
	var errs []error
	for _, sink := range m.Sinks {
		if rec, ok := sink.(PublishRecorder); ok {
			if err := rec.RecordPublish(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordToggle forwards toggles to sinks that support them.
func (m *MultiSink) RecordToggle(ev ToggleEvent) error {
	var errs []error
	for _, sink := range m.Sinks {
		if rec, ok := sink.(ToggleRecorder); ok {
			if err := rec.RecordToggle(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
