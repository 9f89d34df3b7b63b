package metrics

import (
	"time"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// MetricsSink records committed cycles for observability purposes.
type MetricsSink interface {
	RecordCycle(s model.Snapshot) error
}

// PublishEvent reports the outcome of one telemetry publish.
type PublishEvent struct {
	Channel  string
	Topic    string
	Attempts int
	Err      error
	Time     time.Time
}

// PublishRecorder records telemetry publish outcomes.
type PublishRecorder interface {
	RecordPublish(ev PublishEvent) error
}

// ToggleEvent reports an applied or rejected presence toggle.
type ToggleEvent struct {
	Slot     model.SlotID
	Source   string
	Accepted bool
	Time     time.Time
}

// ToggleRecorder records presence toggles.
type ToggleRecorder interface {
	RecordToggle(ev ToggleEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordCycle(model.Snapshot) error { return nil }
func (NopSink) RecordPublish(PublishEvent) error { return nil }
func (NopSink) RecordToggle(ToggleEvent) error   { return nil }
