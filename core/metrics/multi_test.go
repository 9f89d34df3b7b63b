package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/factory"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordCycle(model.Snapshot) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordPublish(PublishEvent) error {
	r.count++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, NopSink{})
	if err := m.RecordCycle(model.Snapshot{}); err != nil {
		t.Fatalf("record cycle: %v", err)
	}
	if err := m.RecordPublish(PublishEvent{}); err != nil {
		t.Fatalf("record publish: %v", err)
	}
	if err := m.RecordToggle(ToggleEvent{}); err != nil {
		t.Fatalf("record toggle: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("results not forwarded")
	}
}

func TestMultiSinkKeepsGoingOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordCycle(model.Snapshot{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s2.count)
}

func TestConfigHasSink(t *testing.T) {
	c := Config{}
	assert.False(t, c.HasSink("prometheus"))
	c.Sinks = append(c.Sinks, factory.ModuleConfig{Type: "prometheus"})
	assert.True(t, c.HasSink("prometheus"))
}
