// Package demand turns raw sensor readings into grid demand and provides the
// sources the controller samples once per cycle.
package demand

import (
	"errors"
	"sync"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// ErrNoReading is returned by sources that have not received a value yet.
var ErrNoReading = errors.New("no demand reading")

// Source yields the demand for the current cycle.
type Source interface {
	Sample() (model.Power, error)
}

// MapRaw rescales x from [inMin, inMax] to [outMin, outMax] using integer
// arithmetic. Values outside the input range are extrapolated.
func MapRaw(x, inMin, inMax, outMin, outMax int64) int64 {
	if inMax == inMin {
		return outMin
	}
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// Clamp drops negative demand to zero.
func Clamp(p model.Power) model.Power {
	if p < 0 {
		return 0
	}
	return p
}

// Mapping describes the linear conversion of a raw reading to demand.
type Mapping struct {
	InMin  int64 `json:"in_min"`
	InMax  int64 `json:"in_max"`
	OutMin int64 `json:"out_min"`
	OutMax int64 `json:"out_max"`
}

// DefaultMapping converts a 12-bit potentiometer reading to 0..15000.
var DefaultMapping = Mapping{InMin: 0, InMax: 4095, OutMin: 0, OutMax: 15000}

// Apply maps raw and clamps the result.
func (m Mapping) Apply(raw int64) model.Power {
	if m == (Mapping{}) {
		m = DefaultMapping
	}
	return Clamp(model.Power(MapRaw(raw, m.InMin, m.InMax, m.OutMin, m.OutMax)))
}

// Raw returns a reading that maps back to approximately p.
func (m Mapping) Raw(p model.Power) int64 {
	if m == (Mapping{}) {
		m = DefaultMapping
	}
	return MapRaw(int64(p), m.OutMin, m.OutMax, m.InMin, m.InMax)
}

// Static always returns the same demand.
type Static struct {
	Value model.Power
}

func (s Static) Sample() (model.Power, error) { return s.Value, nil }

// Script replays a fixed series and wraps around at the end.
type Script struct {
	mu     sync.Mutex
	values []model.Power
	next   int
}

// NewScript returns a script over values.
func NewScript(values ...model.Power) *Script {
	return &Script{values: append([]model.Power(nil), values...)}
}

func (s *Script) Sample() (model.Power, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0, ErrNoReading
	}
	v := s.values[s.next]
	s.next = (s.next + 1) % len(s.values)
	return v, nil
}

// Latest holds the most recent raw reading pushed by a transport.
type Latest struct {
	mapping Mapping

	mu   sync.RWMutex
	raw  int64
	seen bool
}

// NewLatest returns a source mapping raw readings with m.
func NewLatest(m Mapping) *Latest { return &Latest{mapping: m} }

// UpdateRaw stores a new raw reading.
func (l *Latest) UpdateRaw(raw int64) {
	l.mu.Lock()
	l.raw = raw
	l.seen = true
	l.mu.Unlock()
}

func (l *Latest) Sample() (model.Power, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.seen {
		return 0, ErrNoReading
	}
	return l.mapping.Apply(l.raw), nil
}

// RawSink is implemented by sources fed with raw readings from outside.
type RawSink interface {
	UpdateRaw(raw int64)
}
