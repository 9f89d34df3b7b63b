// Package demand adapts transport readings into demand sources.
package demand

import (
	"fmt"
	"sync"
	"time"

	coredemand "github.com/kristi80/Datakomm-prosjekt-2022/core/demand"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// ErrStale is returned when the last reading is older than the configured
// maximum age.
var ErrStale = fmt.Errorf("demand reading is stale")

// MQTT samples the last potentiometer reading received over MQTT.
type MQTT struct {
	latest *coredemand.Latest
	maxAge time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen time.Time
}

// NewMQTT returns a source mapping readings with m. Readings older than
// maxAge are rejected; zero disables the check.
func NewMQTT(m coredemand.Mapping, maxAge time.Duration) *MQTT {
	return &MQTT{latest: coredemand.NewLatest(m), maxAge: maxAge, now: time.Now}
}

// UpdateRaw stores a raw reading. It matches mqtt.Handlers.Demand.
func (s *MQTT) UpdateRaw(raw int64) {
	s.latest.UpdateRaw(raw)
	s.mu.Lock()
	s.seen = s.now()
	s.mu.Unlock()
}

func (s *MQTT) Sample() (model.Power, error) {
	p, err := s.latest.Sample()
	if err != nil {
		return 0, err
	}
	if s.maxAge > 0 {
		s.mu.Lock()
		age := s.now().Sub(s.seen)
		s.mu.Unlock()
		if age > s.maxAge {
			return 0, fmt.Errorf("%w: last reading %s ago", ErrStale, age.Round(time.Millisecond))
		}
	}
	return p, nil
}

var _ coredemand.Source = (*MQTT)(nil)
var _ coredemand.RawSink = (*MQTT)(nil)
