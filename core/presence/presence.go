// Package presence carries slot occupancy toggles from inputs (MQTT, HTTP,
// scenarios) to the controller.
package presence

import (
	"time"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// ToggleEvent flips the occupancy of one slot.
type ToggleEvent struct {
	Slot   model.SlotID `json:"slot"`
	At     time.Time    `json:"at"`
	Source string       `json:"source"`
}

// Debouncer drops repeated toggles for the same slot that arrive within the
// window. It is not safe for concurrent use.
type Debouncer struct {
	window time.Duration
	last   map[model.SlotID]time.Time
}

// NewDebouncer returns a debouncer with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window, last: make(map[model.SlotID]time.Time)}
}

// Allow reports whether ev should be applied and records it if so.
func (d *Debouncer) Allow(ev ToggleEvent) bool {
	if prev, ok := d.last[ev.Slot]; ok && d.window > 0 && ev.At.Sub(prev) < d.window {
		return false
	}
	d.last[ev.Slot] = ev.At
	return true
}
