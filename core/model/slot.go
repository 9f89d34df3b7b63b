package model

import (
	"fmt"
	"strings"
)

// SlotID identifies a parking slot. IDs are zero based; dashboards and MQTT
// topics use Number().
type SlotID int

// Number returns the one based slot number used on the wire.
func (id SlotID) Number() int { return int(id) + 1 }

func (id SlotID) String() string { return fmt.Sprintf("slot %d", id.Number()) }

// SlotFromNumber converts a one based wire number to a SlotID.
func SlotFromNumber(n int) SlotID { return SlotID(n - 1) }

// Mode is the per-cycle activity of a slot. It is rebuilt every cycle from
// that cycle's decisions and never carried over.
type Mode int

const (
	ModeIdle Mode = iota
	ModeCharging
	ModeDischarging
)

func (m Mode) String() string {
	switch m {
	case ModeCharging:
		return "charging"
	case ModeDischarging:
		return "discharging"
	default:
		return "idle"
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText decodes a mode name produced by MarshalText.
func (m *Mode) UnmarshalText(b []byte) error {
	mode, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "idle":
		return ModeIdle, nil
	case "charging":
		return ModeCharging, nil
	case "discharging":
		return ModeDischarging, nil
	}
	return ModeIdle, fmt.Errorf("unknown mode %q", s)
}

// State is the lifecycle position of a slot.
type State int

const (
	StateEmpty State = iota
	StateParkedIdle
	StateCharging
	StateDischarging
)

func (s State) String() string {
	switch s {
	case StateParkedIdle:
		return "parked"
	case StateCharging:
		return "charging"
	case StateDischarging:
		return "discharging"
	default:
		return "empty"
	}
}

// SlotView is a read-only copy of one slot as seen by a cycle.
type SlotView struct {
	ID             SlotID `json:"id"`
	Occupied       bool   `json:"occupied"`
	ChargeLevel    Energy `json:"charge_level"`
	ParkedDuration int    `json:"parked_duration"`
	Mode           Mode   `json:"mode"`
	// Delta is the energy moved this cycle, always non-negative. Mode gives
	// its direction.
	Delta   Energy `json:"delta"`
	Percent int    `json:"percent"`
}

// State derives the lifecycle state from occupancy and mode.
func (v SlotView) State() State {
	if !v.Occupied {
		return StateEmpty
	}
	switch v.Mode {
	case ModeCharging:
		return StateCharging
	case ModeDischarging:
		return StateDischarging
	}
	return StateParkedIdle
}
