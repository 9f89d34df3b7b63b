package config

import (
	"fmt"
	"time"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/allocation"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/controller"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// BayConfig holds the allocation parameters and the control timing.
// Zero values take the defaults of the deployed bay.
type BayConfig struct {
	GridCapacity     int64   `json:"grid_capacity"`
	ReserveFraction  float64 `json:"reserve_fraction"`
	DischargeQuantum int64   `json:"discharge_quantum"`
	ChargeQuantum    int64   `json:"charge_quantum"`
	CapacityUnits    int64   `json:"capacity_units"`
	WhPerUnit        int64   `json:"wh_per_unit"`
	ControlPeriodMS  int     `json:"control_period_ms"`
	DebounceMS       int     `json:"debounce_ms"`
	Slots            int     `json:"slots"`
	DeficitPolicy    string  `json:"deficit_policy"`
	StrictInvariants bool    `json:"strict_invariants"`
	QueueSize        int     `json:"queue_size"`
}

// SetDefaults applies sane defaults.
func (c *BayConfig) SetDefaults() {
	d := allocation.DefaultParams()
	if c.GridCapacity == 0 {
		c.GridCapacity = int64(d.GridCapacity)
	}
	if c.ReserveFraction == 0 {
		c.ReserveFraction = d.ReserveFraction
	}
	if c.DischargeQuantum == 0 {
		c.DischargeQuantum = int64(d.DischargeQuantum)
	}
	if c.ChargeQuantum == 0 {
		c.ChargeQuantum = int64(d.ChargeQuantum)
	}
	if c.CapacityUnits == 0 {
		c.CapacityUnits = 100
	}
	if c.WhPerUnit == 0 {
		c.WhPerUnit = 3600
	}
	if c.ControlPeriodMS == 0 {
		c.ControlPeriodMS = 2000
	}
	if c.DebounceMS == 0 {
		c.DebounceMS = 50
	}
	if c.Slots == 0 {
		c.Slots = 3
	}
	if c.DeficitPolicy == "" {
		c.DeficitPolicy = allocation.PolicyRaw
	}
	if c.QueueSize == 0 {
		c.QueueSize = 32
	}
}

// Validate checks mandatory fields.
func (c BayConfig) Validate() error {
	if c.Slots < 1 {
		return fmt.Errorf("slots must be at least 1")
	}
	if c.ControlPeriodMS < c.DebounceMS {
		return fmt.Errorf("control_period_ms %d shorter than debounce_ms %d", c.ControlPeriodMS, c.DebounceMS)
	}
	if c.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must not be negative")
	}
	if _, err := allocation.ParsePolicy(c.DeficitPolicy); err != nil {
		return err
	}
	p, err := c.Params()
	if err != nil {
		return err
	}
	return p.Validate()
}

// UnitSize is the energy of one battery unit.
func (c BayConfig) UnitSize() model.Energy { return model.Energy(c.WhPerUnit) }

// Params converts the section into allocation parameters.
func (c BayConfig) Params() (allocation.Params, error) {
	policy, err := allocation.ParsePolicy(c.DeficitPolicy)
	if err != nil {
		return allocation.Params{}, err
	}
	return allocation.Params{
		GridCapacity:     model.Power(c.GridCapacity),
		DischargeQuantum: model.Energy(c.DischargeQuantum),
		ChargeQuantum:    model.Energy(c.ChargeQuantum),
		ReserveFraction:  c.ReserveFraction,
		CapacityMax:      model.Energy(c.CapacityUnits) * c.UnitSize(),
		Policy:           policy,
	}, nil
}

// ControllerConfig returns the loop timing. The fast loop polls at the
// debounce interval.
func (c BayConfig) ControllerConfig() controller.Config {
	debounce := time.Duration(c.DebounceMS) * time.Millisecond
	return controller.Config{
		PollInterval:     debounce,
		ControlPeriod:    time.Duration(c.ControlPeriodMS) * time.Millisecond,
		Debounce:         debounce,
		StrictInvariants: c.StrictInvariants,
		QueueSize:        c.QueueSize,
	}
}
