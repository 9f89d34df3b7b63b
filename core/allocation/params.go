package allocation

import (
	"fmt"
	"math"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// Params configures the engine and the scheduler.
type Params struct {
	GridCapacity     model.Power
	DischargeQuantum model.Energy
	ChargeQuantum    model.Energy
	ReserveFraction  float64
	CapacityMax      model.Energy
	Policy           DeficitPolicy
}

// DefaultParams returns the values of the deployed bay: 100 units of 3600
// per battery, a 10% reserve and 5000 per draw.
func DefaultParams() Params {
	return Params{
		GridCapacity:     100000,
		DischargeQuantum: 5000,
		ChargeQuantum:    5000,
		ReserveFraction:  0.10,
		CapacityMax:      100 * 3600,
		Policy:           RawDeficit{},
	}
}

// Reserve is the minimum charge a donor must hold.
func (p Params) Reserve() model.Energy {
	return model.Energy(math.Round(p.ReserveFraction * float64(p.CapacityMax)))
}

// Validate checks the parameters for consistency.
func (p Params) Validate() error {
	if p.CapacityMax <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	if p.DischargeQuantum <= 0 || p.ChargeQuantum <= 0 {
		return fmt.Errorf("quantum must be positive")
	}
	if p.ReserveFraction < 0 || p.ReserveFraction > 1 {
		return fmt.Errorf("reserve fraction %v outside [0,1]", p.ReserveFraction)
	}
	if p.GridCapacity < 0 {
		return fmt.Errorf("grid capacity must not be negative")
	}
	return nil
}

func (p Params) policy() DeficitPolicy {
	if p.Policy == nil {
		return RawDeficit{}
	}
	return p.Policy
}
