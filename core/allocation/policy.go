package allocation

import (
	"fmt"
	"strings"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// DeficitPolicy turns sampled demand into the deficit the bay has to cover.
type DeficitPolicy interface {
	Name() string
	Deficit(demand, gridCapacity model.Power) model.Power
}

// RawDeficit treats all demand as deficit. Any positive demand triggers
// discharge regardless of grid capacity.
type RawDeficit struct{}

func (RawDeficit) Name() string { return PolicyRaw }

func (RawDeficit) Deficit(demand, _ model.Power) model.Power { return demand }

// HeadroomDeficit only covers demand above the grid capacity.
type HeadroomDeficit struct{}

func (HeadroomDeficit) Name() string { return PolicyHeadroom }

func (HeadroomDeficit) Deficit(demand, gridCapacity model.Power) model.Power {
	return demand - gridCapacity
}

const (
	PolicyRaw      = "raw"
	PolicyHeadroom = "headroom"
)

// ParsePolicy returns the policy registered under name. An empty name selects
// the raw policy.
func ParsePolicy(name string) (DeficitPolicy, error) {
	switch strings.ToLower(name) {
	case "", PolicyRaw:
		return RawDeficit{}, nil
	case PolicyHeadroom:
		return HeadroomDeficit{}, nil
	}
	return nil, fmt.Errorf("unknown deficit policy %q", name)
}
