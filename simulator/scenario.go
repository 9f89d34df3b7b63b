// Package simulator replays demand and presence scenarios against the bay
// controller, either offline or through a live broker.
package simulator

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kristi80/Datakomm-prosjekt-2022/config"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/factory"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// Toggle flips presence of slot (one based, as on the panel) before cycle
// runs.
type Toggle struct {
	Cycle int `yaml:"cycle"`
	Slot  int `yaml:"slot"`
	// SoC optionally reports the arrival charge in percent ahead of the
	// toggle when the scenario is played live.
	SoC *float64 `yaml:"soc,omitempty"`
}

// BayOverrides replaces bay parameters for the scenario. Zero values keep
// the configured bay.
type BayOverrides struct {
	Slots            int     `yaml:"slots"`
	GridCapacity     int64   `yaml:"grid_capacity"`
	ReserveFraction  float64 `yaml:"reserve_fraction"`
	DischargeQuantum int64   `yaml:"discharge_quantum"`
	ChargeQuantum    int64   `yaml:"charge_quantum"`
	CapacityUnits    int64   `yaml:"capacity_units"`
	WhPerUnit        int64   `yaml:"wh_per_unit"`
	DeficitPolicy    string  `yaml:"deficit_policy"`
}

// Scenario is a scripted run of the bay.
type Scenario struct {
	Name   string `yaml:"name"`
	Cycles int    `yaml:"cycles"`
	// Demand is replayed cyclically, one value per cycle.
	Demand  []int64              `yaml:"demand"`
	Arrival factory.ModuleConfig `yaml:"arrival"`
	Toggles []Toggle             `yaml:"toggles"`
	Bay     BayOverrides         `yaml:"bay"`
	// Period is the simulated time between cycles.
	Period time.Duration `yaml:"period"`
	Start  time.Time     `yaml:"start"`
	// Seed drives the default random arrival source.
	Seed int64 `yaml:"seed"`
}

// Load reads a YAML scenario from path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML scenario and applies defaults.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	sc.SetDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// SetDefaults fills the run length and clock.
func (s *Scenario) SetDefaults() {
	if s.Cycles == 0 {
		s.Cycles = len(s.Demand)
	}
	if s.Period <= 0 {
		s.Period = 2 * time.Second
	}
	if s.Arrival.Type == "" {
		s.Arrival = factory.ModuleConfig{Type: "random", Conf: map[string]any{"seed": s.Seed}}
	}
	if s.Start.IsZero() {
		s.Start = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	}
}

// Validate checks the scenario against itself; slot bounds are checked once
// the bay size is known.
func (s Scenario) Validate() error {
	if s.Cycles <= 0 {
		return fmt.Errorf("cycles must be positive")
	}
	if len(s.Demand) == 0 {
		return fmt.Errorf("demand series is empty")
	}
	for i, t := range s.Toggles {
		if t.Cycle < 0 || t.Cycle >= s.Cycles {
			return fmt.Errorf("toggle %d: cycle %d outside 0..%d", i, t.Cycle, s.Cycles-1)
		}
		if t.Slot < 1 {
			return fmt.Errorf("toggle %d: slot must be >= 1", i)
		}
		if t.SoC != nil && (*t.SoC < 0 || *t.SoC > 100) {
			return fmt.Errorf("toggle %d: soc %.1f outside 0..100", i, *t.SoC)
		}
	}
	return nil
}

// Apply returns base with the overrides set.
func (o BayOverrides) Apply(base config.BayConfig) config.BayConfig {
	if o.Slots != 0 {
		base.Slots = o.Slots
	}
	if o.GridCapacity != 0 {
		base.GridCapacity = o.GridCapacity
	}
	if o.ReserveFraction != 0 {
		base.ReserveFraction = o.ReserveFraction
	}
	if o.DischargeQuantum != 0 {
		base.DischargeQuantum = o.DischargeQuantum
	}
	if o.ChargeQuantum != 0 {
		base.ChargeQuantum = o.ChargeQuantum
	}
	if o.CapacityUnits != 0 {
		base.CapacityUnits = o.CapacityUnits
	}
	if o.WhPerUnit != 0 {
		base.WhPerUnit = o.WhPerUnit
	}
	if o.DeficitPolicy != "" {
		base.DeficitPolicy = o.DeficitPolicy
	}
	return base
}

// DemandAt returns the demand of cycle i.
func (s Scenario) DemandAt(i int) model.Power {
	return model.Power(s.Demand[i%len(s.Demand)])
}

// togglesAt groups toggles by cycle.
func (s Scenario) togglesAt() map[int][]Toggle {
	out := make(map[int][]Toggle, len(s.Toggles))
	for _, t := range s.Toggles {
		out[t.Cycle] = append(out[t.Cycle], t)
	}
	return out
}
