package plugins

import (
	"fmt"
	"sort"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/bay"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/demand"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/factory"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// Env carries the bay parameters plugins depend on.
type Env struct {
	Capacity model.Energy
	UnitSize model.Energy
}

// DemandFactory builds a demand source from a raw configuration map.
type DemandFactory func(env Env, conf map[string]any) (demand.Source, error)

// ArrivalFactory builds an arrival source from a raw configuration map.
type ArrivalFactory func(env Env, conf map[string]any) (bay.ArrivalSource, error)

var (
	Demands  = map[string]DemandFactory{}
	Arrivals = map[string]ArrivalFactory{}
)

func RegisterDemand(name string, f DemandFactory)   { Demands[name] = f }
func RegisterArrival(name string, f ArrivalFactory) { Arrivals[name] = f }

// NewDemand creates the demand source described by cfg.
func NewDemand(env Env, cfg factory.ModuleConfig) (demand.Source, error) {
	f, ok := Demands[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown demand type %q (known: %v)", cfg.Type, names(Demands))
	}
	return f(env, cfg.Conf)
}

// NewArrival creates the arrival source described by cfg.
func NewArrival(env Env, cfg factory.ModuleConfig) (bay.ArrivalSource, error) {
	f, ok := Arrivals[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown arrival type %q (known: %v)", cfg.Type, names(Arrivals))
	}
	return f(env, cfg.Conf)
}

func names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
