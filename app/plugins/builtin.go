package plugins

import (
	"fmt"
	"time"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/bay"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/demand"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/factory"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/arrival"
	infrademand "github.com/kristi80/Datakomm-prosjekt-2022/infra/demand"
)

func init() {
	RegisterDemand("static", func(_ Env, conf map[string]any) (demand.Source, error) {
		var c struct {
			Value int64 `json:"value"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return demand.Static{Value: demand.Clamp(model.Power(c.Value))}, nil
	})
	RegisterDemand("script", func(_ Env, conf map[string]any) (demand.Source, error) {
		var c struct {
			Values []int64 `json:"values"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if len(c.Values) == 0 {
			return nil, fmt.Errorf("script demand needs values")
		}
		vals := make([]model.Power, len(c.Values))
		for i, v := range c.Values {
			vals[i] = model.Power(v)
		}
		return demand.NewScript(vals...), nil
	})
	RegisterDemand("mqtt", func(_ Env, conf map[string]any) (demand.Source, error) {
		var c struct {
			Mapping demand.Mapping `json:"mapping"`
			MaxAge  time.Duration  `json:"max_age"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return infrademand.NewMQTT(c.Mapping, c.MaxAge), nil
	})

	RegisterArrival("random", func(env Env, conf map[string]any) (bay.ArrivalSource, error) {
		c := struct {
			MinUnits int   `json:"min_units"`
			MaxUnits int   `json:"max_units"`
			Seed     int64 `json:"seed"`
		}{MinUnits: 20, MaxUnits: 80}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.MaxUnits < c.MinUnits {
			return nil, fmt.Errorf("random arrival: max_units %d below min_units %d", c.MaxUnits, c.MinUnits)
		}
		return bay.NewRandomArrival(c.MinUnits, c.MaxUnits, env.UnitSize, c.Seed), nil
	})
	RegisterArrival("fixed", func(env Env, conf map[string]any) (bay.ArrivalSource, error) {
		var c struct {
			Units int64 `json:"units"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return bay.FixedArrival{Level: model.Energy(c.Units) * env.UnitSize}, nil
	})
	RegisterArrival("telemetry", func(env Env, conf map[string]any) (bay.ArrivalSource, error) {
		var c struct {
			Fallback factory.ModuleConfig `json:"fallback"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		var fallback bay.ArrivalSource
		if c.Fallback.Type != "" {
			if c.Fallback.Type == "telemetry" {
				return nil, fmt.Errorf("telemetry arrival cannot fall back to itself")
			}
			var err error
			if fallback, err = NewArrival(env, c.Fallback); err != nil {
				return nil, fmt.Errorf("telemetry fallback: %w", err)
			}
		}
		return arrival.NewTelemetry(env.Capacity, fallback), nil
	})
}
