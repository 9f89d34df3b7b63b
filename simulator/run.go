package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/kristi80/Datakomm-prosjekt-2022/app/plugins"
	"github.com/kristi80/Datakomm-prosjekt-2022/config"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/bay"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/controller"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/cyclelog"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/demand"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/presence"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/logger"
)

// Options tune an offline run.
type Options struct {
	Log       logger.Logger
	Observers []controller.Observer
}

// Run plays sc against a fresh bay built from base and returns one record
// per cycle. Toggles of a cycle are applied before that cycle runs, stamped
// with the simulated clock.
func Run(ctx context.Context, sc *Scenario, base config.BayConfig, opts Options) ([]cyclelog.Record, error) {
	bayCfg := sc.Bay.Apply(base)
	bayCfg.SetDefaults()
	if err := bayCfg.Validate(); err != nil {
		return nil, fmt.Errorf("bay: %w", err)
	}
	for i, t := range sc.Toggles {
		if t.Slot > bayCfg.Slots {
			return nil, fmt.Errorf("toggle %d: slot %d outside 1..%d", i, t.Slot, bayCfg.Slots)
		}
	}
	params, err := bayCfg.Params()
	if err != nil {
		return nil, err
	}
	arrivals, err := plugins.NewArrival(plugins.Env{Capacity: params.CapacityMax, UnitSize: bayCfg.UnitSize()}, sc.Arrival)
	if err != nil {
		return nil, fmt.Errorf("arrival: %w", err)
	}
	store, err := bay.NewStore(bayCfg.Slots, params.CapacityMax)
	if err != nil {
		return nil, err
	}
	series := make([]model.Power, len(sc.Demand))
	for i := range sc.Demand {
		series[i] = sc.DemandAt(i)
	}

	log := opts.Log
	if log == nil {
		log = logger.NopLogger{}
	}
	now := sc.Start
	ctrl, err := controller.New(bayCfg.ControllerConfig(), controller.Deps{
		Store:     store,
		Arrivals:  arrivals,
		Params:    params,
		Demand:    demand.NewScript(series...),
		Observers: opts.Observers,
		Log:       log,
		Clock:     func() time.Time { return now },
	})
	if err != nil {
		return nil, err
	}

	toggles := sc.togglesAt()
	recs := make([]cyclelog.Record, 0, sc.Cycles)
	for i := 0; i < sc.Cycles; i++ {
		if err := ctx.Err(); err != nil {
			return recs, err
		}
		now = sc.Start.Add(time.Duration(i) * sc.Period)
		for _, t := range toggles[i] {
			ev := presence.ToggleEvent{Slot: model.SlotFromNumber(t.Slot), At: now, Source: "scenario"}
			if _, _, err := ctrl.ApplyToggle(ev); err != nil {
				return recs, fmt.Errorf("cycle %d: %w", i, err)
			}
		}
		recs = append(recs, cyclelog.FromSnapshot(ctrl.RunCycle(ctx)))
	}
	return recs, nil
}
