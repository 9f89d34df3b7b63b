package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/demand"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/logger"
)

// PanelClient publishes panel inputs to a running bay.
type PanelClient interface {
	PublishPot(raw int64) error
	PublishToggle(slot model.SlotID) error
	PublishSoC(slot model.SlotID, percent float64) error
}

// Panel plays a scenario in real time, standing in for the physical
// potentiometer and parking sensors.
type Panel struct {
	Client  PanelClient
	Mapping demand.Mapping
	Log     logger.Logger
}

// Play publishes the inputs of every cycle, one cycle per scenario period.
// Publish failures are logged and the run continues.
func (p *Panel) Play(ctx context.Context, sc *Scenario) error {
	if p.Client == nil {
		return fmt.Errorf("panel: client is required")
	}
	log := p.Log
	if log == nil {
		log = logger.NopLogger{}
	}
	toggles := sc.togglesAt()
	ticker := time.NewTicker(sc.Period)
	defer ticker.Stop()
	for i := 0; i < sc.Cycles; i++ {
		raw := p.Mapping.Raw(sc.DemandAt(i))
		if err := p.Client.PublishPot(raw); err != nil {
			log.Warnf("cycle %d: pot %d: %v", i, raw, err)
		}
		for _, t := range toggles[i] {
			slot := model.SlotFromNumber(t.Slot)
			if t.SoC != nil {
				if err := p.Client.PublishSoC(slot, *t.SoC); err != nil {
					log.Warnf("cycle %d: soc %s: %v", i, slot, err)
				}
			}
			if err := p.Client.PublishToggle(slot); err != nil {
				log.Warnf("cycle %d: toggle %s: %v", i, slot, err)
			}
		}
		if i == sc.Cycles-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
