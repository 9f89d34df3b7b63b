package metrics

import (
	"context"

	coremetrics "github.com/kristi80/Datakomm-prosjekt-2022/core/metrics"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/logger"
	"github.com/kristi80/Datakomm-prosjekt-2022/internal/eventbus"
)

// StartSnapshotCollector subscribes to the snapshot bus and records every
// cycle in sink. It stops when the context is canceled or the bus closes.
// The returned channel is closed once the collector has exited.
func StartSnapshotCollector(ctx context.Context, bus *eventbus.TypedBus[model.Snapshot], sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-sub:
				if !ok {
					return
				}
				if err := sink.RecordCycle(snap); err != nil {
					log.Warnf("record cycle %d: %v", snap.Seq, err)
				}
			}
		}
	}()
	return done
}
