package mqtt

import (
	"context"
	"errors"
	"time"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/logger"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/metrics"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	coremqtt "github.com/kristi80/Datakomm-prosjekt-2022/core/mqtt"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/telemetry"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// ErrNotConnected mirrors the core sentinel.
var ErrNotConnected = coremqtt.ErrNotConnected

// Publisher sends the telemetry of every committed cycle.
type Publisher struct {
	client   Client
	encoder  *telemetry.Encoder
	recorder metrics.PublishRecorder
	logger   logger.Logger
	now      func() time.Time
}

// NewPublisher returns a Publisher. A nil recorder discards publish events.
func NewPublisher(c Client, enc *telemetry.Encoder, rec metrics.PublishRecorder, log logger.Logger) *Publisher {
	if rec == nil {
		rec = metrics.NopSink{}
	}
	return &Publisher{client: c, encoder: enc, recorder: rec, logger: log, now: time.Now}
}

// Follow publishes every snapshot received on sub until ctx is done or sub
// is closed. It runs beside the control loop so a slow broker only delays
// telemetry; the bus drops the oldest snapshots when it falls behind.
func (p *Publisher) Follow(ctx context.Context, sub <-chan model.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-sub:
			if !ok {
				return
			}
			if err := p.Observe(ctx, s); err != nil && ctx.Err() == nil {
				p.logger.Warnf("cycle %d telemetry: %v", s.Seq, err)
			}
		}
	}
}

// Observe publishes one message per telemetry channel. The cycle is skipped
// while the broker link is down; control continues regardless.
func (p *Publisher) Observe(ctx context.Context, s model.Snapshot) error {
	if !p.client.IsConnected() {
		p.logger.Debugf("cycle %d: broker unavailable, telemetry skipped", s.Seq)
		return nil
	}
	msgs, err := p.encoder.Encode(s)
	if err != nil {
		return err
	}
	var errs []error
	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempts, err := p.client.Publish(m.Channel, m.Topic, m.Payload)
		ev := metrics.PublishEvent{Channel: m.Channel, Topic: m.Topic, Attempts: attempts, Err: err, Time: p.now()}
		if rerr := p.recorder.RecordPublish(ev); rerr != nil {
			p.logger.Errorf("record publish: %v", rerr)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
