package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kristi80/Datakomm-prosjekt-2022/core/metrics"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/logger"
)

// InfluxConfig holds the connection settings of an influx sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// UnitSize converts energy to whole units in the points; defaults to 3600.
	UnitSize int64 `json:"unit_size"`
}

// InfluxSink writes cycles to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	unit     model.Energy
	log      logger.Logger
}

var (
	_ coremetrics.MetricsSink    = (*InfluxSink)(nil)
	_ coremetrics.ToggleRecorder = (*InfluxSink)(nil)
)

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	unit := model.Energy(cfg.UnitSize)
	if unit <= 0 {
		unit = 3600
	}
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		unit:     unit,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCycle writes one bay_cycle point and one slot_state point per slot.
func (s *InfluxSink) RecordCycle(snap model.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, 1+len(snap.Slots))
	points = append(points, write.NewPointWithMeasurement("bay_cycle").
		AddTag("component", "controller").
		AddField("seq", int64(snap.Seq)).
		AddField("demand", int64(snap.Demand)).
		AddField("deficit", int64(snap.Deficit)).
		AddField("residual", int64(snap.Residual)).
		AddField("discharged", int64(snap.TotalDischarged)).
		AddField("charged", int64(snap.TotalCharged)).
		AddField("occupied", snap.OccupiedCount).
		AddField("unmet", snap.Unmet()).
		SetTime(snap.Time))
	for _, v := range snap.Slots {
		points = append(points, write.NewPointWithMeasurement("slot_state").
			AddTag("slot", strconv.Itoa(v.ID.Number())).
			AddTag("mode", v.Mode.String()).
			AddField("occupied", v.Occupied).
			AddField("charge_level", int64(v.ChargeLevel)).
			AddField("charge_units", v.ChargeLevel.Units(s.unit)).
			AddField("soc", round3(float64(v.ChargeLevel)/float64(snap.CapacityMax))).
			AddField("parked_cycles", v.ParkedDuration).
			AddField("delta", int64(v.Delta)).
			SetTime(snap.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordToggle writes a presence_toggle point.
func (s *InfluxSink) RecordToggle(ev coremetrics.ToggleEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("presence_toggle").
		AddTag("slot", strconv.Itoa(ev.Slot.Number())).
		AddTag("source", ev.Source).
		AddField("accepted", ev.Accepted).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Round(f*1000) / 1000
}
