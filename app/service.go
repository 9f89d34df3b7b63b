package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	bayapi "github.com/kristi80/Datakomm-prosjekt-2022/api/bay"
	"github.com/kristi80/Datakomm-prosjekt-2022/app/plugins"
	"github.com/kristi80/Datakomm-prosjekt-2022/config"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/auxout"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/bay"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/controller"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/cyclelog"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/demand"
	coremetrics "github.com/kristi80/Datakomm-prosjekt-2022/core/metrics"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/monitoring"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/presence"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/telemetry"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/arrival"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/display"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/logger"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/metrics"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/mqtt"
	"github.com/kristi80/Datakomm-prosjekt-2022/internal/eventbus"
)

// Service wires the controller to its transport, history, metrics and API.
type Service struct {
	Controller *controller.Controller
	Aux        *auxout.Output
	History    cyclelog.LogStore

	cfg     *config.Config
	log     logger.Logger
	bus     *eventbus.TypedBus[model.Snapshot]
	hub     *bayapi.Hub
	sink    coremetrics.MetricsSink
	client  *mqtt.PahoClient
	pub     *mqtt.Publisher
	handler http.Handler
}

// New creates a Service from the configuration. When a broker is configured
// the MQTT connection is established here, bounded by ctx.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	params, err := cfg.Bay.Params()
	if err != nil {
		return nil, fmt.Errorf("bay params: %w", err)
	}
	env := plugins.Env{Capacity: params.CapacityMax, UnitSize: cfg.Bay.UnitSize()}
	demandSrc, err := plugins.NewDemand(env, cfg.Demand)
	if err != nil {
		return nil, fmt.Errorf("demand: %w", err)
	}
	arrivals, err := plugins.NewArrival(env, cfg.Arrival)
	if err != nil {
		return nil, fmt.Errorf("arrival: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	history, err := openHistory(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	store, err := bay.NewStore(cfg.Bay.Slots, params.CapacityMax)
	if err != nil {
		return nil, err
	}

	s := &Service{
		Aux:     auxout.NewOutput(logger.New("aux")),
		History: history,
		cfg:     cfg,
		log:     logg,
		bus:     eventbus.NewTyped[model.Snapshot](16),
		hub:     bayapi.NewHub(logger.New("stream")),
		sink:    sink,
	}

	observers := []controller.Observer{controller.ObserverFunc(s.record), s.bus}
	if cfg.Display.Enabled {
		observers = append(observers, display.NewConsole(os.Stdout, logger.New("display"), cfg.Display.Every, cfg.Bay.UnitSize()))
	}

	var ctrlRef atomic.Pointer[controller.Controller]
	var transport controller.Transport
	if cfg.MQTTEnabled() {
		client, err := mqtt.NewPahoClient(ctx, cfg.MQTT, s.handlers(&ctrlRef, demandSrc, arrivals))
		if err != nil {
			_ = history.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.client = client
		transport = client
		rec, _ := sink.(coremetrics.PublishRecorder)
		enc := telemetry.NewEncoder(cfg.MQTT.TopicPrefix, cfg.Bay.UnitSize())
		s.pub = mqtt.NewPublisher(client, enc, rec, logger.New("telemetry"))
	} else {
		logg.Warnf("no mqtt broker configured: telemetry disabled, inputs limited to the HTTP API")
	}

	ctrl, err := controller.New(cfg.Bay.ControllerConfig(), controller.Deps{
		Store:     store,
		Arrivals:  arrivals,
		Params:    params,
		Demand:    demandSrc,
		Transport: transport,
		Aux:       s.Aux,
		Observers: observers,
		Log:       logger.New("controller"),
		OnToggle:  s.recordToggle,
	})
	if err != nil {
		s.closeTransport()
		_ = history.Close()
		return nil, err
	}
	ctrlRef.Store(ctrl)
	s.Controller = ctrl

	if !cfg.API.Disabled {
		s.handler = bayapi.NewRouter(bayapi.Options{
			Bay:            ctrl,
			History:        history,
			Aux:            s.Aux,
			Hub:            s.hub,
			Log:            logger.New("api"),
			AllowedOrigins: cfg.API.AllowedOrigins,
			Token:          cfg.API.Token,
		})
	}
	return s, nil
}

func openHistory(cfg config.HistoryConfig) (cyclelog.LogStore, error) {
	switch {
	case cfg.Backend == "memory":
		return cyclelog.NewMemoryStore(cfg.Limit), nil
	case cfg.Backend == "jsonl" && cfg.MaxSizeMB > 0:
		return cyclelog.NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}
	return cyclelog.New(cfg.Backend, cfg.Path)
}

// handlers routes inbound MQTT commands. Toggles arriving before the
// controller exists are dropped.
func (s *Service) handlers(ctrl *atomic.Pointer[controller.Controller], src demand.Source, arrivals bay.ArrivalSource) mqtt.Handlers {
	h := mqtt.Handlers{
		Aux: func(cmd string) {
			if err := s.Aux.Apply(cmd); err != nil {
				s.log.Warnf("aux: %v", err)
			}
		},
		Toggle: func(id model.SlotID) {
			c := ctrl.Load()
			if c == nil {
				return
			}
			if err := c.Submit(presence.ToggleEvent{Slot: id, At: time.Now(), Source: "mqtt"}); err != nil {
				s.log.Warnf("toggle %s: %v", id, err)
			}
		},
	}
	if raw, ok := src.(demand.RawSink); ok {
		h.Demand = raw.UpdateRaw
	}
	if tel, ok := arrivals.(*arrival.Telemetry); ok {
		h.SoC = tel.UpdateSoC
	}
	return h
}

func (s *Service) record(ctx context.Context, snap model.Snapshot) error {
	return s.History.Append(ctx, cyclelog.FromSnapshot(snap))
}

func (s *Service) recordToggle(ev presence.ToggleEvent, _ bay.Transition, applied bool) {
	rec, ok := s.sink.(coremetrics.ToggleRecorder)
	if !ok {
		return
	}
	if err := rec.RecordToggle(coremetrics.ToggleEvent{Slot: ev.Slot, Source: ev.Source, Accepted: applied, Time: ev.At}); err != nil {
		s.log.Warnf("record toggle: %v", err)
	}
}

// Handler returns the HTTP API, or nil when it is disabled.
func (s *Service) Handler() http.Handler { return s.handler }

// Run starts every component and blocks until the context is cancelled or
// one of them fails.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	streamSub := s.bus.Subscribe()
	collected := metrics.StartSnapshotCollector(gctx, s.bus, s.sink, logger.New("metrics"))
	if s.pub != nil {
		telemetrySub := s.bus.Subscribe()
		g.Go(func() error {
			s.pub.Follow(gctx, telemetrySub)
			return nil
		})
	}

	g.Go(func() error { return s.Controller.Run(gctx) })
	g.Go(func() error {
		s.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.hub.Follow(gctx, streamSub)
		return nil
	})
	g.Go(func() error {
		<-collected
		return nil
	})
	if s.handler != nil {
		g.Go(func() error { return s.serveAPI(gctx) })
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" && s.cfg.Metrics.HasSink("prometheus") {
		g.Go(func() error {
			if err := metrics.StartPromServer(gctx, addr, logger.New("prometheus")); err != nil {
				return fmt.Errorf("prom server: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) serveAPI(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("serving api on %s", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Service) closeTransport() {
	if s.client != nil {
		s.client.Disconnect()
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	s.closeTransport()
	monitoring.Flush(2 * time.Second)
	return s.History.Close()
}
