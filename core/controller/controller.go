package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/allocation"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/bay"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/demand"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/logger"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/monitoring"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/presence"
)

// ErrQueueFull is returned by Submit when the toggle queue is saturated.
var ErrQueueFull = errors.New("toggle queue full")

// Observer receives every committed snapshot.
type Observer interface {
	Observe(ctx context.Context, s model.Snapshot) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, s model.Snapshot) error

func (f ObserverFunc) Observe(ctx context.Context, s model.Snapshot) error { return f(ctx, s) }

// Transport is serviced on every fast-loop tick. Service must not block.
type Transport interface {
	Service()
}

// AuxState reports the auxiliary output for the snapshot.
type AuxState interface {
	On() bool
}

// Config holds the loop timing.
type Config struct {
	PollInterval     time.Duration
	ControlPeriod    time.Duration
	Debounce         time.Duration
	StrictInvariants bool
	QueueSize        int
}

// SetDefaults fills zero values with the panel timings.
func (c *Config) SetDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 50 * time.Millisecond
	}
	if c.ControlPeriod <= 0 {
		c.ControlPeriod = 2 * time.Second
	}
	if c.Debounce <= 0 {
		c.Debounce = c.PollInterval
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 32
	}
}

// Deps are the collaborators of a Controller. Store, Demand and Params are
// required.
type Deps struct {
	Store     *bay.Store
	Arrivals  bay.ArrivalSource
	Params    allocation.Params
	Demand    demand.Source
	Transport Transport
	Aux       AuxState
	Observers []Observer
	Log       logger.Logger
	// OnToggle is called after a toggle was applied or debounced.
	OnToggle func(ev presence.ToggleEvent, tr bay.Transition, applied bool)
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Controller runs the bay control loop.
type Controller struct {
	cfg       Config
	store     *bay.Store
	tracker   *bay.Tracker
	engine    *allocation.Engine
	scheduler *allocation.Scheduler
	demand    demand.Source
	debouncer *presence.Debouncer
	transport Transport
	aux       AuxState
	observers []Observer
	log       logger.Logger
	onToggle  func(presence.ToggleEvent, bay.Transition, bool)
	toggles   chan presence.ToggleEvent
	now       func() time.Time

	seq       uint64
	lastCycle time.Time

	mu   sync.RWMutex
	last model.Snapshot
	have bool
}

// New validates the dependencies and returns a controller.
func New(cfg Config, deps Deps) (*Controller, error) {
	cfg.SetDefaults()
	if deps.Store == nil {
		return nil, fmt.Errorf("controller: store is required")
	}
	if deps.Demand == nil {
		return nil, fmt.Errorf("controller: demand source is required")
	}
	if err := deps.Params.Validate(); err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	if deps.Params.CapacityMax != deps.Store.Capacity() {
		return nil, fmt.Errorf("controller: store capacity %d differs from params %d", deps.Store.Capacity(), deps.Params.CapacityMax)
	}
	log := deps.Log
	if log == nil {
		log = nopLogger{}
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		cfg:       cfg,
		store:     deps.Store,
		tracker:   bay.NewTracker(deps.Store, deps.Arrivals),
		engine:    allocation.NewEngine(deps.Params),
		scheduler: allocation.NewScheduler(deps.Params),
		demand:    deps.Demand,
		debouncer: presence.NewDebouncer(cfg.Debounce),
		transport: deps.Transport,
		aux:       deps.Aux,
		observers: deps.Observers,
		log:       log,
		onToggle:  deps.OnToggle,
		toggles:   make(chan presence.ToggleEvent, cfg.QueueSize),
		now:       now,
	}
	if _, raw := deps.Params.Policy.(allocation.RawDeficit); (raw || deps.Params.Policy == nil) && deps.Params.GridCapacity > 0 {
		log.Warnf("deficit policy %q ignores grid capacity %d: any positive demand discharges", allocation.PolicyRaw, deps.Params.GridCapacity)
	}
	return c, nil
}

// AddObserver registers an observer. It must be called before Run.
func (c *Controller) AddObserver(o Observer) { c.observers = append(c.observers, o) }

// Submit queues a presence toggle without blocking.
func (c *Controller) Submit(ev presence.ToggleEvent) error {
	if ev.Slot < 0 || int(ev.Slot) >= c.store.Len() {
		return fmt.Errorf("%w: %d", bay.ErrUnknownSlot, ev.Slot.Number())
	}
	if ev.At.IsZero() {
		ev.At = c.now()
	}
	select {
	case c.toggles <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Snapshot returns the last committed snapshot. The boolean is false before
// the first cycle.
func (c *Controller) Snapshot() (model.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last.Clone(), c.have
}

// Run drives the loop until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	defer monitoring.Recover()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	c.log.Infof("control loop started: poll %s, period %s, %d slots", c.cfg.PollInterval, c.cfg.ControlPeriod, c.store.Len())
	for {
		select {
		case <-ctx.Done():
			c.log.Infof("control loop stopped")
			return nil
		case <-ticker.C:
			c.Step(ctx, c.now())
		}
	}
}

// Step performs one fast-loop iteration at now. It reports whether a control
// cycle ran.
func (c *Controller) Step(ctx context.Context, now time.Time) bool {
	c.drainToggles()
	if c.transport != nil {
		c.transport.Service()
	}
	if !c.lastCycle.IsZero() && now.Sub(c.lastCycle) < c.cfg.ControlPeriod {
		return false
	}
	c.lastCycle = now
	c.runCycle(ctx, now)
	return true
}

// RunCycle runs a control cycle immediately, after applying queued toggles.
func (c *Controller) RunCycle(ctx context.Context) model.Snapshot {
	c.drainToggles()
	return c.runCycle(ctx, c.now())
}

// ApplyToggle applies ev through the debouncer. It must only be called from
// the goroutine that owns the controller.
func (c *Controller) ApplyToggle(ev presence.ToggleEvent) (bay.Transition, bool, error) {
	if !c.debouncer.Allow(ev) {
		c.log.Debugf("toggle for %s debounced", ev.Slot)
		c.notifyToggle(ev, 0, false)
		return 0, false, nil
	}
	tr, err := c.tracker.OnPresenceToggle(ev.Slot)
	if err != nil {
		return 0, false, err
	}
	c.log.Infof("%s %s (source %s)", ev.Slot, tr, ev.Source)
	c.notifyToggle(ev, tr, true)
	return tr, true, nil
}

func (c *Controller) notifyToggle(ev presence.ToggleEvent, tr bay.Transition, applied bool) {
	if c.onToggle != nil {
		c.onToggle(ev, tr, applied)
	}
}

func (c *Controller) drainToggles() {
	for {
		select {
		case ev := <-c.toggles:
			if _, _, err := c.ApplyToggle(ev); err != nil {
				c.log.Warnf("toggle rejected: %v", err)
			}
		default:
			return
		}
	}
}

func (c *Controller) sampleDemand() model.Power {
	p, err := c.demand.Sample()
	if err != nil {
		if !errors.Is(err, demand.ErrNoReading) {
			c.log.Errorf("demand sample failed: %v", err)
		}
		return 0
	}
	return demand.Clamp(p)
}

func (c *Controller) runCycle(ctx context.Context, now time.Time) model.Snapshot {
	d := c.sampleDemand()
	c.tracker.Tick()

	views := c.store.Views()
	res := c.engine.Compute(d, views)
	plan := c.scheduler.Compute(d, views)

	modes := make([]model.Mode, len(views))
	deltas := make([]model.Energy, len(views))
	for i := range views {
		id := model.SlotID(i)
		switch {
		case res.Modes[i] == model.ModeDischarging:
			applied, err := c.store.Discharge(id, res.Deltas[i])
			if err != nil {
				c.log.Errorf("discharge %s: %v", id, err)
				continue
			}
			modes[i], deltas[i] = model.ModeDischarging, applied
		case plan.Modes[i] == model.ModeCharging:
			applied, err := c.store.Charge(id, plan.Deltas[i])
			if err != nil {
				c.log.Errorf("charge %s: %v", id, err)
				continue
			}
			modes[i], deltas[i] = model.ModeCharging, applied
		}
	}

	c.seq++
	snap := model.Snapshot{
		Seq:             c.seq,
		Time:            now,
		Demand:          d,
		Deficit:         res.Deficit,
		Residual:        res.Residual,
		TotalDischarged: res.TotalDischarged,
		TotalCharged:    plan.TotalCharged,
		CapacityMax:     c.store.Capacity(),
		Slots:           c.store.Views(),
		OccupiedCount:   c.store.OccupiedCount(),
	}
	for i := range snap.Slots {
		snap.Slots[i].Mode = modes[i]
		snap.Slots[i].Delta = deltas[i]
	}
	if c.aux != nil {
		snap.Aux = c.aux.On()
	}
	c.check(snap)

	c.mu.Lock()
	c.last, c.have = snap, true
	c.mu.Unlock()

	c.log.Debugw("cycle committed", map[string]any{
		"seq":        snap.Seq,
		"demand":     int64(snap.Demand),
		"residual":   int64(snap.Residual),
		"discharged": int64(snap.TotalDischarged),
		"charged":    int64(snap.TotalCharged),
		"occupied":   snap.OccupiedCount,
	})
	for _, o := range c.observers {
		if err := o.Observe(ctx, snap.Clone()); err != nil {
			c.log.Warnf("observer %T: %v", o, err)
		}
	}
	return snap
}

func (c *Controller) check(s model.Snapshot) {
	err := bay.CheckInvariants(s, c.engine.Params().Reserve())
	if err == nil {
		return
	}
	c.log.Errorf("%v", err)
	monitoring.CaptureException(err, map[string]string{"module": "controller"})
	if c.cfg.StrictInvariants {
		panic(err)
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
