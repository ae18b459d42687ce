package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"quest-lookout/internal/audio"
	"quest-lookout/internal/headset"
	lookout "quest-lookout/internal/lookout/domain"
	"quest-lookout/internal/observability/metrics"
	"quest-lookout/internal/settings"
)

// DefaultPollInterval keeps the cadence well under the shortest sensible
// min_lookout_time_ms and silence_after_look_ms values.
const DefaultPollInterval = 50 * time.Millisecond

type ruleRuntime struct {
	config  settings.AlarmConfig
	rule    lookout.Rule
	tracker *lookout.ScanTracker
	machine *lookout.RuleMachine
	driver  *AlertDriver
}

// Engine drives the whole lookout pipeline: one sampler feeding a set of
// independently configured alarm rules, each a tracker + machine + alert
// driver. All rules are evaluated sequentially inside one tick; no rule
// state is shared. Reload never runs concurrently with a tick.
type Engine struct {
	mu sync.Mutex

	clock      Clock
	sampler    headset.Sampler
	sink       audio.Sink
	logger     *log.Logger
	notifier   Notifier
	assetCheck AssetChecker
	interval   time.Duration

	center    *CenterEstimator
	centerCfg settings.CenterReset
	rules     []*ruleRuntime

	suspended   bool
	suspendedAt time.Time
}

// Option customizes the engine.
type Option func(*Engine)

// WithClock assigns a clock.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithNotifier assigns an event notifier.
func WithNotifier(notifier Notifier) Option {
	return func(e *Engine) { e.notifier = notifier }
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithPollInterval overrides the polling cadence used by Run.
func WithPollInterval(interval time.Duration) Option {
	return func(e *Engine) { e.interval = interval }
}

// WithAssetChecker overrides audio asset existence checks (tests).
func WithAssetChecker(check AssetChecker) Option {
	return func(e *Engine) { e.assetCheck = check }
}

// NewEngine builds an engine from a settings document. At least one valid
// alarm rule is required; invalid rules are rejected individually with a
// diagnostic.
func NewEngine(doc settings.Document, sampler headset.Sampler, sink audio.Sink, opts ...Option) (*Engine, error) {
	if sampler == nil {
		return nil, errors.New("engine: nil sampler")
	}
	if sink == nil {
		return nil, errors.New("engine: nil audio sink")
	}
	e := &Engine{
		clock:    systemClock{},
		sampler:  sampler,
		sink:     sink,
		logger:   log.New(os.Stdout, "", log.LstdFlags),
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.interval <= 0 {
		e.interval = DefaultPollInterval
	}
	if err := e.Reload(doc); err != nil {
		e.logger.Printf("engine: %v", err)
	}
	if len(e.rules) == 0 {
		return nil, errors.New("engine: no valid alarm rules configured")
	}
	return e, nil
}

// Run polls at the configured cadence until ctx is done, then silences
// every driver.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	defer e.Shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick runs one poll: sample, recenter, then tracker, machine and driver
// for each rule in order.
func (e *Engine) Tick(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wallStart := time.Now()
	metrics.IncTick()
	now := e.clock.Now()

	sample, err := e.sampler.Sample(ctx)
	if err != nil {
		if errors.Is(err, headset.ErrSensorUnavailable) {
			metrics.IncSample(metrics.ResultUnavailable)
		} else {
			metrics.IncSample(metrics.ResultError)
			e.logger.Printf("engine: sampler error: %v", err)
		}
		e.suspend(ctx, now)
		return
	}
	metrics.IncSample(metrics.ResultOK)
	if e.suspended {
		e.resume(ctx, now)
	}

	for _, rt := range e.rules {
		if rt.machine.Phase() == lookout.PhaseIdle {
			rt.machine.Arm(now)
		}
	}

	if e.center.Update(sample) {
		for _, rt := range e.rules {
			rt.tracker.ClearDirections()
		}
		e.emit(ctx, lookout.Event{Type: lookout.EventCenterReset, RuleIndex: -1, At: now})
	}

	for _, rt := range e.rules {
		upd := rt.tracker.Update(sample)
		for _, ev := range rt.machine.Advance(now, upd) {
			if ev.Type == lookout.EventAlarmSounding {
				rt.tracker.Reset(sample)
			}
			e.emit(ctx, ev)
		}
		rt.driver.Tick(now, rt.machine.Phase(), rt.machine.RampStart())
	}

	metrics.ObserveTick(time.Since(wallStart).Seconds())
}

// Reload swaps in a new settings document between ticks. Rules are matched
// by position: an unchanged record keeps its live scan window and alarm
// state, a changed record starts fresh, and a malformed record is rejected
// while the previously loaded rule at that position stays active.
func (e *Engine) Reload(doc settings.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rejected := 0
	rules := make([]*ruleRuntime, 0, len(doc.Alarms))
	for i, cfg := range doc.Alarms {
		rule, err := cfg.Rule(i)
		if err != nil {
			rejected++
			if i < len(e.rules) {
				e.logger.Printf("engine: reload: %v; keeping previous rule", err)
				rules = append(rules, e.rules[i])
			} else {
				e.logger.Printf("engine: reload: %v; rule skipped", err)
			}
			continue
		}
		if i < len(e.rules) && e.rules[i].config == cfg {
			rules = append(rules, e.rules[i])
			continue
		}
		if i < len(e.rules) {
			e.rules[i].driver.Stop()
		}
		rules = append(rules, &ruleRuntime{
			config:  cfg,
			rule:    rule,
			tracker: lookout.NewScanTracker(rule),
			machine: lookout.NewRuleMachine(rule),
			driver:  NewAlertDriver(rule, e.sink, e.logger, e.assetCheck),
		})
	}
	for i := len(doc.Alarms); i < len(e.rules); i++ {
		e.rules[i].driver.Stop()
	}
	e.rules = rules

	if e.center == nil || e.centerCfg != doc.CenterReset {
		e.center = NewCenterEstimator(doc.CenterReset)
		e.centerCfg = doc.CenterReset
	}

	metrics.SetRulesActive(len(e.rules))
	metrics.AddRulesRejected(rejected)
	if rejected > 0 {
		metrics.IncReload(metrics.ResultError)
		return fmt.Errorf("engine: reload rejected %d of %d rules", rejected, len(doc.Alarms))
	}
	metrics.IncReload(metrics.ResultOK)
	return nil
}

// Shutdown silences every driver. Run calls it on exit; it is safe to call
// again afterwards.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rt := range e.rules {
		rt.driver.Stop()
	}
}

// suspend halts alarm evaluation on sensor loss. Active alarms are
// silenced; rule timing freezes until the sensor recovers.
func (e *Engine) suspend(ctx context.Context, now time.Time) {
	if e.suspended {
		return
	}
	e.suspended = true
	e.suspendedAt = now
	metrics.SetSuspended(true)
	for _, rt := range e.rules {
		rt.driver.Stop()
	}
	e.logger.Printf("engine: sensor unavailable, evaluation suspended")
	e.emit(ctx, lookout.Event{Type: lookout.EventSensorLost, RuleIndex: -1, At: now})
}

// resume shifts every rule's time anchors by the outage duration so the
// outage can neither fire an alarm nor consume a grace period, then
// re-enables evaluation. Scan progress is untouched.
func (e *Engine) resume(ctx context.Context, now time.Time) {
	outage := now.Sub(e.suspendedAt)
	for _, rt := range e.rules {
		rt.machine.ShiftTime(outage)
	}
	e.suspended = false
	metrics.SetSuspended(false)
	e.logger.Printf("engine: sensor recovered after %s, evaluation resumed", outage)
	e.emit(ctx, lookout.Event{Type: lookout.EventSensorRecovered, RuleIndex: -1, At: now})
}

func (e *Engine) emit(ctx context.Context, ev lookout.Event) {
	switch ev.Type {
	case lookout.EventScanStarted, lookout.EventScanCompleted, lookout.EventCenterReset:
		metrics.IncScanEvent(ev.Type)
	default:
		metrics.IncAlarmEvent(ev.Type)
	}
	if e.notifier != nil {
		e.notifier.Notify(ctx, ev)
	}
}

// RuleStatus is one rule's live state for the status endpoint.
type RuleStatus struct {
	Index         int           `json:"index"`
	Phase         lookout.Phase `json:"phase"`
	Left          bool          `json:"left"`
	Right         bool          `json:"right"`
	Up            bool          `json:"up"`
	Down          bool          `json:"down"`
	DeadlineInMS  int64         `json:"deadline_in_ms"`
	SilencedForMS int64         `json:"silenced_for_ms"`
}

// Status is the engine's live state.
type Status struct {
	Suspended   bool         `json:"suspended"`
	CenterYaw   float64      `json:"center_yaw"`
	CenterPitch float64      `json:"center_pitch"`
	Rules       []RuleStatus `json:"rules"`
}

// Status reports the engine's live state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	st := Status{Suspended: e.suspended}
	if e.center != nil {
		st.CenterYaw, st.CenterPitch = e.center.Center()
	}
	for _, rt := range e.rules {
		left, right, up, down := rt.tracker.Directions()
		rs := RuleStatus{
			Index: rt.rule.Index,
			Phase: rt.machine.Phase(),
			Left:  left, Right: right, Up: up, Down: down,
		}
		if deadline := rt.machine.Deadline(); !deadline.IsZero() && rt.machine.Phase() != lookout.PhaseSounding {
			rs.DeadlineInMS = deadline.Sub(now).Milliseconds()
		}
		if until := rt.machine.SilenceUntil(); rt.machine.Phase() == lookout.PhaseSilenced && until.After(now) {
			rs.SilencedForMS = until.Sub(now).Milliseconds()
		}
		st.Rules = append(st.Rules, rs)
	}
	return st
}
