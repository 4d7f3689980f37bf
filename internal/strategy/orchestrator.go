package strategy

import (
	"context"
	"log"
	"time"

	"github.com/eddiefleurent/nifty_oi_bot/internal/broker"
	"github.com/eddiefleurent/nifty_oi_bot/internal/config"
	"github.com/eddiefleurent/nifty_oi_bot/internal/ledger"
	"github.com/eddiefleurent/nifty_oi_bot/internal/market"
	"github.com/eddiefleurent/nifty_oi_bot/internal/models"
	"github.com/eddiefleurent/nifty_oi_bot/internal/report"
)

// Phase labels the orchestrator's place in the trading day.
type Phase string

const (
	PhaseClosed     Phase = "closed"      // weekend, holiday, or aborted day
	PhasePreOpen    Phase = "pre_open"    // before the session open
	PhaseWaiting    Phase = "waiting"     // open, before the analysis window
	PhaseMonitoring Phase = "monitoring"  // analysis done, watching breakouts
	PhaseManaging   Phase = "managing"    // position held
	PhaseAfterHours Phase = "after_hours" // session closed, report written
)

// Orchestrator sequences the trading day: the broker probe at day start, the
// OI analysis at the analysis window, breakout monitoring, position
// management, and the end-of-day report. RunCycle is called on a fixed
// cadence and is single-threaded.
type Orchestrator struct {
	cfg      *config.Config
	clock    Clock
	broker   broker.Broker
	analyzer *Analyzer
	monitor  *Monitor
	manager  *PositionManager
	ledger   ledger.Interface
	reporter *report.Generator
	logger   *log.Logger

	// ForceAnalysis runs the OI analysis on the first eligible cycle even
	// before the configured analysis window. Operator switch for restarts.
	ForceAnalysis bool

	currentDay    string // DateLayout key of the day the latches belong to
	dayAborted    bool   // broker probe failed, day skipped
	analyzedToday bool
	reportDone    bool
	analysis      *models.DailyAnalysis
	phase         Phase
}

// NewOrchestrator wires the strategy components together.
func NewOrchestrator(cfg *config.Config, clock Clock, b broker.Broker,
	analyzer *Analyzer, monitor *Monitor, manager *PositionManager,
	ldg ledger.Interface, reporter *report.Generator, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	return &Orchestrator{
		cfg:      cfg,
		clock:    clock,
		broker:   b,
		analyzer: analyzer,
		monitor:  monitor,
		manager:  manager,
		ledger:   ldg,
		reporter: reporter,
		logger:   logger,
		phase:    PhaseClosed,
	}
}

// Phase returns the current trading-day phase.
func (o *Orchestrator) Phase() Phase {
	return o.phase
}

// Analysis returns the day's OI analysis, or nil before the window.
func (o *Orchestrator) Analysis() *models.DailyAnalysis {
	return o.analysis
}

// RunCycle advances the trading day by one step. It is cheap when nothing is
// due and blocks while watching for a breakout or managing a position, so the
// caller runs it from a single goroutine on the cycle interval.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	now := o.clock.Now()
	o.rollDay(ctx, now)

	open, sessionClose := o.cfg.SessionBounds(now)

	// A held position outranks everything else, so a trade opened near the
	// close still runs its exits to completion. Outside session hours the
	// exits are checked once per cycle instead of at the tick cadence.
	if o.manager.HasPosition() {
		o.phase = PhaseManaging
		if market.IsTradingDay(now) && !now.Before(open) && now.Before(sessionClose) {
			return o.manageLoop(ctx, sessionClose)
		}
		_, err := o.manager.EvaluateTick(ctx)
		return err
	}

	if o.dayAborted || !market.IsTradingDay(now) {
		o.phase = PhaseClosed
		return nil
	}

	if now.Before(open) {
		o.phase = PhasePreOpen
		return nil
	}

	if !now.Before(sessionClose) {
		o.phase = PhaseAfterHours
		o.finishDay(now)
		return nil
	}

	if !o.analyzedToday {
		if !o.ForceAnalysis && now.Before(o.cfg.AnalysisStart(now)) {
			o.phase = PhaseWaiting
			return nil
		}
		if err := o.runAnalysis(ctx, now); err != nil {
			o.logger.Printf("Warning: OI analysis failed, retrying next cycle: %v", err)
			return nil
		}
	}

	o.phase = PhaseMonitoring
	watchCtx, cancel := context.WithDeadline(ctx, sessionClose)
	defer cancel()

	// The day's levels stay live until the rollover reset, so after a trade
	// closes the watch resumes against the same analysis.
	ev, err := o.monitor.Watch(watchCtx, o.analysis)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Deadline at session close: the day ended without a breakout.
		return nil
	}
	if ev == nil {
		return nil
	}

	if err := o.manager.OpenFromBreakout(ctx, ev); err != nil {
		o.logger.Printf("ERROR: breakout entry failed: %v", err)
		return nil
	}
	o.phase = PhaseManaging
	return o.manageLoop(ctx, sessionClose)
}

// manageLoop checks the held position's exits at the monitor cadence until
// the position closes, the session ends, or the parent context is done. A
// position still held at the session close falls back to per-cycle checks.
func (o *Orchestrator) manageLoop(parent context.Context, sessionClose time.Time) error {
	ctx, cancel := context.WithDeadline(parent, sessionClose)
	defer cancel()

	ticker := time.NewTicker(o.cfg.MonitorInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return parent.Err()
		case <-ticker.C:
		}

		if _, err := o.manager.EvaluateTick(ctx); err != nil {
			return err
		}
		if !o.manager.HasPosition() {
			return nil
		}
	}
}

// rollDay resets the per-day latches on the first cycle of each calendar day
// and probes the broker once.
func (o *Orchestrator) rollDay(ctx context.Context, now time.Time) {
	day := now.Format(models.DateLayout)
	if day == o.currentDay {
		return
	}

	// The per-day latches reset; a position still held simply carries over
	// and keeps running its own exits.
	o.currentDay = day
	o.dayAborted = false
	o.analyzedToday = false
	o.reportDone = false
	o.analysis = nil

	if !market.IsTradingDay(now) {
		if name, ok := market.HolidayName(now); ok {
			o.logger.Printf("Market holiday (%s), standing down for %s", name, day)
		}
		return
	}

	o.logger.Printf("Trading day %s: probing broker", day)
	if err := o.broker.Ping(ctx); err != nil {
		o.logger.Printf("ERROR: broker probe failed, aborting day %s: %v", day, err)
		o.dayAborted = true
	}
}

// runAnalysis takes the day's OI snapshot and derives the breakout levels.
func (o *Orchestrator) runAnalysis(ctx context.Context, now time.Time) error {
	snap, err := o.broker.GetOptionChain(ctx)
	if err != nil {
		return err
	}
	analysis, err := o.analyzer.Analyze(snap, now)
	if err != nil {
		return err
	}
	o.analysis = analysis
	o.analyzedToday = true
	return nil
}

// finishDay writes the daily report once per day after the session close.
func (o *Orchestrator) finishDay(now time.Time) {
	if o.reportDone {
		return
	}
	o.reportDone = true
	day := now.Format(models.DateLayout)
	if err := o.reporter.Run(o.ledger.RecordsForDate(day), day); err != nil {
		o.logger.Printf("ERROR: writing daily report for %s: %v", day, err)
	}
}
