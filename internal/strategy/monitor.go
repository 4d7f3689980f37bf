package strategy

import (
	"context"
	"log"
	"time"

	"github.com/eddiefleurent/nifty_oi_bot/internal/broker"
	"github.com/eddiefleurent/nifty_oi_bot/internal/models"
)

// defaultPollInterval is the breakout poll cadence when none is configured.
const defaultPollInterval = time.Second

// BreakoutEvent reports the first premium crossing of a breakout level.
type BreakoutEvent struct {
	Symbol  string
	Side    broker.OptionType
	Premium float64
	Time    time.Time
}

// positionChecker lets the monitor stop watching once a position exists.
// The position manager satisfies it.
type positionChecker interface {
	HasPosition() bool
}

// Monitor polls live premiums against the day's breakout levels and reports
// the first crossing. One crossing per run: once an event fires, or a
// position already exists, the watch returns.
type Monitor struct {
	source   broker.ChainSource
	position positionChecker
	logger   *log.Logger
	interval time.Duration
}

// NewMonitor creates a breakout monitor. A non-positive interval falls back
// to the 1s default.
func NewMonitor(source broker.ChainSource, position positionChecker, logger *log.Logger, interval time.Duration) *Monitor {
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Monitor{source: source, position: position, logger: logger, interval: interval}
}

// Watch polls until a breakout fires, a position opens elsewhere, or ctx is
// done. The returned event is nil when the watch ended without a crossing;
// a cancelled or expired context surfaces as ctx.Err().
//
// The put level is checked before the call level on every tick, so a tick
// where both sides cross reports the put.
func (m *Monitor) Watch(ctx context.Context, analysis *models.DailyAnalysis) (*BreakoutEvent, error) {
	m.logger.Printf("Monitoring breakouts: PUT %s >= %.1f, CALL %s >= %.1f",
		analysis.PutSymbol, analysis.PutBreakoutLevel, analysis.CallSymbol, analysis.CallBreakoutLevel)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		if m.position != nil && m.position.HasPosition() {
			return nil, nil
		}

		snap, err := m.source.GetOptionChain(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Printf("Warning: breakout poll failed, skipping tick: %v", err)
			continue
		}

		if ev := m.check(snap, analysis); ev != nil {
			m.logger.Printf("BREAKOUT: %s %s premium %.2f crossed level", ev.Side, ev.Symbol, ev.Premium)
			return ev, nil
		}
	}
}

func (m *Monitor) check(snap *broker.ChainSnapshot, analysis *models.DailyAnalysis) *BreakoutEvent {
	now := snap.FetchedAt
	if now.IsZero() {
		now = time.Now()
	}

	if rec, ok := snap.FindBySymbol(analysis.PutSymbol); ok && rec.LastPrice >= analysis.PutBreakoutLevel {
		return &BreakoutEvent{Symbol: rec.Symbol, Side: broker.OptionPut, Premium: rec.LastPrice, Time: now}
	}
	if rec, ok := snap.FindBySymbol(analysis.CallSymbol); ok && rec.LastPrice >= analysis.CallBreakoutLevel {
		return &BreakoutEvent{Symbol: rec.Symbol, Side: broker.OptionCall, Premium: rec.LastPrice, Time: now}
	}
	return nil
}
