package models

import (
	"fmt"
	"time"

	"github.com/eddiefleurent/nifty_oi_bot/internal/util"
)

// Fixed risk band applied to every entry. The breakout strategy always risks
// 20% of the premium against a 20% profit target (1:1 on premium, 1:2 on the
// original analysis base) and never holds past 30 minutes.
const (
	stopLossRatio = 0.80
	targetRatio   = 1.20
	maxHoldTime   = 30 * time.Minute
)

// Position is the single active paper trade. The strategy owns exactly zero
// or one Position at any time.
type Position struct {
	StateMachine *StateMachine `json:"-"`     // Runtime only, rebuilt from State
	State        PositionState `json:"state"` // Canonical persisted state
	ID           string        `json:"id"`
	Symbol       string        `json:"symbol"`
	EntryOrderID string        `json:"entry_order_id,omitempty"`
	Quantity     int           `json:"quantity"`
	EntryPrice   float64       `json:"entry_price"`
	EntryTime    time.Time     `json:"entry_time"`
	StopLoss     float64       `json:"stop_loss"`
	Target       float64       `json:"target"`
	ExitDeadline time.Time     `json:"exit_deadline"`
	// PendingReason is set when an exit condition first fires and is never
	// re-evaluated afterwards; a failed close order retries with this reason.
	PendingReason ExitReason `json:"pending_reason,omitempty"`
}

// NewPosition creates a position with the fixed stop/target band and the
// 30-minute exit deadline derived from the entry.
func NewPosition(id, symbol string, quantity int, entryPrice float64, entryTime time.Time) *Position {
	return &Position{
		StateMachine: NewStateMachine(),
		State:        StateIdle,
		ID:           id,
		Symbol:       symbol,
		Quantity:     quantity,
		EntryPrice:   entryPrice,
		EntryTime:    entryTime,
		StopLoss:     util.Round1(entryPrice * stopLossRatio),
		Target:       util.Round1(entryPrice * targetRatio),
		ExitDeadline: entryTime.Add(maxHoldTime),
	}
}

// TransitionState moves the position to a new state.
func (p *Position) TransitionState(to PositionState, condition string) error {
	if err := p.ensureMachine().Transition(to, condition); err != nil {
		return fmt.Errorf("position %s state transition failed: %w", p.ID, err)
	}
	p.State = to
	return nil
}

// GetCurrentState returns the canonical persisted state.
func (p *Position) GetCurrentState() PositionState {
	return p.State
}

// ensureMachine rebuilds the StateMachine from the persisted state when needed.
func (p *Position) ensureMachine() *StateMachine {
	if p.StateMachine == nil {
		p.StateMachine = NewStateMachineFromState(p.State)
	}
	return p.StateMachine
}

// EntryValue returns the notional value of the position at entry.
func (p *Position) EntryValue() float64 {
	return p.EntryPrice * float64(p.Quantity)
}

// UnrealizedPnL returns the mark-to-market P&L and its percentage of entry
// value at the given price. The percentage is 0 when the entry value is 0.
func (p *Position) UnrealizedPnL(currentPrice float64) (pnl, pct float64) {
	pnl = (currentPrice - p.EntryPrice) * float64(p.Quantity)
	if ev := p.EntryValue(); ev > 0 {
		pct = pnl / ev * 100
	}
	return pnl, pct
}

// HoldDuration returns how long the position has been held as of now.
func (p *Position) HoldDuration(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}

// ValidateState checks the band invariant stopLoss < entryPrice < target.
func (p *Position) ValidateState() error {
	if !(p.StopLoss < p.EntryPrice && p.EntryPrice < p.Target) {
		return fmt.Errorf("position %s: invalid band stop=%.2f entry=%.2f target=%.2f",
			p.ID, p.StopLoss, p.EntryPrice, p.Target)
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("position %s: quantity must be > 0 (current: %d)", p.ID, p.Quantity)
	}
	if !p.ExitDeadline.Equal(p.EntryTime.Add(maxHoldTime)) {
		return fmt.Errorf("position %s: exit deadline must be entry + %s", p.ID, maxHoldTime)
	}
	return nil
}
