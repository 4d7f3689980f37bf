package strategy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/eddiefleurent/nifty_oi_bot/internal/broker"
	"github.com/eddiefleurent/nifty_oi_bot/internal/ledger"
	"github.com/eddiefleurent/nifty_oi_bot/internal/models"
)

// defaultLotSize is the NIFTY option lot size.
const defaultLotSize = 75

// Clock supplies the trading-region wall clock. market.Clock satisfies it.
type Clock interface {
	Now() time.Time
}

// ErrPositionExists is returned when an entry is attempted while a position
// is already held. The strategy holds at most one position at a time.
var ErrPositionExists = errors.New("position: already holding an open position")

// PositionManager owns the single active paper trade: entry on breakout,
// per-tick exit evaluation, and the ledger records on both sides.
type PositionManager struct {
	broker  broker.Broker
	ledger  ledger.Interface
	clock   Clock
	logger  *log.Logger
	lotSize int

	position *models.Position
}

// NewPositionManager creates a manager. A non-positive lotSize falls back to
// the standard contract size; logger may be nil.
func NewPositionManager(b broker.Broker, l ledger.Interface, clock Clock, logger *log.Logger, lotSize int) *PositionManager {
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	if lotSize <= 0 {
		lotSize = defaultLotSize
	}
	return &PositionManager{broker: b, ledger: l, clock: clock, logger: logger, lotSize: lotSize}
}

// HasPosition reports whether a trade is currently held (open or exiting).
func (pm *PositionManager) HasPosition() bool {
	return pm.position != nil
}

// Position returns the active position, or nil.
func (pm *PositionManager) Position() *models.Position {
	return pm.position
}

// OpenFromBreakout buys one lot of the breakout symbol at the crossing
// premium and records the OPEN trade.
func (pm *PositionManager) OpenFromBreakout(ctx context.Context, ev *BreakoutEvent) error {
	if pm.position != nil {
		return ErrPositionExists
	}

	result, err := pm.broker.PlaceOrder(ctx, ev.Symbol, pm.lotSize, broker.SideBuy)
	if err != nil {
		return fmt.Errorf("entry order for %s: %w", ev.Symbol, err)
	}

	pos := models.NewPosition(uuid.NewString(), ev.Symbol, pm.lotSize, ev.Premium, ev.Time)
	pos.EntryOrderID = result.OrderID
	if err := pos.TransitionState(models.StateOpen, models.ConditionBreakoutFilled); err != nil {
		return err
	}
	pm.position = pos

	rec := models.TradeRecord{
		Date:       ev.Time.Format(models.DateLayout),
		Symbol:     ev.Symbol,
		EntryTime:  ev.Time.Format(models.TimeLayout),
		EntryPrice: ev.Premium,
		Quantity:   pm.lotSize,
		Status:     models.StatusOpen,
	}
	if err := pm.ledger.Append(rec); err != nil {
		pm.logger.Printf("ERROR: recording entry for %s: %v", ev.Symbol, err)
	}

	pm.logger.Printf("=== NEW PAPER TRADE EXECUTED ===")
	pm.logger.Printf("  Symbol:    %s (%s breakout)", ev.Symbol, ev.Side)
	pm.logger.Printf("  Entry:     %.2f x %d (order %s)", ev.Premium, pm.lotSize, result.OrderID)
	pm.logger.Printf("  Stop:      %.1f", pos.StopLoss)
	pm.logger.Printf("  Target:    %.1f", pos.Target)
	pm.logger.Printf("  Deadline:  %s", pos.ExitDeadline.Format(models.TimeLayout))
	pm.logger.Printf("================================")

	return nil
}

// EvaluateTick checks the held position against its exit rules once and
// closes it when one fires. The outcome is nil when the position survives
// the tick. Exit precedence is fixed: stop loss, then target, then the
// 30-minute deadline. Once a rule fires the reason is pinned; a failed
// close order retries with the same reason on later ticks.
func (pm *PositionManager) EvaluateTick(ctx context.Context) (*models.ExitOutcome, error) {
	pos := pm.position
	if pos == nil {
		return nil, nil
	}

	snap, err := pm.broker.GetOptionChain(ctx)
	if err != nil {
		pm.logger.Printf("Warning: position tick chain fetch failed: %v", err)
		return nil, nil
	}

	price, ok := pm.resolvePrice(snap, pos.Symbol)
	if !ok {
		pm.logger.Printf("Warning: no price for %s in snapshot, skipping tick", pos.Symbol)
		return nil, nil
	}

	now := pm.clock.Now()

	if pos.GetCurrentState() == models.StateOpen {
		reason, hit := exitReason(pos, price, now)
		if !hit {
			pnl, pct := pos.UnrealizedPnL(price)
			pm.logger.Printf("%s @ %.2f unrealized %.2f (%.2f%%) held %s",
				pos.Symbol, price, pnl, pct, pos.HoldDuration(now).Round(time.Second))
			return nil, nil
		}
		pos.PendingReason = reason
		if err := pos.TransitionState(models.StatePendingExit, models.ConditionExitCondition); err != nil {
			return nil, err
		}
		pm.logger.Printf("Exit condition fired: %s at %.2f", reason, price)
	}

	return pm.closePosition(ctx, price, now)
}

// exitReason evaluates the exit rules in precedence order.
func exitReason(pos *models.Position, price float64, now time.Time) (models.ExitReason, bool) {
	switch {
	case price <= pos.StopLoss:
		return models.ExitStopLoss, true
	case price >= pos.Target:
		return models.ExitTarget, true
	case !now.Before(pos.ExitDeadline):
		return models.ExitTime, true
	}
	return "", false
}

// resolvePrice finds the position's current premium. The strike recovered
// from the symbol is tried first; symbols whose date token defeats the
// strike parser fall back to an exact-symbol match.
func (pm *PositionManager) resolvePrice(snap *broker.ChainSnapshot, symbol string) (float64, bool) {
	if strike, err := broker.ParseStrike(symbol); err == nil {
		if typ, ok := broker.OptionTypeFromSymbol(symbol); ok {
			if rec, found := snap.FindByStrike(strike, typ); found {
				return rec.LastPrice, true
			}
		}
	}
	if rec, found := snap.FindBySymbol(symbol); found {
		return rec.LastPrice, true
	}
	return 0, false
}

// closePosition sells the lot, finalizes the ledger row, and clears the
// held position. The position stays in pending_exit when the close order
// fails, so the next tick retries.
func (pm *PositionManager) closePosition(ctx context.Context, price float64, now time.Time) (*models.ExitOutcome, error) {
	pos := pm.position

	result, err := pm.broker.ClosePosition(ctx, pos.Symbol, pos.Quantity, broker.SideSell)
	if err != nil {
		pm.logger.Printf("ERROR: close order for %s failed, will retry: %v", pos.Symbol, err)
		return nil, nil
	}

	if err := pos.TransitionState(models.StateClosed, models.ConditionExitFilled); err != nil {
		return nil, err
	}

	pnl, pct := pos.UnrealizedPnL(price)
	outcome := &models.ExitOutcome{
		Reason:    pos.PendingReason,
		ExitPrice: price,
		PnL:       pnl,
		PnLPct:    pct,
		ExitTime:  now,
	}

	entryTime := pos.EntryTime.Format(models.TimeLayout)
	err = pm.ledger.CloseOpenRecord(pos.Symbol, entryTime, func(rec *models.TradeRecord) {
		rec.Status = models.StatusClosed
		rec.ExitPrice = outcome.ExitPrice
		rec.PnL = outcome.PnL
		rec.PnLPct = outcome.PnLPct
		rec.ExitReason = outcome.Reason
		rec.ExitTime = outcome.ExitTime.Format(models.TimeLayout)
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNoOpenRecord) {
			pm.logger.Printf("Warning: no open ledger record for %s @ %s; exit not persisted", pos.Symbol, entryTime)
		} else {
			pm.logger.Printf("ERROR: recording exit for %s: %v", pos.Symbol, err)
		}
	}

	pm.logger.Printf("=== PAPER TRADE CLOSED ===")
	pm.logger.Printf("  Symbol:  %s (order %s)", pos.Symbol, result.OrderID)
	pm.logger.Printf("  Exit:    %.2f (%s)", outcome.ExitPrice, outcome.Reason)
	pm.logger.Printf("  P&L:     %.2f (%.2f%%)", outcome.PnL, outcome.PnLPct)
	pm.logger.Printf("  Held:    %s", pos.HoldDuration(now).Round(time.Second))
	pm.logger.Printf("==========================")

	pm.position = nil
	return outcome, nil
}
