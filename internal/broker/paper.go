package broker

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// PaperBroker simulates order execution against live chain data. Orders fill
// immediately at the caller's observed price; no capital is at risk.
type PaperBroker struct {
	source ChainSource
	logger *log.Logger

	mu     sync.Mutex
	nextID int
}

var _ Broker = (*PaperBroker)(nil)

// NewPaperBroker creates a paper broker over the given chain source.
func NewPaperBroker(source ChainSource, logger *log.Logger) *PaperBroker {
	return &PaperBroker{
		source: source,
		logger: logger,
		nextID: 1,
	}
}

// GetOptionChain implements ChainSource by delegating to the data backend.
func (b *PaperBroker) GetOptionChain(ctx context.Context) (*ChainSnapshot, error) {
	return b.source.GetOptionChain(ctx)
}

// PlaceOrder records a simulated market order and reports an immediate fill.
func (b *PaperBroker) PlaceOrder(ctx context.Context, symbol string, quantity int, side OrderSide) (*OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("paper order: quantity must be > 0 (got %d)", quantity)
	}
	res := &OrderResult{OK: true, OrderID: b.allocateID()}
	b.logger.Printf("Paper order filled: %s %s x%d (order %s)", side, symbol, quantity, res.OrderID)
	return res, nil
}

// ClosePosition is a paper exit order; mechanically a PlaceOrder.
func (b *PaperBroker) ClosePosition(ctx context.Context, symbol string, quantity int, side OrderSide) (*OrderResult, error) {
	return b.PlaceOrder(ctx, symbol, quantity, side)
}

// Ping reports readiness. Paper trading has no session token to validate.
func (b *PaperBroker) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (b *PaperBroker) allocateID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	return fmt.Sprintf("PAPER-%06d", id)
}
