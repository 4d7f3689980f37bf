// Package broker defines the market-data and order-execution interfaces the
// strategy depends on, plus the paper and Fyers-backed implementations.
package broker

import (
	"context"
	"errors"
	"time"
)

// OptionType is the exchange option-type code.
type OptionType string

const (
	// OptionCall is the call option code (CE).
	OptionCall OptionType = "CE"
	// OptionPut is the put option code (PE).
	OptionPut OptionType = "PE"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OptionRecord is one immutable row of an option-chain snapshot.
type OptionRecord struct {
	Symbol       string     `json:"symbol"`
	Strike       float64    `json:"strikePrice"`
	Type         OptionType `json:"option_type"`
	LastPrice    float64    `json:"lastPrice"`
	OpenInterest int64      `json:"openInterest"`
}

// ChainSnapshot is a point-in-time option chain. Record order is the
// provider's order and is part of the contract: max-OI ties resolve to the
// first occurrence.
type ChainSnapshot struct {
	Records   []OptionRecord `json:"records"`
	SpotPrice float64        `json:"spot_price"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Empty reports whether the snapshot carries no records.
func (s *ChainSnapshot) Empty() bool {
	return s == nil || len(s.Records) == 0
}

// FindByStrike returns the first record matching strike and type.
func (s *ChainSnapshot) FindByStrike(strike float64, typ OptionType) (*OptionRecord, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Records {
		if s.Records[i].Strike == strike && s.Records[i].Type == typ {
			return &s.Records[i], true
		}
	}
	return nil, false
}

// FindBySymbol returns the first record with an exact symbol match.
func (s *ChainSnapshot) FindBySymbol(symbol string) (*OptionRecord, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Records {
		if s.Records[i].Symbol == symbol {
			return &s.Records[i], true
		}
	}
	return nil, false
}

// OrderResult is the broker's response to an order placement.
type OrderResult struct {
	OK      bool   `json:"ok"`
	OrderID string `json:"order_id"`
}

// ErrOrderRejected is returned when the broker reports a non-OK result
// without a transport error.
var ErrOrderRejected = errors.New("broker: order rejected")

// ChainSource supplies point-in-time option chain snapshots. The primary and
// fallback data backends both implement it; consumers cannot tell which
// backend served a snapshot.
type ChainSource interface {
	GetOptionChain(ctx context.Context) (*ChainSnapshot, error)
}

// Broker is the strategy's collaborator for market data and order execution.
type Broker interface {
	ChainSource

	// PlaceOrder submits a market order for the option symbol.
	PlaceOrder(ctx context.Context, symbol string, quantity int, side OrderSide) (*OrderResult, error)

	// ClosePosition exits an open position. Mechanically identical to
	// PlaceOrder with the opposite side; kept separate for call-site clarity.
	ClosePosition(ctx context.Context, symbol string, quantity int, side OrderSide) (*OrderResult, error)

	// Ping verifies the broker is usable at the start of a trading day.
	Ping(ctx context.Context) error
}

// FallbackSource tries the primary chain source and falls back to the
// secondary when the primary fails.
type FallbackSource struct {
	primary   ChainSource
	secondary ChainSource
	logf      func(format string, args ...any)
}

// NewFallbackSource chains two sources behind the ChainSource interface.
// logf may be nil.
func NewFallbackSource(primary, secondary ChainSource, logf func(format string, args ...any)) *FallbackSource {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &FallbackSource{primary: primary, secondary: secondary, logf: logf}
}

// GetOptionChain implements ChainSource.
func (f *FallbackSource) GetOptionChain(ctx context.Context) (*ChainSnapshot, error) {
	snap, err := f.primary.GetOptionChain(ctx)
	if err == nil {
		return snap, nil
	}
	f.logf("Warning: primary chain source failed, using fallback: %v", err)
	return f.secondary.GetOptionChain(ctx)
}

var _ ChainSource = (*FallbackSource)(nil)
