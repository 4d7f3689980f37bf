package models

import "time"

// TradeStatus is the lifecycle status of a ledger record.
type TradeStatus string

const (
	// StatusOpen marks a trade whose entry filled and exit has not.
	StatusOpen TradeStatus = "OPEN"
	// StatusClosed marks a finalized trade.
	StatusClosed TradeStatus = "CLOSED"
)

// ExitReason records which exit rule closed a trade.
type ExitReason string

const (
	ExitStopLoss ExitReason = "STOPLOSS"
	ExitTarget   ExitReason = "TARGET"
	ExitTime     ExitReason = "TIME"
)

// Ledger time layouts. Entry and exit times are persisted to the second;
// the trading date is a separate column.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// TradeRecord is one row of the trade ledger. Times are stored in their
// persisted string form so the CSV round-trips field-for-field and the
// open-record match key (symbol + entry_time to seconds) is direct.
type TradeRecord struct {
	Date       string      `json:"date"`       // trading day, DateLayout
	Symbol     string      `json:"symbol"`     // full option symbol
	EntryTime  string      `json:"entry_time"` // TimeLayout
	EntryPrice float64     `json:"entry_price"`
	Quantity   int         `json:"quantity"`
	Status     TradeStatus `json:"status"`
	ExitPrice  float64     `json:"exit_price,omitempty"`
	PnL        float64     `json:"pnl,omitempty"`
	PnLPct     float64     `json:"pnl_pct,omitempty"`
	ExitReason ExitReason  `json:"exit_reason,omitempty"`
	ExitTime   string      `json:"exit_time,omitempty"` // TimeLayout
}

// IsClosed reports whether the record is finalized.
func (r *TradeRecord) IsClosed() bool {
	return r.Status == StatusClosed
}

// ExitOutcome describes a completed exit produced by a position tick.
type ExitOutcome struct {
	Reason    ExitReason
	ExitPrice float64
	PnL       float64
	PnLPct    float64
	ExitTime  time.Time
}
