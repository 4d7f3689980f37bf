package models

import "time"

// DailyAnalysis captures the per-day open-interest snapshot taken shortly
// after the session opens. It is created once per trading day, immutable
// afterwards, and discarded at the day-start reset.
type DailyAnalysis struct {
	Date time.Time `json:"date"`

	PutStrike        float64 `json:"put_strike"`
	PutSymbol        string  `json:"put_symbol"`
	PutPremium       float64 `json:"put_premium"`
	PutBreakoutLevel float64 `json:"put_breakout_level"`

	CallStrike        float64 `json:"call_strike"`
	CallSymbol        string  `json:"call_symbol"`
	CallPremium       float64 `json:"call_premium"`
	CallBreakoutLevel float64 `json:"call_breakout_level"`
}
