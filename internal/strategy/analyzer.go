// Package strategy implements the open-interest breakout strategy: the
// once-per-day OI analysis, the premium breakout monitor, the single-position
// manager, and the orchestrator that sequences them through the session.
package strategy

import (
	"errors"
	"log"
	"time"

	"github.com/eddiefleurent/nifty_oi_bot/internal/broker"
	"github.com/eddiefleurent/nifty_oi_bot/internal/models"
	"github.com/eddiefleurent/nifty_oi_bot/internal/util"
)

// breakoutRatio converts an analysis premium into its breakout level.
// Entry triggers when the live premium trades 10% above the analysis base.
const breakoutRatio = 1.10

// Analysis failure modes. A snapshot missing one whole side cannot seed the
// day's levels; the orchestrator retries on the next cycle.
var (
	ErrEmptySnapshot = errors.New("analysis: empty option chain snapshot")
	ErrNoPuts        = errors.New("analysis: no put records in snapshot")
	ErrNoCalls       = errors.New("analysis: no call records in snapshot")
)

// Analyzer computes the day's max-OI strikes and breakout levels from one
// option chain snapshot.
type Analyzer struct {
	logger *log.Logger
}

// NewAnalyzer creates an analyzer. logger may be nil.
func NewAnalyzer(logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	return &Analyzer{logger: logger}
}

// Analyze picks the highest-OI put and call from the snapshot and derives
// their breakout levels. Ties resolve to the first record in provider order
// (strict greater-than while scanning).
func (a *Analyzer) Analyze(snap *broker.ChainSnapshot, day time.Time) (*models.DailyAnalysis, error) {
	if snap.Empty() {
		return nil, ErrEmptySnapshot
	}

	var maxPut, maxCall *broker.OptionRecord
	for i := range snap.Records {
		rec := &snap.Records[i]
		switch rec.Type {
		case broker.OptionPut:
			if maxPut == nil || rec.OpenInterest > maxPut.OpenInterest {
				maxPut = rec
			}
		case broker.OptionCall:
			if maxCall == nil || rec.OpenInterest > maxCall.OpenInterest {
				maxCall = rec
			}
		}
	}
	if maxPut == nil {
		return nil, ErrNoPuts
	}
	if maxCall == nil {
		return nil, ErrNoCalls
	}

	analysis := &models.DailyAnalysis{
		Date:              day,
		PutStrike:         maxPut.Strike,
		PutSymbol:         maxPut.Symbol,
		PutPremium:        maxPut.LastPrice,
		PutBreakoutLevel:  util.Round1(maxPut.LastPrice * breakoutRatio),
		CallStrike:        maxCall.Strike,
		CallSymbol:        maxCall.Symbol,
		CallPremium:       maxCall.LastPrice,
		CallBreakoutLevel: util.Round1(maxCall.LastPrice * breakoutRatio),
	}

	a.logger.Printf("OI analysis complete: spot=%.2f", snap.SpotPrice)
	a.logger.Printf("  PUT  max OI strike=%d premium=%.2f breakout=%.1f (%s)",
		int(analysis.PutStrike), analysis.PutPremium, analysis.PutBreakoutLevel, analysis.PutSymbol)
	a.logger.Printf("  CALL max OI strike=%d premium=%.2f breakout=%.1f (%s)",
		int(analysis.CallStrike), analysis.CallPremium, analysis.CallBreakoutLevel, analysis.CallSymbol)

	return analysis, nil
}
