package strategy

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/nifty_oi_bot/internal/broker"
	"github.com/eddiefleurent/nifty_oi_bot/internal/config"
	"github.com/eddiefleurent/nifty_oi_bot/internal/models"
	"github.com/eddiefleurent/nifty_oi_bot/internal/report"
)

// Trading-day instants use a future date so the watch deadline at the
// session close lies ahead of the real wall clock.
var ist = time.FixedZone("IST", 5*3600+1800)

func sessionTime(hour, minute int) time.Time {
	return time.Date(2030, 9, 3, hour, minute, 0, 0, ist) // a Tuesday
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: config.EnvironmentConfig{Mode: "paper"},
		Schedule: config.ScheduleConfig{
			MarketOpen:      "09:15",
			MarketClose:     "15:30",
			AnalysisTime:    "09:20",
			MonitorInterval: "1ms",
		},
	}
}

type orchFixture struct {
	orch    *Orchestrator
	broker  *stubBroker
	clock   *fakeClock
	manager *PositionManager
	reports *report.Generator
	dir     string
}

func newFixture(t *testing.T, b *stubBroker, now time.Time) *orchFixture {
	t.Helper()
	clk := &fakeClock{now: now}
	l := tempLedger(t)
	dir := t.TempDir()
	logger := testLogger()

	manager := NewPositionManager(b, l, clk, logger, 75)
	monitor := NewMonitor(b, manager, logger, time.Millisecond)
	reporter := report.NewGenerator(dir, logger)
	orch := NewOrchestrator(testConfig(), clk, b, NewAnalyzer(logger), monitor, manager, l, reporter, logger)

	return &orchFixture{orch: orch, broker: b, clock: clk, manager: manager, reports: reporter, dir: dir}
}

func TestRunCycleWeekend(t *testing.T) {
	f := newFixture(t, &stubBroker{}, time.Date(2030, 9, 7, 10, 0, 0, 0, ist)) // Saturday

	require.NoError(t, f.orch.RunCycle(context.Background()))
	assert.Equal(t, PhaseClosed, f.orch.Phase())
	assert.Empty(t, f.broker.placed)
}

func TestRunCycleHoliday(t *testing.T) {
	f := newFixture(t, &stubBroker{}, time.Date(2030, 10, 2, 10, 0, 0, 0, ist)) // Gandhi Jayanti

	require.NoError(t, f.orch.RunCycle(context.Background()))
	assert.Equal(t, PhaseClosed, f.orch.Phase())
}

func TestRunCyclePreOpen(t *testing.T) {
	f := newFixture(t, &stubBroker{}, sessionTime(9, 0))

	require.NoError(t, f.orch.RunCycle(context.Background()))
	assert.Equal(t, PhasePreOpen, f.orch.Phase())
	assert.Nil(t, f.orch.Analysis())
}

func TestRunCycleWaitsForAnalysisWindow(t *testing.T) {
	f := newFixture(t, &stubBroker{}, sessionTime(9, 17))

	require.NoError(t, f.orch.RunCycle(context.Background()))
	assert.Equal(t, PhaseWaiting, f.orch.Phase())
	assert.Nil(t, f.orch.Analysis())
}

func TestRunCycleAbortsDayOnProbeFailure(t *testing.T) {
	b := &stubBroker{pingErr: errors.New("auth expired")}
	f := newFixture(t, b, sessionTime(10, 0))

	require.NoError(t, f.orch.RunCycle(context.Background()))
	assert.Equal(t, PhaseClosed, f.orch.Phase())

	// The day stays aborted for later cycles.
	b.pingErr = nil
	f.clock.now = sessionTime(11, 0)
	require.NoError(t, f.orch.RunCycle(context.Background()))
	assert.Equal(t, PhaseClosed, f.orch.Phase())
}

// phasedChain serves each put premium in sequence, one per call, repeating
// the last one. The call side stays fixed at 95 (level 104.5 against an
// analysis premium of 95).
func phasedChain(putPrices ...float64) func(context.Context) (*broker.ChainSnapshot, error) {
	calls := 0
	return func(context.Context) (*broker.ChainSnapshot, error) {
		i := calls
		if i >= len(putPrices) {
			i = len(putPrices) - 1
		}
		calls++
		return &broker.ChainSnapshot{Records: []broker.OptionRecord{
			chainRecord("NSE:NIFTY25SEP424500PE", 24500, broker.OptionPut, putPrices[i], 3_000_000),
			chainRecord("NSE:NIFTY25SEP424600CE", 24600, broker.OptionCall, 95.0, 2_000_000),
		}}, nil
	}
}

func TestRunCycleAnalyzesTradesAndCloses(t *testing.T) {
	// Analysis premium 110 sets the put level at 121.0; the first watch tick
	// crosses it (entry 121, target 145.2) and the first manage tick hits
	// the target at 150.
	b := &stubBroker{}
	b.chainFn = phasedChain(110.0, 121.0, 150.0)

	f := newFixture(t, b, sessionTime(9, 25))
	require.NoError(t, f.orch.RunCycle(context.Background()))

	assert.Equal(t, PhaseManaging, f.orch.Phase())
	assert.False(t, f.manager.HasPosition())
	// The day's levels survive the trade so monitoring can resume.
	assert.NotNil(t, f.orch.Analysis())

	recs := f.orch.ledger.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, models.StatusClosed, recs[0].Status)
	assert.Equal(t, models.ExitTarget, recs[0].ExitReason)
	assert.Equal(t, "NSE:NIFTY25SEP424500PE", recs[0].Symbol)
}

func TestRunCycleReentersSameDayAfterClose(t *testing.T) {
	// First cycle: analyze at 110, enter at 121, exit at 150 (target).
	b := &stubBroker{}
	b.chainFn = phasedChain(110.0, 121.0, 150.0)

	f := newFixture(t, b, sessionTime(9, 25))
	require.NoError(t, f.orch.RunCycle(context.Background()))
	require.False(t, f.manager.HasPosition())
	require.NotNil(t, f.orch.Analysis())

	// Second cycle, same day: the premium is still above the 121.0 level,
	// so the watch fires again and a second trade runs against the same
	// analysis. It exits on the stop at 90 (entry 125, stop 100).
	b.chainFn = phasedChain(125.0, 90.0)
	f.clock.now = sessionTime(10, 5)
	require.NoError(t, f.orch.RunCycle(context.Background()))

	assert.False(t, f.manager.HasPosition())
	assert.NotNil(t, f.orch.Analysis())

	recs := f.orch.ledger.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, models.ExitTarget, recs[0].ExitReason)
	assert.Equal(t, models.ExitStopLoss, recs[1].ExitReason)

	// The analysis itself only resets at the day rollover.
	f.clock.now = time.Date(2030, 9, 4, 9, 0, 0, 0, ist)
	require.NoError(t, f.orch.RunCycle(context.Background()))
	assert.Equal(t, PhasePreOpen, f.orch.Phase())
	assert.Nil(t, f.orch.Analysis())
}

func TestRunCycleCarriedPositionChecksAfterClose(t *testing.T) {
	b := &stubBroker{}
	f := newFixture(t, b, sessionTime(15, 40))

	// A position still held after the close, its deadline long past.
	entry := sessionTime(15, 0)
	require.NoError(t, f.manager.OpenFromBreakout(context.Background(), &BreakoutEvent{
		Symbol: "NSE:NIFTY25SEP424500PE", Side: broker.OptionPut, Premium: 100.0, Time: entry,
	}))

	b.chainFn = phasedChain(100.0)
	require.NoError(t, f.orch.RunCycle(context.Background()))

	assert.Equal(t, PhaseManaging, f.orch.Phase())
	assert.False(t, f.manager.HasPosition())

	recs := f.orch.ledger.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, models.ExitTime, recs[0].ExitReason)

	// The next cycle goes after-hours and writes the report.
	require.NoError(t, f.orch.RunCycle(context.Background()))
	assert.Equal(t, PhaseAfterHours, f.orch.Phase())
	day := sessionTime(15, 40).Format(models.DateLayout)
	_, err := os.Stat(f.reports.Path(day))
	assert.NoError(t, err)
}

func TestRunCycleForceAnalysis(t *testing.T) {
	b := &stubBroker{}
	b.chainFn = phasedChain(110.0, 121.0, 150.0)

	f := newFixture(t, b, sessionTime(9, 17)) // before the analysis window
	f.orch.ForceAnalysis = true

	require.NoError(t, f.orch.RunCycle(context.Background()))
	assert.Equal(t, PhaseManaging, f.orch.Phase())
	assert.Equal(t, 1, len(f.orch.ledger.Records()))
}

func TestRunCycleAnalysisFailureRetriesNextCycle(t *testing.T) {
	b := &stubBroker{}
	b.chainFn = func(context.Context) (*broker.ChainSnapshot, error) {
		return nil, errors.New("http 503")
	}
	f := newFixture(t, b, sessionTime(9, 25))

	require.NoError(t, f.orch.RunCycle(context.Background()))
	assert.Nil(t, f.orch.Analysis())

	// Source recovers; analysis runs but nothing crosses, so the watch
	// runs until cancelled.
	b.chainFn = func(context.Context) (*broker.ChainSnapshot, error) {
		return &broker.ChainSnapshot{Records: []broker.OptionRecord{
			chainRecord("NSE:NIFTY25SEP424500PE", 24500, broker.OptionPut, 50.0, 3_000_000),
			chainRecord("NSE:NIFTY25SEP424600CE", 24600, broker.OptionCall, 40.0, 2_000_000),
		}}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := f.orch.RunCycle(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotNil(t, f.orch.Analysis())
}

func TestRunCycleWritesReportAfterClose(t *testing.T) {
	f := newFixture(t, &stubBroker{}, sessionTime(16, 0))

	day := sessionTime(16, 0).Format(models.DateLayout)
	require.NoError(t, f.orch.ledger.Append(models.TradeRecord{
		Date: day, Symbol: "NSE:NIFTY25SEP424500PE", EntryTime: "09:42:17",
		EntryPrice: 100, Quantity: 75, Status: models.StatusClosed,
		ExitPrice: 79, PnL: -1575, PnLPct: -21, ExitReason: models.ExitStopLoss, ExitTime: "09:47:17",
	}))

	require.NoError(t, f.orch.RunCycle(context.Background()))
	assert.Equal(t, PhaseAfterHours, f.orch.Phase())

	_, err := os.Stat(f.reports.Path(day))
	assert.NoError(t, err)
}
