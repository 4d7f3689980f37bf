package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/nifty_oi_bot/internal/broker"
	"github.com/eddiefleurent/nifty_oi_bot/internal/config"
	"github.com/eddiefleurent/nifty_oi_bot/internal/dashboard"
	"github.com/eddiefleurent/nifty_oi_bot/internal/ledger"
	"github.com/eddiefleurent/nifty_oi_bot/internal/market"
	"github.com/eddiefleurent/nifty_oi_bot/internal/report"
	"github.com/eddiefleurent/nifty_oi_bot/internal/strategy"
)

// Bot wires the strategy components and runs the cycle loop.
type Bot struct {
	config       *config.Config
	clock        *market.Clock
	orchestrator *strategy.Orchestrator
	dashboard    *dashboard.Server
	logger       *log.Logger
}

func main() {
	var configPath string
	var forceAnalysis bool
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.BoolVar(&forceAnalysis, "force-analysis", false, "Run the OI analysis on the first cycle even before the analysis window")
	flag.Parse()

	// A missing .env is fine; config falls back to the process environment.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := log.New(os.Stdout, "[BOT] ", log.LstdFlags|log.Lshortfile)

	logger.Printf("Starting NIFTY OI bot in %s mode", cfg.Environment.Mode)
	if cfg.IsPaperTrading() {
		logger.Println("PAPER TRADING MODE - no real money at risk")
	} else {
		logger.Println("LIVE TRADING MODE - real money at risk!")
		logger.Println("Waiting 10 seconds to confirm...")
		time.Sleep(10 * time.Second)
	}

	bot, err := buildBot(cfg, logger, forceAnalysis)
	if err != nil {
		logger.Fatalf("Failed to initialize bot: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Println("Shutdown signal received, stopping bot...")
		cancel()
	}()

	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatalf("Bot error: %v", err)
	}

	logger.Println("Bot stopped successfully")
}

func buildBot(cfg *config.Config, logger *log.Logger, forceAnalysis bool) (*Bot, error) {
	clock := market.NewClock(cfg.Schedule.Timezone)

	ldg, err := ledger.New(cfg.Storage.LedgerPath)
	if err != nil {
		return nil, err
	}
	if n := ldg.OpenCount(); n > 0 {
		logger.Printf("Warning: trade ledger has %d record(s) still OPEN from a previous run", n)
	}

	// The live Fyers chain feeds the paper broker; order fills stay
	// simulated either way. The circuit breaker guards the whole surface.
	source := broker.NewFyersSource(cfg.Broker.APIEndpoint, cfg.Broker.AccessToken, clock, logger)
	var b broker.Broker = broker.NewCircuitBreakerBroker(broker.NewPaperBroker(source, logger))

	manager := strategy.NewPositionManager(b, ldg, clock, logger, cfg.Strategy.LotSize)
	monitor := strategy.NewMonitor(b, manager, logger, cfg.MonitorInterval())
	analyzer := strategy.NewAnalyzer(logger)
	reporter := report.NewGenerator(cfg.Storage.ReportDir, logger)

	orch := strategy.NewOrchestrator(cfg, clock, b, analyzer, monitor, manager, ldg, reporter, logger)
	orch.ForceAnalysis = forceAnalysis

	bot := &Bot{
		config:       cfg,
		clock:        clock,
		orchestrator: orch,
		logger:       logger,
	}

	if cfg.Dashboard.Enabled {
		dashLogger := logrus.New()
		if cfg.Environment.LogLevel == "debug" {
			dashLogger.SetLevel(logrus.DebugLevel)
		}
		bot.dashboard = dashboard.NewServer(
			dashboard.Config{Port: cfg.Dashboard.Port, AuthToken: cfg.Dashboard.AuthToken},
			ldg, clock.Now, dashLogger,
		)
	}

	return bot, nil
}

// Run drives the cycle loop and the dashboard until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.cycleLoop(ctx)
	})

	if b.dashboard != nil {
		g.Go(func() error {
			return b.dashboard.Start(ctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *Bot) cycleLoop(ctx context.Context) error {
	b.logger.Printf("Cycle loop starting (interval %s, timezone %s)",
		b.config.CycleInterval(), b.clock.Location())

	ticker := time.NewTicker(b.config.CycleInterval())
	defer ticker.Stop()

	// Run immediately on start.
	if err := b.orchestrator.RunCycle(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.logger.Printf("ERROR: trading cycle failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.orchestrator.RunCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				b.logger.Printf("ERROR: trading cycle failed: %v", err)
			}
		}
	}
}
