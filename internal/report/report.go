// Package report generates the end-of-day trading summary.
package report

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/eddiefleurent/nifty_oi_bot/internal/models"
)

// Generator writes dated daily reports into a directory.
type Generator struct {
	dir    string
	logger *log.Logger
}

// NewGenerator creates a report generator writing into dir.
func NewGenerator(dir string, logger *log.Logger) *Generator {
	return &Generator{dir: dir, logger: logger}
}

// Run generates the report for today's records and writes it to
// report_<date>.txt (overwriting a previous run's file, so regeneration is
// idempotent). No file is written when the day has no records.
func (g *Generator) Run(records []models.TradeRecord, today string) error {
	if len(records) == 0 {
		g.logger.Printf("No trades executed today.")
		return nil
	}

	content := Generate(records, today)
	for _, line := range strings.Split(content, "\n") {
		g.logger.Println(line)
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	path := g.Path(today)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing daily report: %w", err)
	}
	g.logger.Printf("Daily report saved to %s", path)
	return nil
}

// Path returns the report file path for a trading date.
func (g *Generator) Path(today string) string {
	return filepath.Join(g.dir, "report_"+today+".txt")
}

// Generate renders the report text for one day's records. Output is fully
// deterministic: the same records produce byte-identical content.
func Generate(records []models.TradeRecord, today string) string {
	var completed, profitable, losing, open int
	var totalPnL float64
	for _, r := range records {
		switch {
		case r.IsClosed() && r.PnL > 0:
			completed++
			profitable++
			totalPnL += r.PnL
		case r.IsClosed():
			completed++
			losing++
			totalPnL += r.PnL
		default:
			open++
		}
	}

	lines := []string{
		strings.Repeat("=", 50),
		"DAILY TRADING REPORT - " + today,
		strings.Repeat("=", 50),
		fmt.Sprintf("Total Trades: %d", len(records)),
		fmt.Sprintf("Completed Trades: %d", completed),
		fmt.Sprintf("Profitable Trades: %d", profitable),
		fmt.Sprintf("Losing Trades: %d", losing),
		fmt.Sprintf("Open Trades: %d", open),
		fmt.Sprintf("Total P&L: %.2f", totalPnL),
		strings.Repeat("-", 50),
		"TRADE DETAILS:",
		strings.Repeat("-", 50),
	}

	for i, r := range records {
		lines = append(lines,
			fmt.Sprintf("Trade #%d:", i+1),
			"  Symbol: "+r.Symbol,
			"  Entry Time: "+r.EntryTime,
			"  Entry Price: "+formatPrice(r.EntryPrice),
			fmt.Sprintf("  Quantity: %d", r.Quantity),
			"  Status: "+string(r.Status),
		)
		if r.IsClosed() {
			lines = append(lines,
				"  Exit Time: "+r.ExitTime,
				"  Exit Price: "+formatPrice(r.ExitPrice),
				fmt.Sprintf("  P&L: %.2f", r.PnL),
				"  Exit Reason: "+string(r.ExitReason),
			)
		}
		lines = append(lines, strings.Repeat("-", 30))
	}

	return strings.Join(lines, "\n")
}

func formatPrice(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
