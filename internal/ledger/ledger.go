// Package ledger persists the append-only record of paper trades as a flat
// CSV file with a stable column set.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/eddiefleurent/nifty_oi_bot/internal/models"
)

// ErrNoOpenRecord is returned when a close finds no matching OPEN record.
var ErrNoOpenRecord = errors.New("ledger: no matching open record")

// Interface defines the contract for trade-history persistence.
//
// Implementations must be safe for concurrent use; the dashboard reads the
// ledger while the strategy goroutine writes it.
type Interface interface {
	// Append adds a record and persists the ledger.
	Append(rec models.TradeRecord) error

	// CloseOpenRecord finds the first OPEN record matching symbol and
	// entry time (formatted to seconds), applies mutate, and persists.
	// Returns ErrNoOpenRecord when nothing matches; the ledger is unchanged.
	CloseOpenRecord(symbol, entryTime string, mutate func(*models.TradeRecord)) error

	// Save persists the full ledger, overwriting the previous file.
	Save() error

	// Records returns a copy of all records in append order.
	Records() []models.TradeRecord

	// RecordsForDate returns a copy of the records for one trading day.
	RecordsForDate(date string) []models.TradeRecord

	// OpenCount returns how many records are currently OPEN.
	OpenCount() int
}

// header is the stable CSV column set. Order is part of the file format.
var header = []string{
	"date", "symbol", "entry_time", "entry_price", "quantity",
	"status", "exit_price", "pnl", "pnl_pct", "exit_reason", "exit_time",
}

// CSVLedger is the file-backed ledger implementation.
type CSVLedger struct {
	mu      sync.RWMutex
	path    string
	records []models.TradeRecord
}

var _ Interface = (*CSVLedger)(nil)

// New creates a ledger at path, eagerly loading an existing file.
func New(path string) (*CSVLedger, error) {
	l := &CSVLedger{path: path}

	if _, err := os.Stat(path); err == nil {
		if err := l.load(); err != nil {
			return nil, fmt.Errorf("loading trade ledger: %w", err)
		}
	}

	return l, nil
}

// Append implements Interface.
func (l *CSVLedger) Append(rec models.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)
	return l.save()
}

// CloseOpenRecord implements Interface. First match wins.
func (l *CSVLedger) CloseOpenRecord(symbol, entryTime string, mutate func(*models.TradeRecord)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.records {
		r := &l.records[i]
		if r.Symbol == symbol && r.EntryTime == entryTime && r.Status == models.StatusOpen {
			mutate(r)
			return l.save()
		}
	}
	return ErrNoOpenRecord
}

// Save implements Interface.
func (l *CSVLedger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save()
}

// save writes the whole ledger to a temp file and renames it into place.
// Caller must hold l.mu.
func (l *CSVLedger) save() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp ledger file: %w", err)
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	writeErr := w.Write(header)
	for i := range l.records {
		if writeErr != nil {
			break
		}
		writeErr = w.Write(toRow(&l.records[i]))
	}
	if writeErr == nil {
		w.Flush()
		writeErr = w.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing ledger: %w", writeErr)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing ledger file: %w", err)
	}
	return nil
}

// load reads the whole file, replacing in-memory records.
func (l *CSVLedger) load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("reading ledger csv: %w", err)
	}
	if len(rows) == 0 {
		l.records = nil
		return nil
	}
	if len(rows[0]) != len(header) {
		return fmt.Errorf("ledger header has %d columns, want %d", len(rows[0]), len(header))
	}

	records := make([]models.TradeRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := fromRow(row)
		if err != nil {
			return fmt.Errorf("ledger row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	l.records = records
	return nil
}

// Records implements Interface.
func (l *CSVLedger) Records() []models.TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.TradeRecord, len(l.records))
	copy(out, l.records)
	return out
}

// RecordsForDate implements Interface.
func (l *CSVLedger) RecordsForDate(date string) []models.TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.TradeRecord
	for _, r := range l.records {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out
}

// OpenCount implements Interface.
func (l *CSVLedger) OpenCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for i := range l.records {
		if l.records[i].Status == models.StatusOpen {
			n++
		}
	}
	return n
}

func toRow(r *models.TradeRecord) []string {
	row := []string{
		r.Date,
		r.Symbol,
		r.EntryTime,
		formatFloat(r.EntryPrice),
		strconv.Itoa(r.Quantity),
		string(r.Status),
		"", "", "", "", "",
	}
	if r.IsClosed() {
		row[6] = formatFloat(r.ExitPrice)
		row[7] = formatFloat(r.PnL)
		row[8] = formatFloat(r.PnLPct)
		row[9] = string(r.ExitReason)
		row[10] = r.ExitTime
	}
	return row
}

func fromRow(row []string) (models.TradeRecord, error) {
	var rec models.TradeRecord
	if len(row) != len(header) {
		return rec, fmt.Errorf("has %d columns, want %d", len(row), len(header))
	}

	entryPrice, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return rec, fmt.Errorf("entry_price %q: %w", row[3], err)
	}
	quantity, err := strconv.Atoi(row[4])
	if err != nil {
		return rec, fmt.Errorf("quantity %q: %w", row[4], err)
	}

	rec = models.TradeRecord{
		Date:       row[0],
		Symbol:     row[1],
		EntryTime:  row[2],
		EntryPrice: entryPrice,
		Quantity:   quantity,
		Status:     models.TradeStatus(row[5]),
	}

	if rec.Status == models.StatusClosed {
		if rec.ExitPrice, err = strconv.ParseFloat(row[6], 64); err != nil {
			return rec, fmt.Errorf("exit_price %q: %w", row[6], err)
		}
		if rec.PnL, err = strconv.ParseFloat(row[7], 64); err != nil {
			return rec, fmt.Errorf("pnl %q: %w", row[7], err)
		}
		if rec.PnLPct, err = strconv.ParseFloat(row[8], 64); err != nil {
			return rec, fmt.Errorf("pnl_pct %q: %w", row[8], err)
		}
		rec.ExitReason = models.ExitReason(row[9])
		rec.ExitTime = row[10]
	}

	return rec, nil
}

// formatFloat renders the shortest exact decimal so persist/load round-trips
// field-for-field.
func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
