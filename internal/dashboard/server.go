// Package dashboard serves a read-only web view of the trade ledger.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/nifty_oi_bot/internal/ledger"
	"github.com/eddiefleurent/nifty_oi_bot/internal/models"
)

// Server exposes the trade history over HTTP. It only reads the ledger; all
// writes happen on the strategy goroutine.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	ledger    ledger.Interface
	logger    *logrus.Logger
	nowFn     func() time.Time
	port      int
	authToken string
}

// Config holds the dashboard server settings.
type Config struct {
	Port      int
	AuthToken string
}

// Summary aggregates one trading day's ledger rows.
type Summary struct {
	Date        string  `json:"date"`
	TotalTrades int     `json:"total_trades"`
	Completed   int     `json:"completed"`
	Profitable  int     `json:"profitable"`
	Losing      int     `json:"losing"`
	Open        int     `json:"open"`
	TotalPnL    float64 `json:"total_pnl"`
}

// NewServer creates a dashboard server over the given ledger. nowFn supplies
// the trading-region clock for the daily summary.
func NewServer(cfg Config, l ledger.Interface, nowFn func() time.Time, logger *logrus.Logger) *Server {
	if nowFn == nil {
		nowFn = time.Now
	}
	s := &Server{
		router:    chi.NewRouter(),
		ledger:    l,
		logger:    logger,
		nowFn:     nowFn,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/trades", s.handleTrades)
	s.router.Get("/api/summary", s.handleSummary)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	s.logger.Infof("Dashboard listening on port %d", s.port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": s.nowFn().Unix(),
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	var records []models.TradeRecord
	if date := r.URL.Query().Get("date"); date != "" {
		records = s.ledger.RecordsForDate(date)
	} else {
		records = s.ledger.Records()
	}
	if records == nil {
		records = []models.TradeRecord{}
	}
	s.writeJSON(w, records)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.nowFn().Format(models.DateLayout)
	}
	s.writeJSON(w, s.summarize(date))
}

func (s *Server) summarize(date string) Summary {
	sum := Summary{Date: date}
	for _, rec := range s.ledger.RecordsForDate(date) {
		sum.TotalTrades++
		if !rec.IsClosed() {
			sum.Open++
			continue
		}
		sum.Completed++
		sum.TotalPnL += rec.PnL
		if rec.PnL > 0 {
			sum.Profitable++
		} else {
			sum.Losing++
		}
	}
	return sum
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>NIFTY OI Bot</title>
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #999; padding: 4px 8px; text-align: right; }
th { background: #eee; }
.neg { color: #b00; }
.pos { color: #070; }
</style>
</head>
<body>
<h2>Trades {{.Summary.Date}}</h2>
<p>Total: {{.Summary.TotalTrades}} | Completed: {{.Summary.Completed}} |
Profitable: {{.Summary.Profitable}} | Losing: {{.Summary.Losing}} |
P&amp;L: <span class="{{if lt .Summary.TotalPnL 0.0}}neg{{else}}pos{{end}}">{{printf "%.2f" .Summary.TotalPnL}}</span></p>
<table>
<tr><th>Date</th><th>Symbol</th><th>Entry</th><th>Qty</th><th>Status</th><th>Exit</th><th>P&amp;L</th><th>Reason</th></tr>
{{range .Trades}}
<tr>
<td>{{.Date}}</td><td>{{.Symbol}}</td><td>{{printf "%.2f" .EntryPrice}}</td>
<td>{{.Quantity}}</td><td>{{.Status}}</td>
<td>{{if eq .Status "CLOSED"}}{{printf "%.2f" .ExitPrice}}{{end}}</td>
<td class="{{if lt .PnL 0.0}}neg{{else}}pos{{end}}">{{if eq .Status "CLOSED"}}{{printf "%.2f" .PnL}}{{end}}</td>
<td>{{.ExitReason}}</td>
</tr>
{{end}}
</table>
</body>
</html>`))

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	today := s.nowFn().Format(models.DateLayout)
	data := struct {
		Summary Summary
		Trades  []models.TradeRecord
	}{
		Summary: s.summarize(today),
		Trades:  s.ledger.Records(),
	}

	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.WithError(err).Error("Failed to render index")
	}
}
