package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/eddiefleurent/nifty_oi_bot/internal/market"
	"github.com/eddiefleurent/nifty_oi_bot/internal/util"
)

const (
	underlyingSymbol   = "NSE:NIFTY50-INDEX"
	defaultStrikeCount = 20
	fyersTimeout       = 10 * time.Second

	// NSE option premiums trade in 0.05 increments. Quotes are snapped to
	// the tick on decode so float noise from the JSON payload cannot leak
	// into breakout and exit comparisons.
	premiumTick = 0.05
)

// FyersSource fetches the NIFTY option chain from the Fyers data API and
// normalizes it into ChainSnapshot form. Token acquisition and refresh happen
// outside this type; it only consumes a ready access token.
type FyersSource struct {
	endpoint    string
	accessToken string
	client      *http.Client
	clock       *market.Clock
	logger      *log.Logger
}

var _ ChainSource = (*FyersSource)(nil)

// NewFyersSource creates a chain source against the given API endpoint.
func NewFyersSource(endpoint, accessToken string, clock *market.Clock, logger *log.Logger) *FyersSource {
	return &FyersSource{
		endpoint:    endpoint,
		accessToken: accessToken,
		client:      &http.Client{Timeout: fyersTimeout},
		clock:       clock,
		logger:      logger,
	}
}

// fyersChainResponse mirrors the option-chain payload shape.
type fyersChainResponse struct {
	Status string `json:"s"`
	Data   struct {
		UnderlyingLtp float64 `json:"underlyingLtp"`
		OptionsChain  []struct {
			StrikePrice float64 `json:"strikePrice"`
			CE          *fyersOptionData `json:"CE,omitempty"`
			PE          *fyersOptionData `json:"PE,omitempty"`
		} `json:"optionsChain"`
	} `json:"d"`
}

type fyersOptionData struct {
	LastPrice    float64 `json:"lastPrice"`
	OpenInterest int64   `json:"openInterest"`
}

// GetOptionChain fetches the current weekly chain. Symbols are rebuilt in
// the standard format so downstream lookups are stable regardless of what
// the API returns.
func (f *FyersSource) GetOptionChain(ctx context.Context) (*ChainSnapshot, error) {
	now := f.clock.Now()
	expiry := market.NextWeeklyExpiry(now)

	q := url.Values{}
	q.Set("symbol", underlyingSymbol)
	q.Set("strikecount", strconv.Itoa(defaultStrikeCount))
	q.Set("timestamp", strconv.FormatInt(expiry.Unix(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.endpoint+"/data/options-chain-v3?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building chain request: %w", err)
	}
	req.Header.Set("Authorization", f.accessToken)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching option chain: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			f.logger.Printf("Warning: closing chain response body: %v", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("option chain request failed: status %d: %s", resp.StatusCode, body)
	}

	var payload fyersChainResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding option chain: %w", err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("option chain response status %q", payload.Status)
	}

	snapshot := &ChainSnapshot{
		SpotPrice: payload.Data.UnderlyingLtp,
		FetchedAt: now,
	}
	for _, row := range payload.Data.OptionsChain {
		if row.CE != nil {
			snapshot.Records = append(snapshot.Records, OptionRecord{
				Symbol:       BuildOptionSymbol(expiry, row.StrikePrice, OptionCall),
				Strike:       row.StrikePrice,
				Type:         OptionCall,
				LastPrice:    util.RoundToTick(row.CE.LastPrice, premiumTick),
				OpenInterest: row.CE.OpenInterest,
			})
		}
		if row.PE != nil {
			snapshot.Records = append(snapshot.Records, OptionRecord{
				Symbol:       BuildOptionSymbol(expiry, row.StrikePrice, OptionPut),
				Strike:       row.StrikePrice,
				Type:         OptionPut,
				LastPrice:    util.RoundToTick(row.PE.LastPrice, premiumTick),
				OpenInterest: row.PE.OpenInterest,
			})
		}
	}

	if snapshot.Empty() {
		f.logger.Printf("Warning: option chain response contained no records (market closed?)")
	}
	return snapshot, nil
}
