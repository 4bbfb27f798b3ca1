package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/kalshidash/internal/arbitrage"
	"github.com/alanyoungcy/kalshidash/internal/config"
	"github.com/alanyoungcy/kalshidash/internal/domain"
)

const eventsBody = `{
  "cursor": "",
  "events": [
    {
      "event_ticker": "FED-25DEC",
      "title": "Fed rate decision in December",
      "category": "Economics",
      "markets": [
        {"ticker": "FED-25DEC-HOLD", "title": "Will the Fed hold rates in December?", "status": "active", "last_price": 60, "volume": 1000},
        {"ticker": "FED-25DEC-CUT", "title": "Will the Fed cut rates in December?", "status": "active", "last_price": 50, "volume": 800}
      ]
    },
    {
      "event_ticker": "CPI-25NOV",
      "title": "CPI inflation in November",
      "category": "Economics",
      "markets": [
        {"ticker": "CPI-25NOV-3", "title": "Will CPI inflation exceed 3%?", "status": "active", "last_price": 55},
        {"ticker": "CPI-25NOV-4", "title": "Will CPI inflation exceed 4%?", "status": "active", "last_price": 70}
      ]
    }
  ]
}`

// fakeExchange serves the subset of the exchange REST API the app reads.
func fakeExchange(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("with_nested_markets"))
		io.WriteString(w, eventsBody)
	})
	mux.HandleFunc("GET /markets/trades", func(w http.ResponseWriter, r *http.Request) {
		base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
		var trades []string
		// newest first, drifting down from 70 to 48
		for i := 0; i < 12; i++ {
			trades = append(trades, fmt.Sprintf(
				`{"trade_id":"t%d","ticker":%q,"created_time":%q,"yes_price":%d,"count":1}`,
				i, r.URL.Query().Get("ticker"), base.Add(-time.Duration(i)*time.Minute).Format(time.RFC3339), 48+2*i,
			))
		}
		io.WriteString(w, `{"cursor":"","trades":[`+strings.Join(trades, ",")+`]}`)
	})
	mux.HandleFunc("GET /markets/{ticker}/orderbook", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"orderbook":{"yes":[[44,10],[45,5]],"no":[[40,7]]}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Defaults()
	cfg.Kalshi.BaseURL = fakeExchange(t).URL
	cfg.Kalshi.RequestsPerSecond = 1000
	cfg.Kalshi.Burst = 1000
	require.NoError(t, cfg.Validate())

	a := New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(a.Close)
	return a
}

func TestScanCommand(t *testing.T) {
	a := testApp(t)

	var out bytes.Buffer
	err := a.Scan(context.Background(), ScanRequest{Ticker: "FED-25DEC-HOLD"}, &out)
	require.NoError(t, err)

	var res domain.ScanResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "FED-25DEC-HOLD", res.Target.Ticker)
	assert.Equal(t, 4, res.UniverseSize)
	require.NotEmpty(t, res.Related)
	assert.Equal(t, "FED-25DEC-CUT", res.Related[0].Ticker)
	assert.Equal(t, "SAME EVENT", res.Related[0].Reason)
	assert.True(t, res.Related[0].Enriched)
	require.NotNil(t, res.Related[0].Momentum)
	assert.Equal(t, domain.DirectionDown, res.Related[0].Momentum.Direction)
	assert.Zero(t, res.FetchFailures)
}

func TestScanCommandUnknownTicker(t *testing.T) {
	a := testApp(t)

	err := a.Scan(context.Background(), ScanRequest{Ticker: "NOPE"}, io.Discard)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScanCommandRejectsUnknownSort(t *testing.T) {
	a := testApp(t)

	err := a.Scan(context.Background(), ScanRequest{Ticker: "FED-25DEC-HOLD", Sort: "vibes"}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sort field")
}

func TestArbOnce(t *testing.T) {
	a := testApp(t)

	var out bytes.Buffer
	require.NoError(t, a.Arb(context.Background(), true, &out))

	var results []arbitrage.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "CPI-25NOV", results[0].EventTicker)
	assert.InDelta(t, 25.0, results[0].Overround, 1e-9)
	assert.True(t, results[0].IsMispriced)
}

func TestArbWatchStopsCleanly(t *testing.T) {
	a := testApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := a.Arb(ctx, false, io.Discard)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScanOptionsTopKZeroDisablesEnrichment(t *testing.T) {
	cfg := config.Defaults().Scan
	cfg.TopK = 0
	assert.Equal(t, -1, scanOptions(cfg).TopK)

	cfg.TopK = 3
	assert.Equal(t, 3, scanOptions(cfg).TopK)
}
