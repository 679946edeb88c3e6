package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"daily-alpha/internal/domain"
	"daily-alpha/internal/ta"

	"go.opentelemetry.io/otel/trace"
)

const yahooChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// windowDays is the trailing history fetched per request. Long enough for
// the 200-session moving average plus warmup.
const windowDays = 300

// QuoteCache caches a day's snapshot to spare repeat chart fetches.
// A nil hit means miss; cache failures are never fatal.
type QuoteCache interface {
	GetQuote(ctx context.Context, symbol string, date time.Time) (*domain.MarketSnapshot, error)
	SetQuote(ctx context.Context, symbol string, snap *domain.MarketSnapshot) error
}

// MarketDataProvider fetches daily OHLCV bars from the Yahoo Finance chart
// API and derives the technical indicators locally.
type MarketDataProvider struct {
	client  *http.Client
	baseURL string
	symbol  string
	tracer  trace.Tracer
	limiter *RateLimiter
	cache   QuoteCache
}

// NewMarketDataProvider creates a provider for one symbol. Rate limited to
// 10 requests per minute. cache may be nil.
func NewMarketDataProvider(symbol string, cache QuoteCache, tracer trace.Tracer) *MarketDataProvider {
	return &MarketDataProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: yahooChartBaseURL,
		symbol:  symbol,
		tracer:  tracer,
		limiter: NewRateLimiter(10, 6*time.Second),
		cache:   cache,
	}
}

// Quote returns the snapshot for one calendar date, with indicators computed
// over the trailing window. Returns (nil, nil) when the market did not trade
// that day.
func (p *MarketDataProvider) Quote(ctx context.Context, date time.Time) (*domain.MarketSnapshot, error) {
	_, span := p.tracer.Start(ctx, "marketdata.quote")
	defer span.End()

	date = domain.NormalizeDate(date)

	if p.cache != nil {
		if snap, err := p.cache.GetQuote(ctx, p.symbol, date); err == nil && snap != nil {
			return snap, nil
		}
	}

	snaps, err := p.fetchWindow(ctx, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	for _, s := range snaps {
		if domain.SameDate(s.Date, date) {
			if p.cache != nil {
				if err := p.cache.SetQuote(ctx, p.symbol, s); err != nil {
					log.Printf("quote cache write failed: %v", err)
				}
			}
			return s, nil
		}
	}
	return nil, nil
}

// Window returns up to days most recent snapshots in chronological order.
func (p *MarketDataProvider) Window(ctx context.Context, days int) ([]*domain.MarketSnapshot, error) {
	_, span := p.tracer.Start(ctx, "marketdata.window")
	defer span.End()

	snaps, err := p.fetchWindow(ctx, time.Now().UTC().AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	if len(snaps) > days {
		snaps = snaps[len(snaps)-days:]
	}
	return snaps, nil
}

func (p *MarketDataProvider) fetchWindow(ctx context.Context, end time.Time) ([]*domain.MarketSnapshot, error) {
	start := end.AddDate(0, 0, -windowDays)
	reqURL := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d",
		p.baseURL, url.PathEscape(p.symbol), start.Unix(), end.Unix())

	body, err := p.doRequest(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetch chart for %s: %w", p.symbol, err)
	}

	var raw struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Open   []*float64 `json:"open"`
						High   []*float64 `json:"high"`
						Low    []*float64 `json:"low"`
						Close  []*float64 `json:"close"`
						Volume []*int64   `json:"volume"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error *struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse chart for %s: %w", p.symbol, err)
	}
	if raw.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", p.symbol, raw.Chart.Error.Description)
	}
	if len(raw.Chart.Result) == 0 || len(raw.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart API returned no data for %s", p.symbol)
	}

	result := raw.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	var snaps []*domain.MarketSnapshot
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil || quote.Open[i] == nil {
			continue
		}
		s := &domain.MarketSnapshot{
			Date:  domain.NormalizeDate(time.Unix(ts, 0)),
			Open:  *quote.Open[i],
			Close: *quote.Close[i],
		}
		if i < len(quote.High) && quote.High[i] != nil {
			s.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			s.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			s.Volume = *quote.Volume[i]
		}
		snaps = append(snaps, s)
	}

	attachIndicators(snaps)
	return snaps, nil
}

func (p *MarketDataProvider) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; daily-alpha/1.0)")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chart API error %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// attachIndicators computes RSI-14, MACD(12,26,9), SMA-50 and SMA-200 over
// the close series and sets them on each snapshot where defined.
func attachIndicators(snaps []*domain.MarketSnapshot) {
	if len(snaps) == 0 {
		return
	}
	closes := make([]float64, len(snaps))
	for i, s := range snaps {
		closes[i] = s.Close
	}

	rsi := ta.RSISeries(closes, 14)
	macd, signal := ta.MACDSeries(closes, 12, 26, 9)
	sma50 := ta.SMASeries(closes, 50)
	sma200 := ta.SMASeries(closes, 200)

	for i, s := range snaps {
		if rsi != nil && !math.IsNaN(rsi[i]) {
			s.RSI = domain.Float64Ptr(rsi[i])
		}
		// MACD is meaningful only once the slow EMA has warmed up.
		if i >= 26 {
			s.MACD = domain.Float64Ptr(macd[i])
			s.MACDSignal = domain.Float64Ptr(signal[i])
		}
		if !math.IsNaN(sma50[i]) {
			s.SMA50 = domain.Float64Ptr(sma50[i])
		}
		if !math.IsNaN(sma200[i]) {
			s.SMA200 = domain.Float64Ptr(sma200[i])
		}
	}
}
