package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func chartResponse(timestamps []int64, closes []float64) []byte {
	open := make([]float64, len(closes))
	high := make([]float64, len(closes))
	low := make([]float64, len(closes))
	volume := make([]int64, len(closes))
	for i, c := range closes {
		open[i] = c - 1
		high[i] = c + 1
		low[i] = c - 2
		volume[i] = 1000
	}
	resp := map[string]any{
		"chart": map[string]any{
			"result": []any{
				map[string]any{
					"timestamp": timestamps,
					"indicators": map[string]any{
						"quote": []any{
							map[string]any{
								"open":   open,
								"high":   high,
								"low":    low,
								"close":  closes,
								"volume": volume,
							},
						},
					},
				},
			},
			"error": nil,
		},
	}
	data, _ := json.Marshal(resp)
	return data
}

func newChartTestProvider(t *testing.T, timestamps []int64, closes []float64) *MarketDataProvider {
	t.Helper()
	p := NewMarketDataProvider("NVDA", nil, trace.NewNoopTracerProvider().Tracer("test"))
	p.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewReader(chartResponse(timestamps, closes))),
				Header:     make(http.Header),
			}, nil
		}),
	}
	p.limiter = NewRateLimiter(10, time.Millisecond)
	return p
}

func tradingTimestamps(end time.Time, n int) []int64 {
	out := make([]int64, 0, n)
	day := end
	for len(out) < n {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, day.Unix())
		}
		day = day.AddDate(0, 0, -1)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func TestQuoteReturnsMatchingDay(t *testing.T) {
	t.Parallel()

	// 2026-08-28 is a Friday.
	end := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)
	timestamps := tradingTimestamps(end, 60)
	closes := make([]float64, len(timestamps))
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	p := newChartTestProvider(t, timestamps, closes)
	snap, err := p.Quote(context.Background(), end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap == nil {
		t.Fatal("expected a snapshot for a trading day")
	}
	if snap.Close != closes[len(closes)-1] {
		t.Fatalf("expected close %f, got %f", closes[len(closes)-1], snap.Close)
	}
	if snap.RSI == nil {
		t.Fatal("expected RSI after 60 sessions")
	}
	if snap.SMA50 == nil {
		t.Fatal("expected SMA-50 after 60 sessions")
	}
	if snap.SMA200 != nil {
		t.Fatal("SMA-200 should be nil with only 60 sessions")
	}
}

func TestQuoteClosedDayReturnsNil(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)
	timestamps := tradingTimestamps(end, 30)
	closes := make([]float64, len(timestamps))
	for i := range closes {
		closes[i] = 100
	}

	p := newChartTestProvider(t, timestamps, closes)
	// 2026-08-30 is a Sunday; no bar exists for it.
	snap, err := p.Quote(context.Background(), time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil snapshot for closed day, got %+v", snap)
	}
}

func TestWindowCapsLength(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)
	timestamps := tradingTimestamps(end, 40)
	closes := make([]float64, len(timestamps))
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	p := newChartTestProvider(t, timestamps, closes)
	snaps, err := p.Window(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 10 {
		t.Fatalf("expected 10 snapshots, got %d", len(snaps))
	}
	if !snaps[0].Date.Before(snaps[9].Date) {
		t.Fatal("expected chronological order")
	}
}

func TestQuoteChartError(t *testing.T) {
	t.Parallel()

	p := NewMarketDataProvider("NVDA", nil, trace.NewNoopTracerProvider().Tracer("test"))
	p.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewReader([]byte(body))),
				Header:     make(http.Header),
			}, nil
		}),
	}
	p.limiter = NewRateLimiter(10, time.Millisecond)

	if _, err := p.Quote(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error from chart API error payload")
	}
}
