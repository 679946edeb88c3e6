package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"daily-alpha/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type stubQuotes struct {
	open map[string]bool
	err  error
}

func (s *stubQuotes) Quote(ctx context.Context, date time.Time) (*domain.MarketSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	key := domain.NormalizeDate(date).Format(domain.DateLayout)
	if !s.open[key] {
		return nil, nil
	}
	return &domain.MarketSnapshot{Date: domain.NormalizeDate(date), Close: 100}, nil
}

func TestIsTradingDay(t *testing.T) {
	quotes := &stubQuotes{open: map[string]bool{"2026-08-28": true}}
	r := NewResolver(quotes, trace.NewNoopTracerProvider().Tracer("test"))

	open, err := r.IsTradingDay(context.Background(), time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !open {
		t.Fatal("expected trading day")
	}

	open, err = r.IsTradingDay(context.Background(), time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if open {
		t.Fatal("expected closed day")
	}
}

func TestLastTradingDayScansBack(t *testing.T) {
	// Mark the day before yesterday as the last open session.
	target := domain.NormalizeDate(time.Now().UTC()).AddDate(0, 0, -2)
	quotes := &stubQuotes{open: map[string]bool{target.Format(domain.DateLayout): true}}
	r := NewResolver(quotes, trace.NewNoopTracerProvider().Tracer("test"))

	got, err := r.LastTradingDay(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(target) {
		t.Fatalf("expected %v, got %v", target, got)
	}
}

func TestLastTradingDayEmptyWindow(t *testing.T) {
	quotes := &stubQuotes{open: map[string]bool{}}
	r := NewResolver(quotes, trace.NewNoopTracerProvider().Tracer("test"))

	if _, err := r.LastTradingDay(context.Background()); !errors.Is(err, ErrNoMarketData) {
		t.Fatalf("expected ErrNoMarketData, got %v", err)
	}
}

func TestLastTradingDayProviderError(t *testing.T) {
	quotes := &stubQuotes{err: errors.New("api down")}
	r := NewResolver(quotes, trace.NewNoopTracerProvider().Tracer("test"))

	if _, err := r.LastTradingDay(context.Background()); err == nil || errors.Is(err, ErrNoMarketData) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
