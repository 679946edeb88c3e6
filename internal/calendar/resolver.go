package calendar

import (
	"context"
	"errors"
	"time"

	"daily-alpha/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// ErrNoMarketData means the trailing window held no trading session at all,
// which leaves a run with no date to attribute anything to.
var ErrNoMarketData = errors.New("calendar: no market data in trailing window")

// lastTradingDayWindow covers the longest realistic market closure
// (weekend plus holidays).
const lastTradingDayWindow = 7

// QuoteProvider is the market-data dependency the resolver consumes.
type QuoteProvider interface {
	Quote(ctx context.Context, date time.Time) (*domain.MarketSnapshot, error)
}

// Resolver answers trading-day questions by probing the market-data
// provider: a date is a trading day exactly when a bar exists for it.
type Resolver struct {
	provider QuoteProvider
	tracer   trace.Tracer
}

func NewResolver(provider QuoteProvider, tracer trace.Tracer) *Resolver {
	return &Resolver{provider: provider, tracer: tracer}
}

// IsTradingDay reports whether the market traded on date.
func (r *Resolver) IsTradingDay(ctx context.Context, date time.Time) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "calendar.is-trading-day")
	defer span.End()

	snap, err := r.provider.Quote(ctx, date)
	if err != nil {
		return false, err
	}
	return snap != nil, nil
}

// LastTradingDay returns the most recent session on or before today,
// scanning back over the trailing window. ErrNoMarketData when the whole
// window is closed.
func (r *Resolver) LastTradingDay(ctx context.Context) (time.Time, error) {
	ctx, span := r.tracer.Start(ctx, "calendar.last-trading-day")
	defer span.End()

	day := domain.NormalizeDate(time.Now().UTC())
	for i := 0; i < lastTradingDayWindow; i++ {
		snap, err := r.provider.Quote(ctx, day)
		if err != nil {
			return time.Time{}, err
		}
		if snap != nil {
			return snap.Date, nil
		}
		day = day.AddDate(0, 0, -1)
	}
	return time.Time{}, ErrNoMarketData
}
