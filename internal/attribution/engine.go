package attribution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"daily-alpha/internal/domain"
	"daily-alpha/internal/repository"

	"go.opentelemetry.io/otel/trace"
)

// TradingDayResolver answers calendar questions off live market data.
type TradingDayResolver interface {
	IsTradingDay(ctx context.Context, date time.Time) (bool, error)
	LastTradingDay(ctx context.Context) (time.Time, error)
}

// DayStore is the slice of the record store attribution needs.
type DayStore interface {
	GetLatestDay(ctx context.Context) (*domain.TradingDayRecord, error)
	CountDays(ctx context.Context) (int, error)
	UpsertTradingDay(ctx context.Context, snap *domain.MarketSnapshot) error
}

// ArticleStore lists stored articles for orphan reconciliation.
type ArticleStore interface {
	ListBefore(ctx context.Context, date time.Time) ([]*domain.Article, error)
}

// QuoteProvider fetches one day's snapshot for the bootstrap path.
type QuoteProvider interface {
	Quote(ctx context.Context, date time.Time) (*domain.MarketSnapshot, error)
}

// Engine decides which trading day a batch of news belongs to. News
// published on a closed day is attributed to the most recent session, so
// weekend and holiday coverage still lands on a real row.
type Engine struct {
	resolver TradingDayResolver
	days     DayStore
	articles ArticleStore
	quotes   QuoteProvider
	tracer   trace.Tracer
}

func NewEngine(resolver TradingDayResolver, days DayStore, articles ArticleStore, quotes QuoteProvider, tracer trace.Tracer) *Engine {
	return &Engine{
		resolver: resolver,
		days:     days,
		articles: articles,
		quotes:   quotes,
		tracer:   tracer,
	}
}

// ResolveTarget returns the trading day that today's collection should be
// attributed to. The result never lies after today. dryRun suppresses the
// bootstrap write while still resolving the same date.
func (e *Engine) ResolveTarget(ctx context.Context, today time.Time, dryRun bool) (time.Time, error) {
	ctx, span := e.tracer.Start(ctx, "attribution.resolve-target")
	defer span.End()

	today = domain.NormalizeDate(today)

	open, err := e.resolver.IsTradingDay(ctx, today)
	if err != nil {
		return time.Time{}, fmt.Errorf("check trading day: %w", err)
	}
	if open {
		return today, nil
	}

	latest, err := e.days.GetLatestDay(ctx)
	if err == nil {
		log.Printf("attribution: market closed %s, targeting latest stored day %s",
			today.Format(domain.DateLayout), latest.Date.Format(domain.DateLayout))
		return domain.NormalizeDate(latest.Date), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return time.Time{}, fmt.Errorf("latest stored day: %w", err)
	}

	// Empty store on a closed day: bootstrap the last session's row so the
	// articles have somewhere to land.
	last, err := e.resolver.LastTradingDay(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("last trading day: %w", err)
	}
	if dryRun {
		return last, nil
	}
	snap, err := e.quotes.Quote(ctx, last)
	if err != nil {
		return time.Time{}, fmt.Errorf("bootstrap quote for %s: %w", last.Format(domain.DateLayout), err)
	}
	if snap == nil {
		return time.Time{}, fmt.Errorf("bootstrap quote for %s: no bar returned", last.Format(domain.DateLayout))
	}
	if err := e.days.UpsertTradingDay(ctx, snap); err != nil {
		return time.Time{}, fmt.Errorf("bootstrap upsert: %w", err)
	}
	log.Printf("attribution: bootstrapped empty store with %s", last.Format(domain.DateLayout))
	return last, nil
}

// ReconcileOrphans finds articles stranded before the store's sole day.
// The situation arises when early collections ran against closed days
// before any market row existed; those articles should be folded into the
// first real session's sentiment. With more than one day stored there is
// nothing to reconcile.
func (e *Engine) ReconcileOrphans(ctx context.Context, target time.Time) ([]*domain.Article, error) {
	ctx, span := e.tracer.Start(ctx, "attribution.reconcile-orphans")
	defer span.End()

	count, err := e.days.CountDays(ctx)
	if err != nil {
		return nil, err
	}
	if count != 1 {
		return nil, nil
	}

	orphans, err := e.articles.ListBefore(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(orphans) > 0 {
		log.Printf("attribution: %d orphaned articles fold into %s",
			len(orphans), domain.NormalizeDate(target).Format(domain.DateLayout))
	}
	return orphans, nil
}
