package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"daily-alpha/internal/domain"
	"daily-alpha/internal/ml"
	"daily-alpha/internal/repository"

	"go.opentelemetry.io/otel/trace"
)

// avgVolumeWindow is the trailing-session count for the prediction's
// volume-ratio feature.
const avgVolumeWindow = 20

// Attribution decides which trading day a collection cycle belongs to.
type Attribution interface {
	ResolveTarget(ctx context.Context, today time.Time, dryRun bool) (time.Time, error)
	ReconcileOrphans(ctx context.Context, target time.Time) ([]*domain.Article, error)
}

// MarketData fetches one day's snapshot.
type MarketData interface {
	Quote(ctx context.Context, date time.Time) (*domain.MarketSnapshot, error)
}

// NewsCollector gathers the day's company and macro article batches.
type NewsCollector interface {
	CollectCompany(ctx context.Context, date time.Time) []*domain.Article
	CollectMacro(ctx context.Context, date time.Time) []*domain.Article
}

// Aggregator scores the article batches.
type Aggregator interface {
	Analyze(ctx context.Context, company, macro []*domain.Article) (*domain.SentimentSnapshot, error)
}

// DayStore is the trading-day persistence the workflow touches.
type DayStore interface {
	GetDay(ctx context.Context, date time.Time) (*domain.TradingDayRecord, error)
	UpsertTradingDay(ctx context.Context, snap *domain.MarketSnapshot) error
	UpdateSentiment(ctx context.Context, date time.Time, company, macro, combined float64) error
	BackfillNextDayClose(ctx context.Context, prevDate time.Time, todayClose float64) error
	GetPreviousDay(ctx context.Context, date time.Time) (*domain.TradingDayRecord, error)
	SavePrediction(ctx context.Context, date time.Time, label domain.Direction) error
	AverageVolume(ctx context.Context, date time.Time, n int) (float64, error)
}

// ArticleStore persists collected articles.
type ArticleStore interface {
	InsertArticle(ctx context.Context, a *domain.Article) (bool, error)
}

// Predictor is the trained-model boundary.
type Predictor interface {
	Predict(ctx context.Context, day *domain.TradingDayRecord, avgVolume float64) (*ml.PredictionResult, error)
}

// RunResult is the full outcome of one daily cycle.
type RunResult struct {
	Date              time.Time                 `json:"date"`
	CollectionDate    time.Time                 `json:"collection_date"`
	DryRun            bool                      `json:"dry_run"`
	Success           bool                      `json:"success"`
	MarketDataExisted bool                      `json:"market_data_existed"`
	MarketDataSaved   bool                      `json:"market_data_saved"`
	ArticlesCollected int                       `json:"articles_collected"`
	ArticlesSaved     int                       `json:"articles_saved"`
	SentimentUpdated  bool                      `json:"sentiment_updated"`
	Sentiment         *domain.SentimentSnapshot `json:"sentiment,omitempty"`
	Prediction        *ml.PredictionResult      `json:"prediction,omitempty"`
	PredictionMessage string                    `json:"prediction_message,omitempty"`
	Errors            []string                  `json:"errors,omitempty"`
}

// Orchestrator sequences one daily cycle: calendar resolution, market
// data, news, sentiment, persistence, prediction. Only calendar failure
// is fatal; every later stage degrades and records its error.
type Orchestrator struct {
	attribution Attribution
	market      MarketData
	news        NewsCollector
	aggregator  Aggregator
	days        DayStore
	articles    ArticleStore
	predictor   Predictor
	tracer      trace.Tracer
	nowFunc     func() time.Time
}

func NewOrchestrator(
	attribution Attribution,
	market MarketData,
	news NewsCollector,
	aggregator Aggregator,
	days DayStore,
	articles ArticleStore,
	predictor Predictor,
	tracer trace.Tracer,
) *Orchestrator {
	return &Orchestrator{
		attribution: attribution,
		market:      market,
		news:        news,
		aggregator:  aggregator,
		days:        days,
		articles:    articles,
		predictor:   predictor,
		tracer:      tracer,
		nowFunc:     time.Now,
	}
}

// Run executes the daily cycle. collectionDate zero means "now".
func (o *Orchestrator) Run(ctx context.Context, collectionDate time.Time, dryRun bool) *RunResult {
	ctx, span := o.tracer.Start(ctx, "workflow.run")
	defer span.End()

	if collectionDate.IsZero() {
		collectionDate = o.nowFunc().UTC()
	}
	collectionDate = domain.NormalizeDate(collectionDate)

	result := &RunResult{
		CollectionDate: collectionDate,
		DryRun:         dryRun,
	}

	target, err := o.attribution.ResolveTarget(ctx, collectionDate, dryRun)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("resolve trading day: %v", err))
		return result
	}
	result.Date = target
	log.Printf("workflow: collection %s attributed to trading day %s",
		collectionDate.Format(domain.DateLayout), target.Format(domain.DateLayout))

	o.collectMarketData(ctx, target, dryRun, result)

	company := o.news.CollectCompany(ctx, collectionDate)
	macro := o.news.CollectMacro(ctx, collectionDate)
	result.ArticlesCollected = len(company) + len(macro)

	if len(company) == 0 && len(macro) == 0 {
		log.Printf("workflow: no articles collected, sentiment update skipped")
		result.Errors = append(result.Errors, "no articles found")
	} else {
		o.processSentiment(ctx, target, company, macro, dryRun, result)
	}

	o.makePrediction(ctx, target, dryRun, result)

	result.Success = true
	return result
}

// collectMarketData upserts the target day's snapshot unless the row is
// already stored, and on new data backfills the previous session.
func (o *Orchestrator) collectMarketData(ctx context.Context, target time.Time, dryRun bool, result *RunResult) {
	existing, err := o.days.GetDay(ctx, target)
	if err == nil && existing != nil {
		log.Printf("workflow: market data for %s already stored", target.Format(domain.DateLayout))
		result.MarketDataExisted = true
		return
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		result.Errors = append(result.Errors, fmt.Sprintf("read market data: %v", err))
		return
	}

	snap, err := o.market.Quote(ctx, target)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fetch market data: %v", err))
		return
	}
	if snap == nil {
		result.Errors = append(result.Errors, fmt.Sprintf("no market bar for %s", target.Format(domain.DateLayout)))
		return
	}

	if dryRun {
		log.Printf("workflow: market data ready for %s (dry run, not saved)", target.Format(domain.DateLayout))
		return
	}

	if err := o.days.UpsertTradingDay(ctx, snap); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("save market data: %v", err))
		return
	}
	result.MarketDataSaved = true

	// New bar closes out the previous session's prediction.
	prev, err := o.days.GetPreviousDay(ctx, target)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			result.Errors = append(result.Errors, fmt.Sprintf("read previous day: %v", err))
		}
		return
	}
	if err := o.days.BackfillNextDayClose(ctx, prev.Date, snap.Close); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("backfill previous day: %v", err))
	}
}

// processSentiment folds orphans into the batch, scores it, and persists
// articles plus the day's sentiment columns.
func (o *Orchestrator) processSentiment(ctx context.Context, target time.Time, company, macro []*domain.Article, dryRun bool, result *RunResult) {
	orphans, err := o.attribution.ReconcileOrphans(ctx, target)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("reconcile orphans: %v", err))
	}
	for _, a := range orphans {
		if a.Type == domain.ArticleTypeMacro {
			macro = append(macro, a)
		} else {
			company = append(company, a)
		}
	}

	snap, err := o.aggregator.Analyze(ctx, company, macro)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("sentiment analysis: %v", err))
		return
	}
	result.Sentiment = snap

	if dryRun {
		log.Printf("workflow: sentiment %.2f ready (dry run, not saved)", snap.CombinedScore)
		return
	}

	for _, a := range company {
		o.saveArticle(ctx, a, target, result)
	}
	for _, a := range macro {
		o.saveArticle(ctx, a, target, result)
	}

	if err := o.days.UpdateSentiment(ctx, target, snap.CompanyScore, snap.MacroScore, snap.CombinedScore); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("update sentiment: %v", err))
		return
	}
	result.SentimentUpdated = true
}

func (o *Orchestrator) saveArticle(ctx context.Context, a *domain.Article, target time.Time, result *RunResult) {
	stored := *a
	stored.Date = target
	inserted, err := o.articles.InsertArticle(ctx, &stored)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("save article %s: %v", a.URL, err))
		return
	}
	if inserted {
		result.ArticlesSaved++
	}
}

// makePrediction classifies the next session. Failures never flip the
// run's success.
func (o *Orchestrator) makePrediction(ctx context.Context, target time.Time, dryRun bool, result *RunResult) {
	day, err := o.days.GetDay(ctx, target)
	if err != nil {
		result.PredictionMessage = fmt.Sprintf("no stored day to predict from: %v", err)
		return
	}

	avgVolume, err := o.days.AverageVolume(ctx, target, avgVolumeWindow)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("average volume: %v", err))
		avgVolume = 0
	}

	prediction, err := o.predictor.Predict(ctx, day, avgVolume)
	if err != nil {
		if errors.Is(err, ml.ErrNotTrained) || errors.Is(err, ml.ErrInsufficientData) {
			result.PredictionMessage = err.Error()
			log.Printf("workflow: %v", err)
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("prediction: %v", err))
		}
		return
	}
	result.Prediction = prediction
	result.PredictionMessage = fmt.Sprintf("Prediction: %s (%.1f%% confidence)",
		prediction.Direction, prediction.Confidence*100)

	if dryRun {
		return
	}
	if err := o.days.SavePrediction(ctx, target, prediction.Direction); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("save prediction: %v", err))
	}
}
