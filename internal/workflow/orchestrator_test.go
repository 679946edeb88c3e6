package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"daily-alpha/internal/domain"
	"daily-alpha/internal/ml"
	"daily-alpha/internal/repository"

	"go.opentelemetry.io/otel/trace"
)

type stubAttribution struct {
	target     time.Time
	targetErr  error
	orphans    []*domain.Article
	orphansErr error
}

func (s *stubAttribution) ResolveTarget(ctx context.Context, today time.Time, dryRun bool) (time.Time, error) {
	return s.target, s.targetErr
}

func (s *stubAttribution) ReconcileOrphans(ctx context.Context, target time.Time) ([]*domain.Article, error) {
	return s.orphans, s.orphansErr
}

type stubMarket struct {
	snap *domain.MarketSnapshot
	err  error
}

func (s *stubMarket) Quote(ctx context.Context, date time.Time) (*domain.MarketSnapshot, error) {
	return s.snap, s.err
}

type stubNews struct {
	company []*domain.Article
	macro   []*domain.Article
}

func (s *stubNews) CollectCompany(ctx context.Context, date time.Time) []*domain.Article {
	return s.company
}

func (s *stubNews) CollectMacro(ctx context.Context, date time.Time) []*domain.Article {
	return s.macro
}

type stubAggregator struct {
	snap     *domain.SentimentSnapshot
	err      error
	company  []*domain.Article
	macro    []*domain.Article
	analyzed bool
}

func (s *stubAggregator) Analyze(ctx context.Context, company, macro []*domain.Article) (*domain.SentimentSnapshot, error) {
	s.analyzed = true
	s.company = company
	s.macro = macro
	return s.snap, s.err
}

type sentimentWrite struct {
	date                     time.Time
	company, macro, combined float64
}

type stubDays struct {
	stored      map[string]*domain.TradingDayRecord
	prev        *domain.TradingDayRecord
	upserts     []*domain.MarketSnapshot
	sentiments  []sentimentWrite
	backfills   []time.Time
	predictions []domain.Direction
	avgVolume   float64
}

func (s *stubDays) key(date time.Time) string {
	return domain.NormalizeDate(date).Format(domain.DateLayout)
}

func (s *stubDays) GetDay(ctx context.Context, date time.Time) (*domain.TradingDayRecord, error) {
	if d, ok := s.stored[s.key(date)]; ok {
		return d, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubDays) UpsertTradingDay(ctx context.Context, snap *domain.MarketSnapshot) error {
	s.upserts = append(s.upserts, snap)
	if s.stored == nil {
		s.stored = map[string]*domain.TradingDayRecord{}
	}
	s.stored[s.key(snap.Date)] = &domain.TradingDayRecord{
		Date: snap.Date, Open: snap.Open, Close: snap.Close, Volume: snap.Volume,
	}
	return nil
}

func (s *stubDays) UpdateSentiment(ctx context.Context, date time.Time, company, macro, combined float64) error {
	s.sentiments = append(s.sentiments, sentimentWrite{date, company, macro, combined})
	return nil
}

func (s *stubDays) BackfillNextDayClose(ctx context.Context, prevDate time.Time, todayClose float64) error {
	s.backfills = append(s.backfills, prevDate)
	return nil
}

func (s *stubDays) GetPreviousDay(ctx context.Context, date time.Time) (*domain.TradingDayRecord, error) {
	if s.prev == nil {
		return nil, repository.ErrNotFound
	}
	return s.prev, nil
}

func (s *stubDays) SavePrediction(ctx context.Context, date time.Time, label domain.Direction) error {
	s.predictions = append(s.predictions, label)
	return nil
}

func (s *stubDays) AverageVolume(ctx context.Context, date time.Time, n int) (float64, error) {
	return s.avgVolume, nil
}

type stubArticles struct {
	inserted []*domain.Article
	err      error
}

func (s *stubArticles) InsertArticle(ctx context.Context, a *domain.Article) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.inserted = append(s.inserted, a)
	return true, nil
}

type stubPredictor struct {
	result *ml.PredictionResult
	err    error
}

func (s *stubPredictor) Predict(ctx context.Context, day *domain.TradingDayRecord, avgVolume float64) (*ml.PredictionResult, error) {
	return s.result, s.err
}

var testTarget = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

func happyPathFixtures() (*stubAttribution, *stubMarket, *stubNews, *stubAggregator, *stubDays, *stubArticles, *stubPredictor) {
	attribution := &stubAttribution{target: testTarget}
	market := &stubMarket{snap: &domain.MarketSnapshot{Date: testTarget, Open: 100, Close: 104, Volume: 1000}}
	news := &stubNews{
		company: []*domain.Article{{URL: "https://r.com/1", Type: domain.ArticleTypeCompany}},
		macro:   []*domain.Article{{URL: "https://b.com/2", Type: domain.ArticleTypeMacro}},
	}
	aggregator := &stubAggregator{snap: &domain.SentimentSnapshot{
		CompanyScore: 50, MacroScore: -10, CombinedScore: 26,
		CombinedConfidence: domain.ConfidenceMedium,
	}}
	days := &stubDays{prev: &domain.TradingDayRecord{Date: testTarget.AddDate(0, 0, -1)}, avgVolume: 900}
	articles := &stubArticles{}
	predictor := &stubPredictor{result: &ml.PredictionResult{
		Direction: domain.DirectionUp, ProbabilityUp: 0.7, ProbabilityDown: 0.3, Confidence: 0.7,
	}}
	return attribution, market, news, aggregator, days, articles, predictor
}

func newTestOrchestrator(a *stubAttribution, m *stubMarket, n *stubNews, ag *stubAggregator, d *stubDays, ar *stubArticles, p *stubPredictor) *Orchestrator {
	return NewOrchestrator(a, m, n, ag, d, ar, p, trace.NewNoopTracerProvider().Tracer("test"))
}

func TestRunHappyPath(t *testing.T) {
	attribution, market, news, aggregator, days, articles, predictor := happyPathFixtures()
	o := newTestOrchestrator(attribution, market, news, aggregator, days, articles, predictor)

	result := o.Run(context.Background(), testTarget, false)
	if !result.Success {
		t.Fatalf("expected success, errors: %v", result.Errors)
	}
	if !result.Date.Equal(testTarget) {
		t.Fatalf("unexpected target: %v", result.Date)
	}
	if !result.MarketDataSaved || len(days.upserts) != 1 {
		t.Fatal("expected market data saved")
	}
	if len(days.backfills) != 1 || !days.backfills[0].Equal(days.prev.Date) {
		t.Fatalf("expected backfill of previous day, got %v", days.backfills)
	}
	if !result.SentimentUpdated || len(days.sentiments) != 1 {
		t.Fatal("expected sentiment update")
	}
	if got := days.sentiments[0]; got.company != 50 || got.macro != -10 || got.combined != 26 {
		t.Fatalf("unexpected sentiment write: %+v", got)
	}
	if result.ArticlesSaved != 2 || len(articles.inserted) != 2 {
		t.Fatalf("expected 2 saved articles, got %d", result.ArticlesSaved)
	}
	if len(days.predictions) != 1 || days.predictions[0] != domain.DirectionUp {
		t.Fatalf("expected UP prediction saved, got %v", days.predictions)
	}
}

func TestRunCalendarFailureIsFatal(t *testing.T) {
	attribution, market, news, aggregator, days, articles, predictor := happyPathFixtures()
	attribution.targetErr = errors.New("no market data")
	o := newTestOrchestrator(attribution, market, news, aggregator, days, articles, predictor)

	result := o.Run(context.Background(), testTarget, false)
	if result.Success {
		t.Fatal("expected failure")
	}
	if len(days.upserts) != 0 || aggregator.analyzed {
		t.Fatal("no stage should run after calendar failure")
	}
}

func TestRunSkipsExistingMarketData(t *testing.T) {
	attribution, market, news, aggregator, days, articles, predictor := happyPathFixtures()
	days.stored = map[string]*domain.TradingDayRecord{
		days.key(testTarget): {Date: testTarget, Close: 104, Volume: 1000},
	}
	o := newTestOrchestrator(attribution, market, news, aggregator, days, articles, predictor)

	result := o.Run(context.Background(), testTarget, false)
	if !result.MarketDataExisted {
		t.Fatal("expected existing-data skip")
	}
	if len(days.upserts) != 0 || len(days.backfills) != 0 {
		t.Fatal("existing data must not be rewritten or backfilled")
	}
}

func TestRunEmptyArticlesSkipsSentiment(t *testing.T) {
	attribution, market, _, aggregator, days, articles, predictor := happyPathFixtures()
	news := &stubNews{}
	o := newTestOrchestrator(attribution, market, news, aggregator, days, articles, predictor)

	result := o.Run(context.Background(), testTarget, false)
	if !result.Success {
		t.Fatalf("empty articles must not fail the run: %v", result.Errors)
	}
	if aggregator.analyzed {
		t.Fatal("no analysis should run without articles")
	}
	if len(days.sentiments) != 0 {
		t.Fatal("no sentiment write without articles")
	}
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "no articles") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected warning recorded, got %v", result.Errors)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	attribution, market, news, aggregator, days, articles, predictor := happyPathFixtures()
	o := newTestOrchestrator(attribution, market, news, aggregator, days, articles, predictor)

	result := o.Run(context.Background(), testTarget, true)
	if !result.Success {
		t.Fatalf("expected success: %v", result.Errors)
	}
	if len(days.upserts) != 0 || len(days.sentiments) != 0 || len(days.backfills) != 0 || len(days.predictions) != 0 {
		t.Fatal("dry run must not write the day store")
	}
	if len(articles.inserted) != 0 {
		t.Fatal("dry run must not write articles")
	}
	if result.Sentiment == nil {
		t.Fatal("dry run still reports computed sentiment")
	}
}

func TestRunPredictionFailureDegrades(t *testing.T) {
	attribution, market, news, aggregator, days, articles, predictor := happyPathFixtures()
	predictor.result = nil
	predictor.err = ml.ErrNotTrained
	o := newTestOrchestrator(attribution, market, news, aggregator, days, articles, predictor)

	result := o.Run(context.Background(), testTarget, false)
	if !result.Success {
		t.Fatalf("prediction failure must not fail the run: %v", result.Errors)
	}
	if result.Prediction != nil {
		t.Fatal("no prediction expected")
	}
	if result.PredictionMessage == "" {
		t.Fatal("expected prediction message")
	}
	if len(days.predictions) != 0 {
		t.Fatal("no prediction saved on failure")
	}
}

func TestRunOrphansFoldIntoAnalysis(t *testing.T) {
	attribution, market, news, aggregator, days, articles, predictor := happyPathFixtures()
	attribution.orphans = []*domain.Article{
		{URL: "https://old.com/1", Type: domain.ArticleTypeCompany},
		{URL: "https://old.com/2", Type: domain.ArticleTypeMacro},
	}
	o := newTestOrchestrator(attribution, market, news, aggregator, days, articles, predictor)

	result := o.Run(context.Background(), testTarget, false)
	if !result.Success {
		t.Fatalf("unexpected failure: %v", result.Errors)
	}
	if len(aggregator.company) != 2 || len(aggregator.macro) != 2 {
		t.Fatalf("orphans should join analysis, got %d company %d macro",
			len(aggregator.company), len(aggregator.macro))
	}
	// Orphans are re-attributed to the target day when saved.
	for _, a := range articles.inserted {
		if !a.Date.Equal(testTarget) {
			t.Fatalf("expected article date %v, got %v", testTarget, a.Date)
		}
	}
}

func TestFormatReport(t *testing.T) {
	attribution, market, news, aggregator, days, articles, predictor := happyPathFixtures()
	o := newTestOrchestrator(attribution, market, news, aggregator, days, articles, predictor)
	result := o.Run(context.Background(), testTarget, false)

	report := FormatReport("NVDA", result)
	for _, want := range []string{"Daily report for NVDA", "2026-08-28", "Sentiment: 26.00", "UP", "Run completed."} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}
