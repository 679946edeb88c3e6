package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"daily-alpha/internal/attribution"
	"daily-alpha/internal/bot"
	"daily-alpha/internal/cache"
	"daily-alpha/internal/calendar"
	"daily-alpha/internal/config"
	"daily-alpha/internal/db"
	"daily-alpha/internal/domain"
	"daily-alpha/internal/ml"
	"daily-alpha/internal/news"
	"daily-alpha/internal/provider"
	"daily-alpha/internal/repository"
	"daily-alpha/internal/sentiment"
	"daily-alpha/internal/workflow"
	"daily-alpha/pkg/tracing"

	"github.com/joho/godotenv"
)

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	initTracerFunc = tracing.InitTracer
	connectDBFunc  = db.Connect
	connectRedis   = cache.NewClient
	exitFunc       = os.Exit
	stdout         = os.Stdout
)

func main() {
	dateFlag := flag.String("date", "", "collection date (YYYY-MM-DD, default today UTC)")
	dryRun := flag.Bool("dry-run", false, "run the full cycle without writing to the store")
	info := flag.Bool("info", false, "print model status and dataset summary, then exit")
	flag.Parse()

	exitFunc(run(*dateFlag, *dryRun, *info))
}

func run(dateArg string, dryRun, info bool) int {
	loadEnvFunc()

	cfg := loadConfigFunc()
	if err := cfg.Validate(); err != nil {
		log.Printf("configuration error: %v", err)
		return 2
	}

	var collectionDate time.Time
	if dateArg != "" {
		parsed, err := time.Parse(domain.DateLayout, dateArg)
		if err != nil {
			log.Printf("invalid -date %q: %v", dateArg, err)
			return 2
		}
		collectionDate = domain.NormalizeDate(parsed)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Printf("failed to initialize tracer: %v", err)
		return 1
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	pool, err := connectDBFunc(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("failed to connect to Postgres: %v", err)
		return 1
	}
	defer pool.Close()

	dayRepo := repository.NewTradingDayRepository(pool, tracer)
	articleRepo := repository.NewArticleRepository(pool, tracer)
	pipeline := ml.NewPipeline(cfg.ModelPath, cfg.MinTrainSamples, dayRepo, tracer)

	if info {
		return printInfo(ctx, cfg.StockSymbol, dayRepo, articleRepo, pipeline, cfg.EvalWindowDays)
	}

	var quoteCache provider.QuoteCache
	if cfg.RedisURL != "" {
		rdb, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("Redis unavailable, quote caching disabled: %v", err)
		} else {
			quoteCache = cache.NewQuoteCache(rdb)
		}
	}

	marketData := provider.NewMarketDataProvider(cfg.StockSymbol, quoteCache, tracer)
	resolver := calendar.NewResolver(marketData, tracer)
	engine := attribution.NewEngine(resolver, dayRepo, articleRepo, marketData, tracer)
	searcher := provider.NewSerperProvider(cfg.SerperAPIKey, time.Duration(cfg.SearchTimeoutSecs)*time.Second, tracer)
	keywords := news.CompanyKeywords(cfg.StockName, cfg.StockSymbol, news.DefaultNvidiaExtras...)
	collector := news.NewCollector(searcher, cfg.StockName, cfg.StockSymbol, keywords, cfg.MaxArticles, tracer)
	analyzer := sentiment.NewAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.StockName, cfg.StockSymbol, tracer)

	orch := workflow.NewOrchestrator(engine, marketData, collector, analyzer, dayRepo, articleRepo, pipeline, tracer)

	result := orch.Run(ctx, collectionDate, dryRun)
	report := workflow.FormatReport(cfg.StockSymbol, result)
	fmt.Fprintln(stdout, report)

	if !dryRun {
		deliverReport(ctx, cfg, dayRepo, pipeline, report)
	}

	if !result.Success {
		return 1
	}
	return 0
}

func printInfo(ctx context.Context, symbol string, days *repository.TradingDayRepository, articles *repository.ArticleRepository, pipeline *ml.Pipeline, evalWindow int) int {
	count, err := days.CountDays(ctx)
	if err != nil {
		log.Printf("failed to count trading days: %v", err)
		return 1
	}

	fmt.Fprintf(stdout, "Symbol: %s\n", symbol)
	fmt.Fprintf(stdout, "Stored trading days: %d\n", count)

	if n, err := articles.Count(ctx); err == nil {
		fmt.Fprintf(stdout, "Stored articles: %d\n", n)
	} else {
		log.Printf("failed to count articles: %v", err)
	}

	latest, err := days.GetLatestDay(ctx)
	switch {
	case err == nil:
		fmt.Fprintf(stdout, "Latest trading day: %s\n", latest.Date.Format(domain.DateLayout))
	case errors.Is(err, repository.ErrNotFound):
		fmt.Fprintln(stdout, "Latest trading day: none")
	default:
		log.Printf("failed to load latest day: %v", err)
		return 1
	}

	s := pipeline.Status()
	fmt.Fprintf(stdout, "Model trained: %v\n", s.IsTrained)
	fmt.Fprintf(stdout, "Training samples: %d (min %d)\n", s.TrainingSamples, s.MinRequired)
	if s.IsTrained {
		fmt.Fprintf(stdout, "CV accuracy: %.1f%%\n", s.Accuracy*100)
	}

	outcomes, err := days.PredictionsWithOutcomes(ctx, evalWindow)
	if err != nil {
		log.Printf("failed to load prediction outcomes: %v", err)
		return 1
	}
	eval := pipeline.Evaluate(outcomes)
	if eval.Evaluated > 0 {
		fmt.Fprintf(stdout, "Realized accuracy (last %d): %.1f%% (%d/%d)\n",
			evalWindow, eval.Accuracy*100, eval.Correct, eval.Evaluated)
	}
	return 0
}

func deliverReport(ctx context.Context, cfg *config.Config, days bot.DayReader, pipeline *ml.Pipeline, report string) {
	notifier, err := bot.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.StockSymbol, days, pipeline)
	if err != nil {
		log.Printf("Telegram setup failed, report not delivered: %v", err)
		return
	}
	if notifier == nil {
		return
	}
	if err := notifier.SendReport(ctx, report); err != nil {
		log.Printf("report delivery failed: %v", err)
	}
}
