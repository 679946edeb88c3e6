package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"daily-alpha/internal/attribution"
	"daily-alpha/internal/bot"
	"daily-alpha/internal/cache"
	"daily-alpha/internal/calendar"
	"daily-alpha/internal/config"
	"daily-alpha/internal/db"
	"daily-alpha/internal/handler"
	"daily-alpha/internal/job"
	"daily-alpha/internal/ml"
	"daily-alpha/internal/news"
	"daily-alpha/internal/provider"
	"daily-alpha/internal/repository"
	"daily-alpha/internal/sentiment"
	"daily-alpha/internal/workflow"
	"daily-alpha/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var (
	loadEnvFunc     = godotenv.Load
	loadConfigFunc  = config.Load
	initTracerFunc  = tracing.InitTracer
	connectDBFunc   = db.Connect
	connectRedis    = cache.NewClient
	newNotifierFunc = bot.NewNotifier
	startJobFunc    = func(j *job.DailyJob, ctx context.Context) { go j.Start(ctx) }
	newRouterFunc   = gin.Default
	setupSignal     = signal.Notify
	waitForSignal   = func(quit <-chan os.Signal) { <-quit }
	startHTTPServer = func(srv *http.Server) error { return srv.ListenAndServe() }
	stopHTTPServer  = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	closePoolFunc   = func(pool *pgxpool.Pool) { pool.Close() }
)

func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	pool, err := connectDBFunc(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	defer closePoolFunc(pool)

	dayRepo := repository.NewTradingDayRepository(pool, tracer)
	articleRepo := repository.NewArticleRepository(pool, tracer)

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
	pipeline := ml.NewPipeline(cfg.ModelPath, cfg.MinTrainSamples, dayRepo, tracer)

	notifier, err := newNotifierFunc(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.StockSymbol, dayRepo, pipeline)
	if err != nil {
		log.Printf("Telegram setup failed, report delivery disabled: %v", err)
		notifier = nil
	}
	if notifier != nil {
		notifier.Start()
	}

	// The daily workflow needs the full credential set; the read-only API
	// does not. Missing keys disable the job, not the server.
	if err := cfg.Validate(); err != nil {
		log.Printf("daily workflow disabled: %v", err)
	} else {
		resolver := calendar.NewResolver(marketData, tracer)
		engine := attribution.NewEngine(resolver, dayRepo, articleRepo, marketData, tracer)
		searcher := provider.NewSerperProvider(cfg.SerperAPIKey, time.Duration(cfg.SearchTimeoutSecs)*time.Second, tracer)
		keywords := news.CompanyKeywords(cfg.StockName, cfg.StockSymbol, news.DefaultNvidiaExtras...)
		collector := news.NewCollector(searcher, cfg.StockName, cfg.StockSymbol, keywords, cfg.MaxArticles, tracer)
		analyzer := sentiment.NewAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.StockName, cfg.StockSymbol, tracer)

		orch := workflow.NewOrchestrator(engine, marketData, collector, analyzer, dayRepo, articleRepo, pipeline, tracer)

		var sender job.ReportSender
		if notifier != nil {
			sender = notifier
		}
		dailyJob := job.NewDailyJob(tracer, orch, sender, cfg.StockSymbol, cfg.RunHourUTC)
		startJobFunc(dailyJob, ctx)
	}

	h := handler.New(tracer, cfg.StockSymbol, dayRepo, articleRepo, pipeline)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("daily-alpha"))
	h.RegisterRoutes(r, cfg.APIKey)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServer(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignal(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignal(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := stopHTTPServer(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
