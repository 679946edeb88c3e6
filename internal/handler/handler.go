package handler

import (
	"context"
	"time"

	"daily-alpha/internal/domain"
	"daily-alpha/internal/ml"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type DayReader interface {
	GetDay(ctx context.Context, date time.Time) (*domain.TradingDayRecord, error)
	GetLatestDay(ctx context.Context) (*domain.TradingDayRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.TradingDayRecord, error)
	CountDays(ctx context.Context) (int, error)
	PredictionsWithOutcomes(ctx context.Context, limit int) ([]*domain.PredictionOutcome, error)
}

type ArticleReader interface {
	ListForDate(ctx context.Context, date time.Time) ([]*domain.Article, error)
}

type ModelService interface {
	Status() *ml.Status
	Evaluate(outcomes []*domain.PredictionOutcome) *ml.EvaluationResult
}

type Handler struct {
	tracer   trace.Tracer
	symbol   string
	days     DayReader
	articles ArticleReader
	model    ModelService
}

func New(tracer trace.Tracer, symbol string, days DayReader, articles ArticleReader, model ModelService) *Handler {
	return &Handler{
		tracer:   tracer,
		symbol:   symbol,
		days:     days,
		articles: articles,
		model:    model,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/days", h.ListDays)
	api.GET("/days/:date", h.GetDay)
	api.GET("/days/:date/articles", h.GetDayArticles)
	api.GET("/predictions", h.GetPredictions)
	api.GET("/summary", h.GetSummary)
}
