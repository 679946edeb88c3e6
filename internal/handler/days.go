package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"daily-alpha/internal/domain"
	"daily-alpha/internal/repository"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type dayResponse struct {
	Date               string            `json:"date"`
	Open               float64           `json:"open"`
	High               float64           `json:"high"`
	Low                float64           `json:"low"`
	Close              float64           `json:"close"`
	Volume             int64             `json:"volume"`
	RSI                *float64          `json:"rsi,omitempty"`
	MACD               *float64          `json:"macd,omitempty"`
	MACDSignal         *float64          `json:"macd_signal,omitempty"`
	SMA50              *float64          `json:"sma_50,omitempty"`
	SMA200             *float64          `json:"sma_200,omitempty"`
	CompanySentiment   *float64          `json:"company_sentiment,omitempty"`
	MacroSentiment     *float64          `json:"macro_sentiment,omitempty"`
	CombinedSentiment  *float64          `json:"combined_sentiment,omitempty"`
	NextDayClose       *float64          `json:"next_day_close,omitempty"`
	PriceChangePercent *float64          `json:"price_change_percent,omitempty"`
	Prediction         *domain.Direction `json:"prediction,omitempty"`
}

func toDayResponse(d *domain.TradingDayRecord) dayResponse {
	return dayResponse{
		Date:               d.Date.Format(domain.DateLayout),
		Open:               d.Open,
		High:               d.High,
		Low:                d.Low,
		Close:              d.Close,
		Volume:             d.Volume,
		RSI:                d.RSI,
		MACD:               d.MACD,
		MACDSignal:         d.MACDSignal,
		SMA50:              d.SMA50,
		SMA200:             d.SMA200,
		CompanySentiment:   d.CompanySentiment,
		MacroSentiment:     d.MacroSentiment,
		CombinedSentiment:  d.CombinedSentiment,
		NextDayClose:       d.NextDayClose,
		PriceChangePercent: d.PriceChangePercent,
		Prediction:         d.Prediction,
	}
}

type articleResponse struct {
	Date   string `json:"date"`
	URL    string `json:"url"`
	Source string `json:"source"`
	Title  string `json:"title"`
	Type   string `json:"type"`
	Tier   int    `json:"tier"`
}

// ListDays returns the most recent trading day records, newest first.
func (h *Handler) ListDays(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-days")
	defer span.End()

	limit := 30
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 365 {
			limit = n
		}
	}

	days, err := h.days.ListRecent(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]dayResponse, 0, len(days))
	for _, d := range days {
		out = append(out, toDayResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"symbol": h.symbol, "days": out})
}

// GetDay returns a single trading day record by date.
func (h *Handler) GetDay(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-day")
	defer span.End()

	date, ok := h.parseDate(c, span)
	if !ok {
		return
	}

	day, err := h.days.GetDay(ctx, date)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no record for " + date.Format(domain.DateLayout)})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toDayResponse(day))
}

// GetDayArticles returns the collected articles attributed to a date.
func (h *Handler) GetDayArticles(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-day-articles")
	defer span.End()

	date, ok := h.parseDate(c, span)
	if !ok {
		return
	}

	articles, err := h.articles.ListForDate(ctx, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		out = append(out, articleResponse{
			Date:   a.Date.Format(domain.DateLayout),
			URL:    a.URL,
			Source: a.Source,
			Title:  a.Title,
			Type:   string(a.Type),
			Tier:   a.Tier,
		})
	}
	c.JSON(http.StatusOK, gin.H{"date": date.Format(domain.DateLayout), "articles": out})
}

func (h *Handler) parseDate(c *gin.Context, span trace.Span) (time.Time, bool) {
	raw := c.Param("date")
	date, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date: " + raw + " (want YYYY-MM-DD)"})
		return time.Time{}, false
	}
	span.SetAttributes(attribute.String("date", raw))
	return domain.NormalizeDate(date), true
}
