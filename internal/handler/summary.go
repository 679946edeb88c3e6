package handler

import (
	"errors"
	"net/http"

	"daily-alpha/internal/domain"
	"daily-alpha/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetSummary returns the dataset size, the latest stored trading day and
// the model status in one payload.
func (h *Handler) GetSummary(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-summary")
	defer span.End()

	count, err := h.days.CountDays(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"symbol":       h.symbol,
		"day_count":    count,
		"model_status": h.model.Status(),
	}

	latest, err := h.days.GetLatestDay(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		resp["latest_day"] = nil
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	default:
		resp["latest_day"] = latest.Date.Format(domain.DateLayout)
	}

	c.JSON(http.StatusOK, resp)
}
