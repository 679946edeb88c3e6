package handler

import (
	"net/http"
	"strconv"

	"daily-alpha/internal/domain"

	"github.com/gin-gonic/gin"
)

type outcomeResponse struct {
	Date         string           `json:"date"`
	Prediction   domain.Direction `json:"prediction"`
	Actual       domain.Direction `json:"actual"`
	Close        float64          `json:"close"`
	NextDayClose float64          `json:"next_day_close"`
	Correct      bool             `json:"correct"`
}

// GetPredictions returns stored predictions paired with realized outcomes,
// plus the running accuracy over the returned window.
func (h *Handler) GetPredictions(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-predictions")
	defer span.End()

	limit := 100
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	outcomes, err := h.days.PredictionsWithOutcomes(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	eval := h.model.Evaluate(outcomes)
	out := make([]outcomeResponse, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, outcomeResponse{
			Date:         o.Date.Format(domain.DateLayout),
			Prediction:   o.Prediction,
			Actual:       o.Actual,
			Close:        o.Close,
			NextDayClose: o.NextDayClose,
			Correct:      o.Prediction == o.Actual,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":      h.symbol,
		"evaluation":  eval,
		"predictions": out,
	})
}
