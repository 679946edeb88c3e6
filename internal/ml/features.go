package ml

import (
	"daily-alpha/internal/domain"
)

// FeatureNames is the fixed feature order every sample follows.
var FeatureNames = []string{
	"sentiment_score",
	"company_sentiment",
	"macro_sentiment",
	"rsi",
	"macd",
	"price_change_percent",
	"volume_ratio",
}

const (
	defaultRSI = 50.0
)

// FeatureVector builds one sample from a day's record. avgVolume is the
// reference volume for the ratio; zero falls back to the day's own volume.
func FeatureVector(day *domain.TradingDayRecord, avgVolume float64) []float64 {
	priceChange := 0.0
	if day.Open > 0 {
		priceChange = (day.Close - day.Open) / day.Open * 100
	}

	volumeRatio := 1.0
	if avgVolume > 0 {
		volumeRatio = float64(day.Volume) / avgVolume
	}

	return []float64{
		floatOrZero(day.CombinedSentiment),
		floatOrZero(day.CompanySentiment),
		floatOrZero(day.MacroSentiment),
		floatOr(day.RSI, defaultRSI),
		floatOrZero(day.MACD),
		priceChange,
		volumeRatio,
	}
}

// PrepareDataset turns stored days into (samples, labels). Rows without a
// resolved next-day close carry no label and are skipped. The label is 1
// exactly when the next session closed higher.
func PrepareDataset(days []*domain.TradingDayRecord) ([][]float64, []float64) {
	var totalVolume float64
	for _, d := range days {
		totalVolume += float64(d.Volume)
	}
	avgVolume := 0.0
	if len(days) > 0 {
		avgVolume = totalVolume / float64(len(days))
	}

	var samples [][]float64
	var labels []float64
	for _, d := range days {
		if d.NextDayClose == nil {
			continue
		}
		label := 0.0
		if *d.NextDayClose > d.Close {
			label = 1.0
		}
		samples = append(samples, FeatureVector(d, avgVolume))
		labels = append(labels, label)
	}
	return samples, labels
}

func floatOrZero(p *float64) float64 {
	return floatOr(p, 0)
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
