package domain

import "time"

// DateLayout is the canonical wire/storage format for trading dates.
const DateLayout = "2006-01-02"

// SentimentScale bounds every sentiment score in the system.
const (
	SentimentMin = -100.0
	SentimentMax = 100.0
)

type ArticleType string

const (
	ArticleTypeCompany ArticleType = "company"
	ArticleTypeMacro   ArticleType = "macro"
)

type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// CombineConfidence merges the company and macro confidence levels:
// both High stays High, both Low stays Low, everything else is Medium.
func CombineConfidence(company, macro Confidence) Confidence {
	if company == ConfidenceHigh && macro == ConfidenceHigh {
		return ConfidenceHigh
	}
	if company == ConfidenceLow && macro == ConfidenceLow {
		return ConfidenceLow
	}
	return ConfidenceMedium
}

type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// MarketSnapshot is a single trading day's quote plus indicators, as
// returned by the market-data provider. Indicator pointers are nil when
// the trailing window is too short to compute them.
type MarketSnapshot struct {
	Date       time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	RSI        *float64
	MACD       *float64
	MACDSignal *float64
	SMA50      *float64
	SMA200     *float64
}

// TradingDayRecord is one row of the trading_days table. Sentiment,
// backfill and prediction fields stay nil until their cycle writes them.
type TradingDayRecord struct {
	Date               time.Time
	Open               float64
	High               float64
	Low                float64
	Close              float64
	Volume             int64
	RSI                *float64
	MACD               *float64
	MACDSignal         *float64
	SMA50              *float64
	SMA200             *float64
	CompanySentiment   *float64
	MacroSentiment     *float64
	CombinedSentiment  *float64
	NextDayClose       *float64
	PriceChangePercent *float64
	Prediction         *Direction
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Article is a collected news item attributed to a trading day.
// Immutable once stored; (Date, URL) is unique.
type Article struct {
	ID        int64
	Date      time.Time
	URL       string
	Source    string
	Title     string
	Summary   string
	Type      ArticleType
	Tier      int
	CreatedAt time.Time
}

// ArticleScore is one article's score extracted from an analysis response.
type ArticleScore struct {
	Index int
	Score float64
}

// SentimentSnapshot is the ephemeral result of one aggregation cycle.
// It is consumed immediately to update a TradingDayRecord and never
// persisted as its own entity.
type SentimentSnapshot struct {
	CompanyScore       float64
	CompanyConfidence  Confidence
	CompanyFactors     string
	CompanyScores      []ArticleScore
	MacroScore         float64
	MacroConfidence    Confidence
	MacroFactors       string
	MacroScores        []ArticleScore
	CombinedScore      float64
	CombinedConfidence Confidence
	CompanyArticles    int
	MacroArticles      int
}

// PredictionOutcome pairs a stored prediction with its realized result.
type PredictionOutcome struct {
	Date         time.Time
	Prediction   Direction
	Close        float64
	NextDayClose float64
	Actual       Direction
}

// NormalizeDate truncates a timestamp to its UTC calendar date.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two timestamps fall on the same UTC calendar day.
func SameDate(a, b time.Time) bool {
	return NormalizeDate(a).Equal(NormalizeDate(b))
}

func Float64Ptr(v float64) *float64 { return &v }
