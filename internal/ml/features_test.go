package ml

import (
	"testing"

	"daily-alpha/internal/domain"
)

func TestFeatureVectorDefaults(t *testing.T) {
	day := &domain.TradingDayRecord{
		Open:   100,
		Close:  102,
		Volume: 2000,
	}
	v := FeatureVector(day, 1000)
	if len(v) != len(FeatureNames) {
		t.Fatalf("expected %d features, got %d", len(FeatureNames), len(v))
	}
	if v[0] != 0 || v[1] != 0 || v[2] != 0 {
		t.Fatalf("missing sentiment should default to 0, got %v", v[:3])
	}
	if v[3] != 50 {
		t.Fatalf("missing RSI should default to 50, got %f", v[3])
	}
	if v[4] != 0 {
		t.Fatalf("missing MACD should default to 0, got %f", v[4])
	}
	if v[5] != 2 {
		t.Fatalf("expected intraday change 2%%, got %f", v[5])
	}
	if v[6] != 2 {
		t.Fatalf("expected volume ratio 2, got %f", v[6])
	}
}

func TestFeatureVectorZeroAvgVolume(t *testing.T) {
	day := &domain.TradingDayRecord{Open: 100, Close: 100, Volume: 500}
	v := FeatureVector(day, 0)
	if v[6] != 1 {
		t.Fatalf("expected ratio fallback 1, got %f", v[6])
	}
}

func TestPrepareDatasetSkipsUnlabeled(t *testing.T) {
	days := []*domain.TradingDayRecord{
		{Open: 100, Close: 102, Volume: 1000, NextDayClose: domain.Float64Ptr(105)},
		{Open: 102, Close: 101, Volume: 1000},
		{Open: 101, Close: 103, Volume: 1000, NextDayClose: domain.Float64Ptr(100)},
	}
	samples, labels := PrepareDataset(days)
	if len(samples) != 2 || len(labels) != 2 {
		t.Fatalf("expected 2 labeled rows, got %d", len(samples))
	}
	if labels[0] != 1 {
		t.Fatalf("105 > 102 should label 1, got %f", labels[0])
	}
	if labels[1] != 0 {
		t.Fatalf("100 < 103 should label 0, got %f", labels[1])
	}
}

func TestPrepareDatasetEmpty(t *testing.T) {
	samples, labels := PrepareDataset(nil)
	if samples != nil || labels != nil {
		t.Fatalf("expected empty dataset, got %d samples", len(samples))
	}
}
