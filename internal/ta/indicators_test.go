package ta

import (
	"math"
	"testing"
)

func TestSMASeries(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := SMASeries(values, 3)
	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Fatalf("expected NaN before window fills, got %v", out[:2])
	}
	if out[2] != 2 || out[3] != 3 || out[4] != 4 {
		t.Fatalf("unexpected SMA values: %v", out)
	}
}

func TestRSISeriesAllGains(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	out := RSISeries(closes, 14)
	if out == nil {
		t.Fatalf("expected series")
	}
	last := out[len(out)-1]
	if last != 100 {
		t.Fatalf("monotonic gains should give RSI 100, got %f", last)
	}
}

func TestRSISeriesTooShort(t *testing.T) {
	if out := RSISeries([]float64{1, 2, 3}, 14); out != nil {
		t.Fatalf("expected nil for short input, got %v", out)
	}
}

func TestMACDSeriesFlat(t *testing.T) {
	values := []float64{5, 5, 5, 5, 5, 5}
	macd, signal := MACDSeries(values, 2, 4, 3)
	for i := range macd {
		if math.Abs(macd[i]) > 1e-9 || math.Abs(signal[i]) > 1e-9 {
			t.Fatalf("flat series should give zero MACD, got %v %v", macd, signal)
		}
	}
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 {
		t.Fatalf("expected mean 5, got %f", mean)
	}
	if math.Abs(std-2) > 1e-9 {
		t.Fatalf("expected std 2, got %f", std)
	}
}
