package job

import (
	"testing"
	"time"
)

func TestNextRunUTCBeforeHour(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	next := nextRunUTC(now, 22)
	want := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextRunUTCAfterHourRollsToTomorrow(t *testing.T) {
	now := time.Date(2026, 3, 10, 22, 15, 0, 0, time.UTC)
	next := nextRunUTC(now, 22)
	want := time.Date(2026, 3, 11, 22, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextRunUTCExactlyAtHour(t *testing.T) {
	now := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	next := nextRunUTC(now, 22)
	want := time.Date(2026, 3, 11, 22, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNewDailyJobClampsInvalidHour(t *testing.T) {
	j := NewDailyJob(nil, nil, nil, "NVDA", 99)
	if j.runHour != 22 {
		t.Fatalf("expected default hour 22, got %d", j.runHour)
	}
	j = NewDailyJob(nil, nil, nil, "NVDA", -3)
	if j.runHour != 22 {
		t.Fatalf("expected default hour 22, got %d", j.runHour)
	}
}
