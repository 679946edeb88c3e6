package repository

import (
	"context"
	"testing"
	"time"

	"daily-alpha/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

type stubRow struct {
	values []any
	err    error
}

func (r *stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.values) {
			break
		}
		switch out := d.(type) {
		case *time.Time:
			*out = r.values[i].(time.Time)
		case *float64:
			*out = r.values[i].(float64)
		case *int64:
			*out = r.values[i].(int64)
		case **float64:
			if v, ok := r.values[i].(float64); ok {
				*out = &v
			}
		case **string:
			if v, ok := r.values[i].(string); ok {
				*out = &v
			}
		}
	}
	return nil
}

type stubTx struct {
	pgx.Tx
	prevClose   float64
	prevMissing bool
	execSQL     string
	execArgs    []any
	committed   bool
	rolledBack  bool
}

func (tx *stubTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	if tx.prevMissing {
		return &stubRow{err: pgx.ErrNoRows}
	}
	return &stubRow{values: []any{tx.prevClose}}
}

func (tx *stubTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.execSQL = sql
	tx.execArgs = args
	return pgconn.CommandTag{}, nil
}

func (tx *stubTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *stubTx) Rollback(context.Context) error {
	tx.rolledBack = true
	return nil
}

type stubBeginPool struct {
	PgxPool
	tx *stubTx
}

func (p *stubBeginPool) Begin(context.Context) (pgx.Tx, error) {
	return p.tx, nil
}

func TestBackfillNextDayClose(t *testing.T) {
	tx := &stubTx{prevClose: 150.0}
	repo := NewTradingDayRepository(&stubBeginPool{tx: tx}, trace.NewNoopTracerProvider().Tracer("test"))

	prev := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	if err := repo.BackfillNextDayClose(context.Background(), prev, 153.0); err != nil {
		t.Fatalf("backfill failed: %v", err)
	}

	if !tx.committed {
		t.Fatal("expected the transaction to commit")
	}
	if len(tx.execArgs) != 3 {
		t.Fatalf("expected 3 update args, got %v", tx.execArgs)
	}
	if got := tx.execArgs[1].(float64); got != 153.0 {
		t.Fatalf("expected next_day_close 153.0, got %v", got)
	}
	if got := tx.execArgs[2].(float64); got != 2.0 {
		t.Fatalf("expected price change +2.00, got %v", got)
	}
}

func TestBackfillNextDayCloseMissingPrevIsNoOp(t *testing.T) {
	tx := &stubTx{prevMissing: true}
	repo := NewTradingDayRepository(&stubBeginPool{tx: tx}, trace.NewNoopTracerProvider().Tracer("test"))

	prev := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	if err := repo.BackfillNextDayClose(context.Background(), prev, 153.0); err != nil {
		t.Fatalf("expected nil error for missing previous row, got %v", err)
	}

	if tx.committed {
		t.Fatal("expected no commit when the previous row is missing")
	}
	if tx.execSQL != "" {
		t.Fatalf("expected no update, got %q", tx.execSQL)
	}
}

func TestBackfillNextDayCloseZeroPrevClose(t *testing.T) {
	tx := &stubTx{prevClose: 0}
	repo := NewTradingDayRepository(&stubBeginPool{tx: tx}, trace.NewNoopTracerProvider().Tracer("test"))

	prev := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	if err := repo.BackfillNextDayClose(context.Background(), prev, 153.0); err != nil {
		t.Fatalf("backfill failed: %v", err)
	}
	if got := tx.execArgs[2].(float64); got != 0.0 {
		t.Fatalf("expected 0 percent change for zero previous close, got %v", got)
	}
}

func TestScanTradingDayMapsPrediction(t *testing.T) {
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	row := &stubRow{values: []any{
		date, 100.0, 105.0, 99.0, 104.0, int64(1000),
		55.0, 1.2, 0.8,
		nil, nil,
		20.0, -10.0, 8.0,
		nil, nil, "UP",
		date, date,
	}}

	d, err := scanTradingDay(row)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if d.Prediction == nil || *d.Prediction != domain.DirectionUp {
		t.Fatalf("expected UP prediction, got %v", d.Prediction)
	}
	if d.SMA50 != nil || d.NextDayClose != nil {
		t.Fatal("expected nil optional columns to stay nil")
	}
	if d.RSI == nil || *d.RSI != 55.0 {
		t.Fatalf("expected RSI 55, got %v", d.RSI)
	}
}

func TestScanTradingDayNoPrediction(t *testing.T) {
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	row := &stubRow{values: []any{
		date, 100.0, 105.0, 99.0, 104.0, int64(1000),
		nil, nil, nil, nil, nil,
		nil, nil, nil,
		nil, nil, nil,
		date, date,
	}}

	d, err := scanTradingDay(row)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if d.Prediction != nil {
		t.Fatalf("expected nil prediction, got %v", *d.Prediction)
	}
}
