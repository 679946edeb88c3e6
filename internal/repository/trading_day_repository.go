package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"daily-alpha/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned by single-row reads when no row matches.
var ErrNotFound = errors.New("repository: not found")

// PgxPool is the subset of pgxpool.Pool the repositories need.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const tradingDayColumns = `trade_date, open, high, low, close, volume,
	rsi, macd, macd_signal, sma_50, sma_200,
	company_sentiment, macro_sentiment, combined_sentiment,
	next_day_close, price_change_percent, prediction,
	created_at, updated_at`

type TradingDayRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTradingDayRepository(pool PgxPool, tracer trace.Tracer) *TradingDayRepository {
	return &TradingDayRepository{pool: pool, tracer: tracer}
}

// UpsertTradingDay inserts the day's market snapshot, or refreshes only the
// market and indicator columns when the row already exists. Sentiment,
// backfill and prediction columns are never touched here.
func (r *TradingDayRepository) UpsertTradingDay(ctx context.Context, snap *domain.MarketSnapshot) error {
	_, span := r.tracer.Start(ctx, "trading-day-repo.upsert")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO trading_days (trade_date, open, high, low, close, volume,
		     rsi, macd, macd_signal, sma_50, sma_200)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (trade_date) DO UPDATE SET
		     open = EXCLUDED.open,
		     high = EXCLUDED.high,
		     low = EXCLUDED.low,
		     close = EXCLUDED.close,
		     volume = EXCLUDED.volume,
		     rsi = EXCLUDED.rsi,
		     macd = EXCLUDED.macd,
		     macd_signal = EXCLUDED.macd_signal,
		     sma_50 = EXCLUDED.sma_50,
		     sma_200 = EXCLUDED.sma_200,
		     updated_at = now()`,
		domain.NormalizeDate(snap.Date), snap.Open, snap.High, snap.Low, snap.Close, snap.Volume,
		snap.RSI, snap.MACD, snap.MACDSignal, snap.SMA50, snap.SMA200,
	)
	return err
}

// UpdateSentiment writes the three sentiment columns for an existing day.
func (r *TradingDayRepository) UpdateSentiment(ctx context.Context, date time.Time, company, macro, combined float64) error {
	_, span := r.tracer.Start(ctx, "trading-day-repo.update-sentiment")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`UPDATE trading_days
		 SET company_sentiment = $2,
		     macro_sentiment = $3,
		     combined_sentiment = $4,
		     updated_at = now()
		 WHERE trade_date = $1`,
		domain.NormalizeDate(date), company, macro, combined,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BackfillNextDayClose resolves the previous session's open prediction in a
// single transaction: reads its close, writes today's close as its
// next_day_close together with the realized percent move. A missing previous
// row is a logged no-op, not an error.
func (r *TradingDayRepository) BackfillNextDayClose(ctx context.Context, prevDate time.Time, todayClose float64) error {
	_, span := r.tracer.Start(ctx, "trading-day-repo.backfill-next-day-close")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	prevDate = domain.NormalizeDate(prevDate)

	var prevClose float64
	err = tx.QueryRow(ctx,
		`SELECT close FROM trading_days WHERE trade_date = $1`, prevDate,
	).Scan(&prevClose)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Printf("backfill: no row for %s, skipping", prevDate.Format(domain.DateLayout))
		return nil
	}
	if err != nil {
		return err
	}

	pct := 0.0
	if prevClose != 0 {
		pct = (todayClose - prevClose) / prevClose * 100
	}

	_, err = tx.Exec(ctx,
		`UPDATE trading_days
		 SET next_day_close = $2,
		     price_change_percent = $3,
		     updated_at = now()
		 WHERE trade_date = $1`,
		prevDate, todayClose, pct,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SavePrediction writes the prediction label for a day.
func (r *TradingDayRepository) SavePrediction(ctx context.Context, date time.Time, label domain.Direction) error {
	_, span := r.tracer.Start(ctx, "trading-day-repo.save-prediction")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`UPDATE trading_days SET prediction = $2, updated_at = now() WHERE trade_date = $1`,
		domain.NormalizeDate(date), string(label),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TradingDayRepository) GetDay(ctx context.Context, date time.Time) (*domain.TradingDayRecord, error) {
	_, span := r.tracer.Start(ctx, "trading-day-repo.get-day")
	defer span.End()

	row := r.pool.QueryRow(ctx,
		`SELECT `+tradingDayColumns+` FROM trading_days WHERE trade_date = $1`,
		domain.NormalizeDate(date),
	)
	return scanTradingDay(row)
}

func (r *TradingDayRepository) GetLatestDay(ctx context.Context) (*domain.TradingDayRecord, error) {
	_, span := r.tracer.Start(ctx, "trading-day-repo.get-latest-day")
	defer span.End()

	row := r.pool.QueryRow(ctx,
		`SELECT `+tradingDayColumns+` FROM trading_days ORDER BY trade_date DESC LIMIT 1`,
	)
	return scanTradingDay(row)
}

// GetPreviousDay returns the most recent day strictly before date.
func (r *TradingDayRepository) GetPreviousDay(ctx context.Context, date time.Time) (*domain.TradingDayRecord, error) {
	_, span := r.tracer.Start(ctx, "trading-day-repo.get-previous-day")
	defer span.End()

	row := r.pool.QueryRow(ctx,
		`SELECT `+tradingDayColumns+` FROM trading_days
		 WHERE trade_date < $1 ORDER BY trade_date DESC LIMIT 1`,
		domain.NormalizeDate(date),
	)
	return scanTradingDay(row)
}

func (r *TradingDayRepository) ListRecent(ctx context.Context, limit int) ([]*domain.TradingDayRecord, error) {
	_, span := r.tracer.Start(ctx, "trading-day-repo.list-recent")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+tradingDayColumns+` FROM trading_days ORDER BY trade_date DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTradingDays(rows)
}

// ListAllAscending returns every stored day in chronological order, the
// shape training expects.
func (r *TradingDayRepository) ListAllAscending(ctx context.Context) ([]*domain.TradingDayRecord, error) {
	_, span := r.tracer.Start(ctx, "trading-day-repo.list-all")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+tradingDayColumns+` FROM trading_days ORDER BY trade_date ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTradingDays(rows)
}

func (r *TradingDayRepository) CountDays(ctx context.Context) (int, error) {
	_, span := r.tracer.Start(ctx, "trading-day-repo.count")
	defer span.End()

	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM trading_days`).Scan(&n)
	return n, err
}

// AverageVolume returns the mean volume over the trailing n sessions before
// (and excluding) date. Zero when no rows qualify.
func (r *TradingDayRepository) AverageVolume(ctx context.Context, date time.Time, n int) (float64, error) {
	_, span := r.tracer.Start(ctx, "trading-day-repo.average-volume")
	defer span.End()

	var avg *float64
	err := r.pool.QueryRow(ctx,
		`SELECT avg(volume) FROM (
		     SELECT volume FROM trading_days
		     WHERE trade_date < $1
		     ORDER BY trade_date DESC
		     LIMIT $2
		 ) t`,
		domain.NormalizeDate(date), n,
	).Scan(&avg)
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

// PredictionsWithOutcomes returns the most recent limit rows that carry both
// a prediction and a resolved next-day close, newest first.
func (r *TradingDayRepository) PredictionsWithOutcomes(ctx context.Context, limit int) ([]*domain.PredictionOutcome, error) {
	_, span := r.tracer.Start(ctx, "trading-day-repo.predictions-with-outcomes")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT trade_date, prediction, close, next_day_close
		 FROM trading_days
		 WHERE prediction IS NOT NULL AND next_day_close IS NOT NULL
		 ORDER BY trade_date DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*domain.PredictionOutcome
	for rows.Next() {
		o := &domain.PredictionOutcome{}
		var prediction string
		if err := rows.Scan(&o.Date, &prediction, &o.Close, &o.NextDayClose); err != nil {
			return nil, err
		}
		o.Prediction = domain.Direction(prediction)
		o.Actual = domain.DirectionDown
		if o.NextDayClose > o.Close {
			o.Actual = domain.DirectionUp
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func scanTradingDay(row pgx.Row) (*domain.TradingDayRecord, error) {
	d := &domain.TradingDayRecord{}
	var prediction *string
	err := row.Scan(
		&d.Date, &d.Open, &d.High, &d.Low, &d.Close, &d.Volume,
		&d.RSI, &d.MACD, &d.MACDSignal, &d.SMA50, &d.SMA200,
		&d.CompanySentiment, &d.MacroSentiment, &d.CombinedSentiment,
		&d.NextDayClose, &d.PriceChangePercent, &prediction,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if prediction != nil {
		p := domain.Direction(*prediction)
		d.Prediction = &p
	}
	return d, nil
}

func scanTradingDays(rows pgx.Rows) ([]*domain.TradingDayRecord, error) {
	var days []*domain.TradingDayRecord
	for rows.Next() {
		d := &domain.TradingDayRecord{}
		var prediction *string
		if err := rows.Scan(
			&d.Date, &d.Open, &d.High, &d.Low, &d.Close, &d.Volume,
			&d.RSI, &d.MACD, &d.MACDSignal, &d.SMA50, &d.SMA200,
			&d.CompanySentiment, &d.MacroSentiment, &d.CombinedSentiment,
			&d.NextDayClose, &d.PriceChangePercent, &prediction,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if prediction != nil {
			p := domain.Direction(*prediction)
			d.Prediction = &p
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
