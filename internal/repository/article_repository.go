package repository

import (
	"context"
	"time"

	"daily-alpha/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

type ArticleRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewArticleRepository(pool PgxPool, tracer trace.Tracer) *ArticleRepository {
	return &ArticleRepository{pool: pool, tracer: tracer}
}

// InsertArticle stores an article attributed to a trading day. Duplicate
// (date, url) pairs are silently suppressed; the bool reports whether a row
// was actually inserted.
func (r *ArticleRepository) InsertArticle(ctx context.Context, a *domain.Article) (bool, error) {
	_, span := r.tracer.Start(ctx, "article-repo.insert")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO articles (trade_date, url, source, title, summary, article_type, tier)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (trade_date, url) DO NOTHING`,
		domain.NormalizeDate(a.Date), a.URL, a.Source, a.Title, a.Summary, string(a.Type), a.Tier,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ArticleRepository) ListForDate(ctx context.Context, date time.Time) ([]*domain.Article, error) {
	_, span := r.tracer.Start(ctx, "article-repo.list-for-date")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		articleSelect+` WHERE trade_date = $1 ORDER BY id ASC`,
		domain.NormalizeDate(date),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// ListBefore returns articles attributed strictly before date.
func (r *ArticleRepository) ListBefore(ctx context.Context, date time.Time) ([]*domain.Article, error) {
	_, span := r.tracer.Start(ctx, "article-repo.list-before")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		articleSelect+` WHERE trade_date < $1 ORDER BY trade_date ASC, id ASC`,
		domain.NormalizeDate(date),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

func (r *ArticleRepository) Count(ctx context.Context) (int, error) {
	_, span := r.tracer.Start(ctx, "article-repo.count")
	defer span.End()

	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM articles`).Scan(&n)
	return n, err
}

const articleSelect = `SELECT id, trade_date, url, source, title, summary, article_type, tier, created_at
	 FROM articles`

func scanArticles(rows pgx.Rows) ([]*domain.Article, error) {
	var articles []*domain.Article
	for rows.Next() {
		a := &domain.Article{}
		var articleType string
		if err := rows.Scan(&a.ID, &a.Date, &a.URL, &a.Source, &a.Title, &a.Summary, &articleType, &a.Tier, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Type = domain.ArticleType(articleType)
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
