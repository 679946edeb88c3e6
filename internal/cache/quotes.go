package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"daily-alpha/internal/domain"

	"github.com/redis/go-redis/v9"
)

// quoteTTL keeps a day's snapshot around long enough for every stage of a
// run plus the evening report, without surviving into the next session.
const quoteTTL = 12 * time.Hour

// NewClient connects to Redis at addr (host:port or redis:// URL) and
// verifies the connection with a ping.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}
		opts = parsed
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Println("Connected to Redis")
	return client, nil
}

// QuoteCache stores one JSON snapshot per (symbol, date) so repeated
// trading-day lookups within a run cost one chart fetch.
type QuoteCache struct {
	client *redis.Client
}

func NewQuoteCache(client *redis.Client) *QuoteCache {
	return &QuoteCache{client: client}
}

func quoteKey(symbol string, date time.Time) string {
	return fmt.Sprintf("quote:%s:%s", symbol, domain.NormalizeDate(date).Format(domain.DateLayout))
}

// GetQuote returns the cached snapshot, or nil on a miss. Decode failures
// count as misses.
func (c *QuoteCache) GetQuote(ctx context.Context, symbol string, date time.Time) (*domain.MarketSnapshot, error) {
	data, err := c.client.Get(ctx, quoteKey(symbol, date)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap domain.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("dropping undecodable cached quote for %s: %v", symbol, err)
		return nil, nil
	}
	return &snap, nil
}

func (c *QuoteCache) SetQuote(ctx context.Context, symbol string, snap *domain.MarketSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quoteKey(symbol, snap.Date), data, quoteTTL).Err()
}
