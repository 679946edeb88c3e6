package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const serperNewsURL = "https://google.serper.dev/news"

// NewsResult is one raw search hit before filtering and ranking.
type NewsResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
	Date    string `json:"date"`
}

// SerperProvider searches Google News through the Serper API.
type SerperProvider struct {
	client  *http.Client
	url     string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
}

// NewSerperProvider creates a provider. Rate limited to 10 calls per second.
func NewSerperProvider(apiKey string, timeout time.Duration, tracer trace.Tracer) *SerperProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SerperProvider{
		client:  &http.Client{Timeout: timeout},
		url:     serperNewsURL,
		apiKey:  apiKey,
		tracer:  tracer,
		limiter: NewRateLimiter(10, time.Second),
	}
}

// SearchNews runs one news query and returns up to num raw results.
func (p *SerperProvider) SearchNews(ctx context.Context, query string, num int) ([]NewsResult, error) {
	_, span := p.tracer.Start(ctx, "serper.search-news")
	defer span.End()

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"q":   query,
		"num": num,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("serper API error %d: %s", resp.StatusCode, string(body))
	}

	var raw struct {
		News []NewsResult `json:"news"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse news response: %w", err)
	}
	return raw.News, nil
}
