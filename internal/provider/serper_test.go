package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func TestSearchNews(t *testing.T) {
	t.Parallel()

	p := NewSerperProvider("test-key", time.Second, trace.NewNoopTracerProvider().Tracer("test"))
	p.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("X-API-KEY") != "test-key" {
				t.Fatalf("missing API key header")
			}
			var payload map[string]any
			body, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Fatalf("bad request body: %v", err)
			}
			if payload["q"] != "NVIDIA stock news" {
				t.Fatalf("unexpected query: %v", payload["q"])
			}
			resp := map[string]any{
				"news": []NewsResult{
					{Title: "NVIDIA beats estimates", Link: "https://reuters.com/a", Source: "Reuters"},
				},
			}
			data, _ := json.Marshal(resp)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewReader(data)),
				Header:     make(http.Header),
			}, nil
		}),
	}

	results, err := p.SearchNews(context.Background(), "NVIDIA stock news", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Source != "Reuters" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearchNewsAPIError(t *testing.T) {
	t.Parallel()

	p := NewSerperProvider("test-key", time.Second, trace.NewNoopTracerProvider().Tracer("test"))
	p.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusForbidden,
				Body:       io.NopCloser(bytes.NewReader([]byte(`{"message":"invalid key"}`))),
				Header:     make(http.Header),
			}, nil
		}),
	}

	if _, err := p.SearchNews(context.Background(), "anything", 5); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestSearchNewsRateLimited(t *testing.T) {
	t.Parallel()

	p := NewSerperProvider("test-key", time.Second, trace.NewNoopTracerProvider().Tracer("test"))
	p.limiter = NewRateLimiter(1, time.Hour)
	p.limiter.tokens = 0

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := p.SearchNews(ctx, "anything", 5); err == nil {
		t.Fatal("expected error when the bucket is empty and the context expires")
	}
}
