package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("STOCK_SYMBOL", "")
	t.Setenv("MAX_NEWS_ARTICLES", "")
	t.Setenv("RUN_HOUR_UTC", "")

	cfg := Load()
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %s", cfg.OpenAIModel)
	}
	if cfg.StockSymbol != "NVDA" {
		t.Fatalf("expected default symbol NVDA, got %s", cfg.StockSymbol)
	}
	if cfg.MaxArticles != 3 {
		t.Fatalf("expected 3 articles, got %d", cfg.MaxArticles)
	}
	if cfg.MinTrainSamples != 10 {
		t.Fatalf("expected 10 min samples, got %d", cfg.MinTrainSamples)
	}
	if cfg.RunHourUTC != 22 {
		t.Fatalf("expected run hour 22, got %d", cfg.RunHourUTC)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STOCK_SYMBOL", "amd")
	t.Setenv("MAX_NEWS_ARTICLES", "5")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")
	t.Setenv("MODEL_PATH", "/tmp/model.json")

	cfg := Load()
	if cfg.StockSymbol != "AMD" {
		t.Fatalf("expected AMD, got %s", cfg.StockSymbol)
	}
	if cfg.MaxArticles != 5 {
		t.Fatalf("expected 5 articles, got %d", cfg.MaxArticles)
	}
	if cfg.TelegramChatID != 12345 {
		t.Fatalf("expected chat id 12345, got %d", cfg.TelegramChatID)
	}
	if cfg.ModelPath != "/tmp/model.json" {
		t.Fatalf("expected model path override, got %s", cfg.ModelPath)
	}
}

func TestValidateMissingCredentials(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, key := range []string{"DATABASE_URL", "OPENAI_API_KEY", "SERPER_API_KEY"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %s in error, got %v", key, err)
		}
	}

	cfg = &Config{DatabaseURL: "postgres://x", OpenAIAPIKey: "k", SerperAPIKey: "s"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
