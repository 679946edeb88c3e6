package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL string
	RedisURL    string

	OpenAIAPIKey string
	OpenAIModel  string
	SerperAPIKey string

	TelegramBotToken string
	TelegramChatID   int64

	StockSymbol string
	StockName   string

	MaxArticles       int
	SearchTimeoutSecs int

	ModelPath       string
	MinTrainSamples int
	EvalWindowDays  int

	HTTPPort   int
	RunHourUTC int
	APIKey     string
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		SerperAPIKey:     os.Getenv("SERPER_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, quote caching disabled")
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set, report delivery disabled")
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		} else {
			log.Printf("Warning: invalid TELEGRAM_CHAT_ID=%q, report delivery disabled", v)
		}
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.StockSymbol = strings.ToUpper(strings.TrimSpace(os.Getenv("STOCK_SYMBOL")))
	if cfg.StockSymbol == "" {
		cfg.StockSymbol = "NVDA"
	}
	cfg.StockName = strings.TrimSpace(os.Getenv("STOCK_NAME"))
	if cfg.StockName == "" {
		cfg.StockName = "NVIDIA"
	}

	cfg.MaxArticles = 3
	if v := os.Getenv("MAX_NEWS_ARTICLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxArticles = n
		}
	}

	cfg.SearchTimeoutSecs = 10
	if v := strings.TrimSpace(os.Getenv("SEARCH_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SearchTimeoutSecs = n
		}
	}

	cfg.ModelPath = strings.TrimSpace(os.Getenv("MODEL_PATH"))
	if cfg.ModelPath == "" {
		cfg.ModelPath = "models/model.json"
	}

	cfg.MinTrainSamples = 10
	if v := strings.TrimSpace(os.Getenv("MIN_TRAIN_SAMPLES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MinTrainSamples = n
		}
	}

	cfg.EvalWindowDays = 30
	if v := strings.TrimSpace(os.Getenv("EVAL_WINDOW_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EvalWindowDays = n
		}
	}

	cfg.HTTPPort = 8080
	if v := strings.TrimSpace(os.Getenv("HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	cfg.RunHourUTC = 22
	if v := strings.TrimSpace(os.Getenv("RUN_HOUR_UTC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 23 {
			cfg.RunHourUTC = n
		}
	}

	cfg.APIKey = strings.TrimSpace(os.Getenv("API_KEY"))

	return cfg
}

// Validate reports the credentials a workflow run cannot proceed without.
// Callers treat an error here as fatal at startup.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.SerperAPIKey == "" {
		missing = append(missing, "SERPER_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
