// Package config содержит логику чтения конфигурации сервиса учёта купонов.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress       = "localhost:8080"
	defaultExpiringSoonDays = 7
	defaultLocale           = "he-IL"
	defaultCurrency         = "ILS"
)

// Config содержит параметры конфигурации сервиса учёта купонов.
type Config struct {
	RunAddress          string        `env:"RUN_ADDRESS"`
	DatabaseURI         string        `env:"DATABASE_URI"`
	GenAIAddress        string        `env:"GENAI_ADDRESS"`
	GenAIModel          string        `env:"GENAI_MODEL"`
	ExpiringSoonDays    int           `env:"EXPIRING_SOON_DAYS"`
	Locale              string        `env:"LOCALE"`
	Currency            string        `env:"CURRENCY"`
	SummaryCacheTTL     time.Duration `env:"SUMMARY_CACHE_TTL" envDefault:"15m"`
	ExpiryWatchSchedule string        `env:"EXPIRY_WATCH_SCHEDULE" envDefault:"@every 5m"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory storage when empty")
	flag.StringVar(&cfg.GenAIAddress, "g", "", "generative text service address")
	flag.StringVar(&cfg.GenAIModel, "m", "", "generative text model name")
	flag.IntVar(&cfg.ExpiringSoonDays, "w", defaultExpiringSoonDays, "expiring soon window in days")
	flag.StringVar(&cfg.Locale, "l", defaultLocale, "locale for collation and number formatting")
	flag.StringVar(&cfg.Currency, "c", defaultCurrency, "ISO 4217 currency code")

	flag.Parse()

	if fromEnv.RunAddress != "" {
		cfg.RunAddress = fromEnv.RunAddress
	}
	if fromEnv.DatabaseURI != "" {
		cfg.DatabaseURI = fromEnv.DatabaseURI
	}
	if fromEnv.GenAIAddress != "" {
		cfg.GenAIAddress = fromEnv.GenAIAddress
	}
	if fromEnv.GenAIModel != "" {
		cfg.GenAIModel = fromEnv.GenAIModel
	}
	if fromEnv.ExpiringSoonDays != 0 {
		cfg.ExpiringSoonDays = fromEnv.ExpiringSoonDays
	}
	if fromEnv.Locale != "" {
		cfg.Locale = fromEnv.Locale
	}
	if fromEnv.Currency != "" {
		cfg.Currency = fromEnv.Currency
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.ExpiringSoonDays <= 0 {
		return nil, fmt.Errorf("expiring soon window must be positive, got %d", cfg.ExpiringSoonDays)
	}

	return cfg, nil
}
