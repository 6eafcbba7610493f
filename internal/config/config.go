// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSymbols is the monitored instrument set: linear USDT perpetuals
// available on the upstream feed. SHIB and PEPE are excluded because they
// are not offered as futures there.
var DefaultSymbols = []string{
	"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT", "XRPUSDT", "ADAUSDT",
	"DOGEUSDT", "AVAXUSDT", "LINKUSDT", "POLUSDT", "TONUSDT", "TRXUSDT",
	"LTCUSDT", "NEARUSDT", "APTUSDT", "OPUSDT", "ARBUSDT", "SEIUSDT",
	"SUIUSDT",
}

// Config holds all runtime settings for the monitoring API.
type Config struct {
	Port          string
	DBPath        string
	TickerBaseURL string
	Symbols       []string
	CacheTTL      time.Duration
	JWTSecret     string
	AuthRequired  bool
	Environment   string
	Debug         bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first if present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "botwatch.db"),
		TickerBaseURL: getEnv("TICKER_BASE_URL", "https://api.bybit.com"),
		Symbols:       DefaultSymbols,
		CacheTTL:      5 * time.Second,
		JWTSecret:     getEnv("JWT_SECRET", "botwatch-secret-key"),
		AuthRequired:  getEnv("AUTH_REQUIRED", "") == "true",
		Environment:   getEnv("ENV", "development"),
		Debug:         getEnv("DEBUG", "") == "true",
	}

	if raw := os.Getenv("SYMBOLS"); raw != "" {
		var symbols []string
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
		if len(symbols) > 0 {
			cfg.Symbols = symbols
		}
	}

	if raw := os.Getenv("TICKER_CACHE_TTL"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			cfg.CacheTTL = time.Duration(secs) * time.Second
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
