package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the pipeline settings shared by the commands. Values come
// from the environment, with .env honored when present.
type Config struct {
	// Data layout
	DataDir string

	// Event selection
	VolumeThresholdUSD  float64
	ExcludeSlugKeywords []string

	// Trade selection
	MinTradeValueUSD float64

	// Optional historical reference, RFC3339. Empty means live.
	AsOf string

	// OpenRouter
	OpenRouterKey  string
	OpenRouterBase string
	ScoreModel     string
	ScoreWorkers   int
	EmbedModel     string
	EmbedBatchSize int
	EmbedWorkers   int
	EmbedCachePath string

	// Postgres
	DatabaseURL string

	// HTTP API
	APIKey  string
	APIPort string

	// Archiver
	ArchiveBucket   string
	ArchivePrefix   string
	AWSRegion       string
	ArchiveInterval time.Duration

	// Market stream
	StreamURL     string
	FlushInterval time.Duration
}

// Load reads the environment into a Config, applying defaults. A missing
// .env file is not an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DataDir: getEnv("DATA_DIR", "data"),

		VolumeThresholdUSD:  getEnvFloat("VOLUME_THRESHOLD_USD", 25000),
		ExcludeSlugKeywords: getEnvList("EXCLUDE_SLUG_KEYWORDS", []string{"btc", "eth", "xrp", "sol"}),
		MinTradeValueUSD:    getEnvFloat("MIN_TRADE_VALUE_USD", 500),
		AsOf:                getEnv("AS_OF", ""),

		OpenRouterKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBase: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai"),
		ScoreModel:     getEnv("SCORE_MODEL", "google/gemini-2.5-flash-lite"),
		ScoreWorkers:   getEnvInt("SCORE_WORKERS", 4),
		EmbedModel:     getEnv("EMBED_MODEL", "qwen/qwen3-embedding-8b"),
		EmbedBatchSize: getEnvInt("EMBED_BATCH_SIZE", 256),
		EmbedWorkers:   getEnvInt("EMBED_WORKERS", 4),
		EmbedCachePath: getEnv("EMBED_CACHE_PATH", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		APIKey:  getEnv("API_KEY", ""),
		APIPort: getEnv("API_PORT", "8080"),

		ArchiveBucket:   getEnv("ARCHIVE_BUCKET", ""),
		ArchivePrefix:   getEnv("ARCHIVE_PREFIX", "polymarket"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		ArchiveInterval: getEnvDuration("ARCHIVE_INTERVAL", time.Hour),

		StreamURL:     getEnv("STREAM_URL", ""),
		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 30*time.Second),
	}
}

// AsOfTime parses the configured reference time. ok is false when unset.
func (c *Config) AsOfTime() (time.Time, bool, error) {
	if c.AsOf == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, c.AsOf)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse AS_OF %q: %w", c.AsOf, err)
	}
	return t.UTC(), true, nil
}

// Validate checks internal coherence; required-per-command settings are
// checked by the command that needs them.
func (c *Config) Validate() error {
	if c.ScoreWorkers < 1 {
		return fmt.Errorf("SCORE_WORKERS must be positive, got %d", c.ScoreWorkers)
	}
	if c.EmbedWorkers < 1 {
		return fmt.Errorf("EMBED_WORKERS must be positive, got %d", c.EmbedWorkers)
	}
	if c.EmbedBatchSize < 1 {
		return fmt.Errorf("EMBED_BATCH_SIZE must be positive, got %d", c.EmbedBatchSize)
	}
	if c.MinTradeValueUSD < 0 {
		return fmt.Errorf("MIN_TRADE_VALUE_USD must not be negative, got %v", c.MinTradeValueUSD)
	}
	if _, _, err := c.AsOfTime(); err != nil {
		return err
	}
	return nil
}

// String renders the config for startup logs with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"data_dir=%s volume_threshold=%.0f min_trade_value=%.0f as_of=%q score_model=%s embed_model=%s openrouter_key=%s database=%s api_key=%s archive_bucket=%s",
		c.DataDir, c.VolumeThresholdUSD, c.MinTradeValueUSD, c.AsOf,
		c.ScoreModel, c.EmbedModel,
		maskSecret(c.OpenRouterKey), maskSecret(c.DatabaseURL), maskSecret(c.APIKey), c.ArchiveBucket,
	)
}

func maskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
