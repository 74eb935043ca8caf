// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Redis, Kafka, Generator, Scoring, Daily, News, etc.).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Generator GeneratorConfig `yaml:"generator"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Game      GameConfig      `yaml:"game"`
	Daily     DailyConfig     `yaml:"daily"`
	News      NewsConfig      `yaml:"news"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	BatchSize     int           `yaml:"batchSize"`
	BatchTimeout  time.Duration `yaml:"batchTimeout"`
	Topics        KafkaTopics   `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	GuessEvents string `yaml:"guessEvents"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// GeneratorConfig configures the OpenAI-compatible chat completion backend.
type GeneratorConfig struct {
	APIKey          string        `yaml:"apiKey"`
	BaseURL         string        `yaml:"baseURL"`
	Model           string        `yaml:"model"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"maxAttempts"`
	InitialBackoff  time.Duration `yaml:"initialBackoff"`
	BreakerFailures int           `yaml:"breakerFailures"`
	BreakerReset    time.Duration `yaml:"breakerReset"`
}

// ScoringConfig holds the similarity weights and curve exponent.
type ScoringConfig struct {
	Weights       ScoringWeights `yaml:"weights"`
	CurveExponent float64        `yaml:"curveExponent"`
}

// ScoringWeights is the contribution of each similarity sub-metric.
type ScoringWeights struct {
	BM25         float64 `yaml:"bm25"`
	Jaccard      float64 `yaml:"jaccard"`
	NGram        float64 `yaml:"ngram"`
	EditDistance float64 `yaml:"editDistance"`
	Positional   float64 `yaml:"positional"`
	LengthRatio  float64 `yaml:"lengthRatio"`
	Structure    float64 `yaml:"structure"`
}

func (w ScoringWeights) validate() error {
	total := 0.0
	for name, v := range map[string]float64{
		"bm25": w.BM25, "jaccard": w.Jaccard, "ngram": w.NGram, "editDistance": w.EditDistance,
		"positional": w.Positional, "lengthRatio": w.LengthRatio, "structure": w.Structure,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, v)
		}
		total += v
	}
	if total == 0 {
		return fmt.Errorf("at least one weight must be positive")
	}
	return nil
}

// GameConfig controls practice rounds.
type GameConfig struct {
	RoundTTL time.Duration `yaml:"roundTTL"`
}

// DailyConfig controls the daily challenge.
type DailyConfig struct {
	Prompts []string `yaml:"prompts"`
	// Selection is "sequential" or "random".
	Selection string `yaml:"selection"`
	// UTCOffsetHours fixes the zone the challenge date is computed in.
	UTCOffsetHours int           `yaml:"utcOffsetHours"`
	ContentTTL     time.Duration `yaml:"contentTTL"`
}

// NewsConfig configures the AI news fetcher.
type NewsConfig struct {
	APIKey          string        `yaml:"apiKey"`
	BaseURL         string        `yaml:"baseURL"`
	CacheTTL        time.Duration `yaml:"cacheTTL"`
	Timeout         time.Duration `yaml:"timeout"`
	DefaultPageSize int           `yaml:"defaultPageSize"`
}

// AnalyticsConfig controls guess event collection and snapshotting.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	// SnapshotRetention prunes older snapshots on each save. Zero keeps all.
	SnapshotRetention time.Duration `yaml:"snapshotRetention"`
}

// RateLimitConfig sets the per-client token bucket on guess endpoints.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if err := c.Scoring.Weights.validate(); err != nil {
		return fmt.Errorf("scoring weights: %w", err)
	}
	if c.Scoring.CurveExponent <= 0 {
		return fmt.Errorf("scoring curveExponent must be positive, got %v", c.Scoring.CurveExponent)
	}
	switch c.Daily.Selection {
	case "sequential", "random":
	default:
		return fmt.Errorf("daily selection must be sequential or random, got %q", c.Daily.Selection)
	}
	if c.Daily.UTCOffsetHours < -12 || c.Daily.UTCOffsetHours > 14 {
		return fmt.Errorf("daily utcOffsetHours out of range: %d", c.Daily.UTCOffsetHours)
	}
	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("rateLimit requests must not be negative")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  60 * time.Second,
			AllowOrigins:    []string{"*"},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "prompted",
			User:            "prompted",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "prompted-analytics",
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			Topics: KafkaTopics{
				GuessEvents: "guess-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
		},
		Generator: GeneratorConfig{
			BaseURL:         "https://ai.hackclub.com",
			Model:           "gpt-4o-mini",
			Timeout:         45 * time.Second,
			MaxAttempts:     3,
			InitialBackoff:  500 * time.Millisecond,
			BreakerFailures: 5,
			BreakerReset:    30 * time.Second,
		},
		Scoring: ScoringConfig{
			Weights: ScoringWeights{
				BM25:         0.25,
				Jaccard:      0.15,
				NGram:        0.20,
				EditDistance: 0.15,
				Positional:   0.10,
				LengthRatio:  0.05,
				Structure:    0.10,
			},
			CurveExponent: 0.9,
		},
		Game: GameConfig{
			RoundTTL: 2 * time.Hour,
		},
		Daily: DailyConfig{
			Selection:      "sequential",
			UTCOffsetHours: -4,
			ContentTTL:     48 * time.Hour,
		},
		News: NewsConfig{
			BaseURL:         "https://eventregistry.org/api/v1",
			CacheTTL:        30 * time.Minute,
			Timeout:         10 * time.Second,
			DefaultPageSize: 12,
		},
		Analytics: AnalyticsConfig{
			Enabled:           true,
			BufferSize:        10000,
			SnapshotInterval:  time.Minute,
			SnapshotRetention: 7 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Requests: 30,
			Window:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads PS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("PS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("PS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("PS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("PS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("PS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("PS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PS_GENERATOR_API_KEY"); v != "" {
		cfg.Generator.APIKey = v
	}
	if v := os.Getenv("PS_GENERATOR_BASE_URL"); v != "" {
		cfg.Generator.BaseURL = v
	}
	if v := os.Getenv("PS_GENERATOR_MODEL"); v != "" {
		cfg.Generator.Model = v
	}
	if v := os.Getenv("PS_NEWS_API_KEY"); v != "" {
		cfg.News.APIKey = v
	}
	if v := os.Getenv("PS_DAILY_PROMPTS"); v != "" {
		var prompts []string
		if err := json.Unmarshal([]byte(v), &prompts); err != nil {
			return fmt.Errorf("parsing PS_DAILY_PROMPTS as a JSON array: %w", err)
		}
		cfg.Daily.Prompts = prompts
	}
	if v := os.Getenv("PS_DAILY_SELECTION"); v != "" {
		cfg.Daily.Selection = v
	}
	if v := os.Getenv("PS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("PS_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	return nil
}
