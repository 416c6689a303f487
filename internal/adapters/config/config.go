package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"tradecouncil/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	AI            AIConfig
	Pipeline      PipelineConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"tradecouncil"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`
}

// Infrastructure sections are optional: an empty host disables the backend and
// bootstrap falls back to the in-memory implementation where one exists.

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"postgres"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"tradecouncil"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) Enabled() bool { return c.Host != "" }

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"markets"`
}

func (c ClickHouseConfig) Enabled() bool { return c.Host != "" }

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Enabled() bool { return c.Host != "" }

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers        []string `envconfig:"KAFKA_BROKERS"`
	GroupID        string   `envconfig:"KAFKA_GROUP_ID" default:"tradecouncil"`
	RequestsTopic  string   `envconfig:"KAFKA_REQUESTS_TOPIC" default:"pipeline.requests"`
	CompletedTopic string   `envconfig:"KAFKA_COMPLETED_TOPIC" default:"pipeline.completed"`
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

type AIConfig struct {
	OpenAIKey       string        `envconfig:"OPENAI_API_KEY"`
	DeepSeekKey     string        `envconfig:"DEEPSEEK_API_KEY"`
	DeepSeekBaseURL string        `envconfig:"DEEPSEEK_BASE_URL" default:"https://api.deepseek.com/v1"`
	GeminiKey       string        `envconfig:"GEMINI_API_KEY"`
	DefaultProvider string        `envconfig:"DEFAULT_AI_PROVIDER" default:"openai"`
	RoutesFile      string        `envconfig:"AI_ROUTES_FILE"`
	RequestTimeout  time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"60s"`
	MaxRetries      int           `envconfig:"AI_MAX_RETRIES" default:"2"`
	RequestsPerMin  int           `envconfig:"AI_REQUESTS_PER_MINUTE" default:"60"`
	// DistributedRateLimit shares the per-provider budget across replicas through Redis
	DistributedRateLimit bool `envconfig:"AI_DISTRIBUTED_RATE_LIMIT" default:"false"`
}

// HasAnyProvider reports whether at least one inference provider is configured
func (c AIConfig) HasAnyProvider() bool {
	return c.OpenAIKey != "" || c.DeepSeekKey != "" || c.GeminiKey != ""
}

// PipelineConfig controls orchestration behaviour
type PipelineConfig struct {
	CacheBackend       string  `envconfig:"PIPELINE_CACHE_BACKEND" default:"memory"` // memory, redis, postgres
	DataSource         string  `envconfig:"PIPELINE_DATA_SOURCE" default:"fixed"`    // fixed, clickhouse
	DedupeInFlight     bool    `envconfig:"PIPELINE_DEDUPE_INFLIGHT" default:"false"`
	PromptsDir         string  `envconfig:"PIPELINE_PROMPTS_DIR"` // overrides the embedded prompts
	DefaultAccountSize float64 `envconfig:"PIPELINE_DEFAULT_ACCOUNT_SIZE" default:"50000"`
	DefaultInstrument  string  `envconfig:"PIPELINE_DEFAULT_INSTRUMENT" default:"ES"`
	AnalyticsEnabled   bool    `envconfig:"PIPELINE_ANALYTICS_ENABLED" default:"true"`
}

type ErrorTrackingConfig struct {
	Enabled     bool    `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string  `envconfig:"SENTRY_DSN"`
	Environment string  `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
	SampleRate  float64 `envconfig:"SENTRY_SAMPLE_RATE" default:"1.0"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	if !c.AI.HasAnyProvider() {
		return errors.NewValidationError("AI", "at least one of OPENAI_API_KEY, DEEPSEEK_API_KEY, GEMINI_API_KEY is required", nil)
	}

	switch c.Pipeline.CacheBackend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled() {
			return errors.NewValidationError("PIPELINE_CACHE_BACKEND", "redis backend requires REDIS_HOST", c.Pipeline.CacheBackend)
		}
	case "postgres":
		if !c.Postgres.Enabled() {
			return errors.NewValidationError("PIPELINE_CACHE_BACKEND", "postgres backend requires POSTGRES_HOST", c.Pipeline.CacheBackend)
		}
	default:
		return errors.NewValidationError("PIPELINE_CACHE_BACKEND", "must be one of memory, redis, postgres", c.Pipeline.CacheBackend)
	}

	switch c.Pipeline.DataSource {
	case "fixed":
	case "clickhouse":
		if !c.ClickHouse.Enabled() {
			return errors.NewValidationError("PIPELINE_DATA_SOURCE", "clickhouse data source requires CLICKHOUSE_HOST", c.Pipeline.DataSource)
		}
	default:
		return errors.NewValidationError("PIPELINE_DATA_SOURCE", "must be one of fixed, clickhouse", c.Pipeline.DataSource)
	}

	if c.Pipeline.DefaultAccountSize <= 0 {
		return errors.NewValidationError("PIPELINE_DEFAULT_ACCOUNT_SIZE", "must be positive", c.Pipeline.DefaultAccountSize)
	}

	if c.ErrorTracking.Enabled && c.ErrorTracking.SentryDSN == "" {
		return errors.NewValidationError("SENTRY_DSN", "required when error tracking is enabled", nil)
	}

	return nil
}
