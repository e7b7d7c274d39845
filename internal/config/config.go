package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Sentiment    SentimentConfig
	Sla          SlaConfig
	Routing      RoutingConfig
	Monitor      MonitorConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// SentimentConfig tunes the analyzer's strategy weights.
type SentimentConfig struct {
	LexiconWeight     float64
	PatternWeight     float64
	StatisticalWeight float64
}

// Weights maps strategy names to their configured weights.
func (s SentimentConfig) Weights() map[string]float64 {
	return map[string]float64{
		"lexicon":     s.LexiconWeight,
		"pattern":     s.PatternWeight,
		"statistical": s.StatisticalWeight,
	}
}

// SlaConfig controls deadline calculation and recomputation.
// RecomputePolicy is "restart" or "extend"; either way a recomputed
// deadline never moves earlier than the one already promised.
type SlaConfig struct {
	RecomputePolicy   string
	BusinessHoursOnly bool
	WorkStartHour     int
	WorkEndHour       int
}

// RoutingConfig tunes the rule engine.
type RoutingConfig struct {
	WeightThreshold float64
}

// MonitorConfig controls the SLA breach monitor.
type MonitorConfig struct {
	Enabled         bool
	IntervalSeconds int
	RepeatWindowHrs int
}

// Interval returns the monitor tick duration.
func (m MonitorConfig) Interval() time.Duration {
	if m.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(m.IntervalSeconds) * time.Second
}

// RepeatWindow returns how far back a conversation's open ticket is reused.
func (m MonitorConfig) RepeatWindow() time.Duration {
	if m.RepeatWindowHrs <= 0 {
		return 3 * time.Hour
	}
	return time.Duration(m.RepeatWindowHrs) * time.Hour
}

// NotificationConfig tunes the delivery queue and stub endpoints.
type NotificationConfig struct {
	EmailFrom            string
	WebhookURL           string
	QueueSize            int
	RetryIntervalSeconds int
	MaxDeliveryAttempts  int
}

// Queue returns the delivery queue capacity.
func (n NotificationConfig) Queue() int {
	if n.QueueSize <= 0 {
		return 256
	}
	return n.QueueSize
}

// RetryInterval returns how often failed deliveries are retried.
func (n NotificationConfig) RetryInterval() time.Duration {
	if n.RetryIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(n.RetryIntervalSeconds) * time.Second
}

// MaxAttempts returns the delivery attempt ceiling per intent.
func (n NotificationConfig) MaxAttempts() int {
	if n.MaxDeliveryAttempts <= 0 {
		return 3
	}
	return n.MaxDeliveryAttempts
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Sentiment: SentimentConfig{
			LexiconWeight:     getEnvAsFloat("SENTIMENT_LEXICON_WEIGHT", 0.5),
			PatternWeight:     getEnvAsFloat("SENTIMENT_PATTERN_WEIGHT", 0.3),
			StatisticalWeight: getEnvAsFloat("SENTIMENT_STATISTICAL_WEIGHT", 0.2),
		},
		Sla: SlaConfig{
			RecomputePolicy:   getEnv("SLA_RECOMPUTE_POLICY", "restart"),
			BusinessHoursOnly: getEnvAsBool("SLA_BUSINESS_HOURS_ONLY", false),
			WorkStartHour:     getEnvAsInt("SLA_WORK_START_HOUR", 9),
			WorkEndHour:       getEnvAsInt("SLA_WORK_END_HOUR", 17),
		},
		Routing: RoutingConfig{
			WeightThreshold: getEnvAsFloat("ROUTING_WEIGHT_THRESHOLD", 0.5),
		},
		Monitor: MonitorConfig{
			Enabled:         getEnvAsBool("SLA_MONITOR_ENABLED", true),
			IntervalSeconds: getEnvAsInt("SLA_MONITOR_INTERVAL_SECONDS", 60),
			RepeatWindowHrs: getEnvAsInt("TICKET_REPEAT_WINDOW_HOURS", 3),
		},
		Notification: NotificationConfig{
			EmailFrom:            getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:           getEnv("NOTIFY_WEBHOOK_URL", ""),
			QueueSize:            getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			RetryIntervalSeconds: getEnvAsInt("NOTIFY_RETRY_INTERVAL_SECONDS", 30),
			MaxDeliveryAttempts:  getEnvAsInt("NOTIFY_MAX_DELIVERY_ATTEMPTS", 3),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
