// Package config loads the server configuration.
//
// Values come from built-in defaults, then an optional YAML file
// (BALLOTGUARD_CONFIG or --config), then environment variables. The result
// is validated once at startup and treated as immutable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	pstrings "ballotguard/pkg/platform/strings"
)

// Config is the complete runtime configuration.
type Config struct {
	Environment   string          `yaml:"environment"`
	Addr          string          `yaml:"addr"`
	DatabaseURL   string          `yaml:"database_url"`
	RedisURL      string          `yaml:"redis_url"`
	KafkaBrokers  []string        `yaml:"kafka_brokers"`
	AuditTopic    string          `yaml:"audit_topic"`
	JWTSigningKey string          `yaml:"jwt_signing_key"`
	JWTIssuer     string          `yaml:"jwt_issuer"`
	AdminToken    string          `yaml:"admin_token"`
	Timezone      string          `yaml:"timezone"`
	LogLevel      string          `yaml:"log_level"`
	CastTimeout   time.Duration   `yaml:"cast_timeout"`
	OTP           OTPConfig       `yaml:"otp"`
	Reconcile     ReconcileConfig `yaml:"reconcile"`
	Redis         RedisConfig     `yaml:"redis"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

// OTPConfig tunes the one-time-code gate in front of ballot casting.
type OTPConfig struct {
	// TTL bounds how long an issued code can be verified.
	TTL time.Duration `yaml:"ttl"`
	// FreshWindow bounds how long a verified code can gate a cast.
	FreshWindow time.Duration `yaml:"fresh_window"`
	CodeLength  int           `yaml:"code_length"`
	// MaxAttempts mismatches burn the code.
	MaxAttempts int `yaml:"max_attempts"`
	// IssueInterval and IssueBurst throttle code issuance per voter.
	IssueInterval time.Duration `yaml:"issue_interval"`
	IssueBurst    int           `yaml:"issue_burst"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
}

// ReconcileConfig schedules the duplicate reconciler.
type ReconcileConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	ReportHistory int           `yaml:"report_history"`
}

// RateLimitConfig throttles the voter API per client IP.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// RedisConfig holds connection pool overrides for the OTP store.
type RedisConfig struct {
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Default returns development defaults.
func Default() Config {
	return Config{
		Environment:   "development",
		Addr:          ":8080",
		AuditTopic:    "ballotguard.audit",
		JWTSigningKey: "dev-secret-key-change-in-production",
		JWTIssuer:     "school-portal",
		Timezone:      "UTC",
		LogLevel:      "info",
		CastTimeout:   5 * time.Second,
		OTP: OTPConfig{
			TTL:           5 * time.Minute,
			FreshWindow:   10 * time.Minute,
			CodeLength:    6,
			MaxAttempts:   5,
			IssueInterval: 30 * time.Second,
			IssueBurst:    3,
			BcryptCost:    10,
		},
		Reconcile: ReconcileConfig{
			Enabled:       true,
			Interval:      15 * time.Minute,
			ReportHistory: 50,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			Burst:             20,
		},
		Redis: RedisConfig{
			PoolSize:     20,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path (falling back to BALLOTGUARD_CONFIG) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("BALLOTGUARD_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds the configuration from defaults and the environment only.
func FromEnv() (Config, error) {
	cfg := Default()
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Environment = getEnvString("ENVIRONMENT", cfg.Environment)
	cfg.Addr = getEnvString("BALLOTGUARD_ADDR", cfg.Addr)
	cfg.DatabaseURL = getEnvString("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnvString("REDIS_URL", cfg.RedisURL)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = pstrings.SplitList(brokers)
	}
	cfg.AuditTopic = getEnvString("AUDIT_TOPIC", cfg.AuditTopic)
	cfg.JWTSigningKey = getEnvString("JWT_SIGNING_KEY", cfg.JWTSigningKey)
	cfg.JWTIssuer = getEnvString("JWT_ISSUER", cfg.JWTIssuer)
	cfg.AdminToken = getEnvString("ADMIN_API_TOKEN", cfg.AdminToken)
	cfg.Timezone = getEnvString("ELECTION_TIMEZONE", cfg.Timezone)
	cfg.LogLevel = getEnvString("LOG_LEVEL", cfg.LogLevel)
	cfg.CastTimeout = getEnvDuration("CAST_TIMEOUT", cfg.CastTimeout)

	cfg.OTP.TTL = getEnvDuration("OTP_TTL", cfg.OTP.TTL)
	cfg.OTP.FreshWindow = getEnvDuration("OTP_FRESH_WINDOW", cfg.OTP.FreshWindow)
	cfg.OTP.CodeLength = getEnvInt("OTP_CODE_LENGTH", cfg.OTP.CodeLength)
	cfg.OTP.MaxAttempts = getEnvInt("OTP_MAX_ATTEMPTS", cfg.OTP.MaxAttempts)
	cfg.OTP.IssueInterval = getEnvDuration("OTP_ISSUE_INTERVAL", cfg.OTP.IssueInterval)
	cfg.OTP.IssueBurst = getEnvInt("OTP_ISSUE_BURST", cfg.OTP.IssueBurst)
	cfg.OTP.BcryptCost = getEnvInt("OTP_BCRYPT_COST", cfg.OTP.BcryptCost)

	cfg.Reconcile.Enabled = getEnvBool("RECONCILE_ENABLED", cfg.Reconcile.Enabled)
	cfg.Reconcile.Interval = getEnvDuration("RECONCILE_INTERVAL", cfg.Reconcile.Interval)
	cfg.Reconcile.ReportHistory = getEnvInt("RECONCILE_REPORT_HISTORY", cfg.Reconcile.ReportHistory)

	cfg.RateLimit.Enabled = getEnvBool("RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.Burst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimit.Burst)
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = f
		}
	}
}

// Validate rejects configurations that would make the cast path unsafe or
// unusable.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: unknown timezone %q: %w", c.Timezone, err)
	}
	if c.CastTimeout <= 0 {
		return fmt.Errorf("config: cast_timeout must be positive")
	}
	if c.OTP.TTL <= 0 || c.OTP.FreshWindow <= 0 || c.OTP.IssueInterval <= 0 {
		return fmt.Errorf("config: otp durations must be positive")
	}
	if c.OTP.CodeLength < 4 || c.OTP.CodeLength > 10 {
		return fmt.Errorf("config: otp code_length must be between 4 and 10, got %d", c.OTP.CodeLength)
	}
	if c.OTP.MaxAttempts < 1 || c.OTP.IssueBurst < 1 {
		return fmt.Errorf("config: otp max_attempts and issue_burst must be at least 1")
	}
	if c.Reconcile.Enabled && c.Reconcile.Interval <= 0 {
		return fmt.Errorf("config: reconcile interval must be positive")
	}
	if c.Reconcile.ReportHistory < 1 {
		return fmt.Errorf("config: reconcile report_history must be at least 1")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("config: rate_limit needs a positive requests_per_second and burst")
	}
	if c.Environment == "production" {
		if c.JWTSigningKey == Default().JWTSigningKey {
			return fmt.Errorf("config: jwt_signing_key must be set in production")
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: database_url is required in production")
		}
	}
	return nil
}

// Location resolves the election timezone. Validate guarantees it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
