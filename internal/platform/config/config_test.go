package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, Default().Validate())
	})

	t.Run("yaml file overrides defaults and env overrides the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ballotguard.yaml")
		body := `
addr: ":9090"
timezone: "Asia/Manila"
otp:
  ttl: 2m
  code_length: 8
reconcile:
  interval: 1h
`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		t.Setenv("OTP_MAX_ATTEMPTS", "3")
		t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,kafka-1:9092")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, "Asia/Manila", cfg.Location().String())
		assert.Equal(t, 2*time.Minute, cfg.OTP.TTL)
		assert.Equal(t, 8, cfg.OTP.CodeLength)
		assert.Equal(t, 3, cfg.OTP.MaxAttempts)
		assert.Equal(t, time.Hour, cfg.Reconcile.Interval)
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, Default().OTP.FreshWindow, cfg.OTP.FreshWindow)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown timezone":     func(c *Config) { c.Timezone = "Mars/Olympus" },
		"short code":           func(c *Config) { c.OTP.CodeLength = 3 },
		"long code":            func(c *Config) { c.OTP.CodeLength = 11 },
		"zero fresh window":    func(c *Config) { c.OTP.FreshWindow = 0 },
		"zero cast timeout":    func(c *Config) { c.CastTimeout = 0 },
		"zero reconcile every": func(c *Config) { c.Reconcile.Interval = 0 },
		"production dev key": func(c *Config) {
			c.Environment = "production"
			c.DatabaseURL = "postgres://db"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
