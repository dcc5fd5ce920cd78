package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RULE_WORKERS", "")
	t.Setenv("RULE_CACHE_SIZE", "")
	t.Setenv("ENV", "development")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.DatabaseDriver)
	assert.Equal(t, 0, cfg.RuleWorkers)
	assert.Equal(t, 256, cfg.RuleCacheSize)
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseURLImpliesPostgres(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/mail?sslmode=disable")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
}

func TestBadIntegers(t *testing.T) {
	t.Setenv("RULE_WORKERS", "many")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "RULE_WORKERS")
}

func TestValidate(t *testing.T) {
	valid := Config{DatabaseDriver: "memory", SessionSecret: "s", Env: "development"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }, "DATABASE_DRIVER"},
		{"sqlite without url", func(c *Config) { c.DatabaseDriver = "sqlite" }, "DATABASE_URL"},
		{"half webhook auth", func(c *Config) { c.WebhookUser = "hook" }, "WEBHOOK_PASSWORD"},
		{"negative workers", func(c *Config) { c.RuleWorkers = -1 }, "RULE_WORKERS"},
		{"production needs google", func(c *Config) { c.Env = "production" }, "GOOGLE_CLIENT_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
