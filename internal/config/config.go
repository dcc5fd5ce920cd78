package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	BaseURL            string
	Env                string
	DatabaseDriver     string
	DatabaseURL        string
	SessionSecret      string
	GoogleClientID     string
	GoogleClientSecret string
	AIProvider         string
	AIKey              string
	RedisAddr          string
	RedisPassword      string
	WebhookUser        string
	WebhookPassword    string
	RuleWorkers        int
	RuleCacheSize      int
	DefaultLabelsFile  string
	MaxFetchEmails     int
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	workers, err := GetEnvInt("RULE_WORKERS", 0)
	if err != nil {
		return nil, err
	}
	cacheSize, err := GetEnvInt("RULE_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	maxFetch, err := GetEnvInt("MAX_FETCH_EMAILS", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:               GetEnv("PORT", "8080"),
		BaseURL:            GetEnv("BASE_URL", "http://localhost:8080"),
		Env:                GetEnv("ENV", "development"),
		DatabaseDriver:     GetEnv("DATABASE_DRIVER", ""),
		DatabaseURL:        GetEnv("DATABASE_URL", ""),
		SessionSecret:      GetEnv("SESSION_SECRET", "175cd51c-b5e7-4218-81ed-e6832c8b53f1"),
		GoogleClientID:     GetEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: GetEnv("GOOGLE_CLIENT_SECRET", ""),
		AIProvider:         GetEnv("AI_PROVIDER", "gemini"),
		AIKey:              GetEnv("AI_API_KEY", ""),
		RedisAddr:          GetEnv("REDIS_ADDR", ""),
		RedisPassword:      GetEnv("REDIS_PASSWORD", ""),
		WebhookUser:        GetEnv("WEBHOOK_USER", ""),
		WebhookPassword:    GetEnv("WEBHOOK_PASSWORD", ""),
		RuleWorkers:        workers,
		RuleCacheSize:      cacheSize,
		DefaultLabelsFile:  GetEnv("DEFAULT_LABELS_FILE", "labels.yaml"),
		MaxFetchEmails:     maxFetch,
	}

	// DATABASE_URL alone keeps meaning postgres, as before drivers were selectable.
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = "memory"
		if cfg.DatabaseURL != "" {
			cfg.DatabaseDriver = "postgres"
		}
	}
	return cfg, nil
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "memory":
	case "postgres", "sqlite":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for driver %s", c.DatabaseDriver)
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be memory, postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if (c.WebhookUser == "") != (c.WebhookPassword == "") {
		return fmt.Errorf("WEBHOOK_USER and WEBHOOK_PASSWORD must be set together")
	}
	if c.RuleWorkers < 0 {
		return fmt.Errorf("RULE_WORKERS must not be negative")
	}
	if c.RuleCacheSize < 0 {
		return fmt.Errorf("RULE_CACHE_SIZE must not be negative")
	}
	if c.IsProduction() {
		if c.GoogleClientID == "" {
			return fmt.Errorf("GOOGLE_CLIENT_ID is required")
		}
		if c.GoogleClientSecret == "" {
			return fmt.Errorf("GOOGLE_CLIENT_SECRET is required")
		}
		if c.AIKey == "" && c.AIProvider != "mock" {
			return fmt.Errorf("AI_API_KEY is required")
		}
	}
	return nil
}
