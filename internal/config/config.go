package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	ModePolling = "polling"
	ModeWebhook = "webhook"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port string

	DatabaseDriver string
	DatabaseURL    string

	TelegramToken         string
	TelegramMode          string
	TelegramWebhookSecret string
	TelegramWebhookURL    string
	TelegramAPIURL        string
	SendRatePerSec        float64

	CompletionProvider string
	CompletionTimeout  time.Duration
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	GeminiAPIKey       string
	GeminiModel        string

	// AdminToken guards the /users admin routes; they are not mounted
	// when it is empty.
	AdminToken string

	LogLevel string
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// Load reads .env (if present) and the process environment. It does not
// validate; call Validate before starting the bot.
func Load() (*Config, error) {
	_ = godotenv.Load()

	timeout, err := getDuration("COMPLETION_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	rate, err := getFloat("SEND_RATE_PER_SEC", 25)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                  getEnv("PORT", "8080"),
		DatabaseDriver:        getEnv("DATABASE_DRIVER", DriverPostgres),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		TelegramToken:         getEnv("TELEGRAM_TOKEN", ""),
		TelegramMode:          getEnv("TELEGRAM_MODE", ModePolling),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		TelegramWebhookURL:    getEnv("TELEGRAM_WEBHOOK_URL", ""),
		TelegramAPIURL:        getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		SendRatePerSec:        rate,
		CompletionProvider:    getEnv("COMPLETION_PROVIDER", ProviderOpenAI),
		CompletionTimeout:     timeout,
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AdminToken:            getEnv("ADMIN_TOKEN", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}, nil
}

// ValidateDatabase checks only the keys needed to reach the database, so the
// migrate command can run without bot credentials.
func (c *Config) ValidateDatabase() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	switch c.TelegramMode {
	case ModePolling, ModeWebhook:
	default:
		return fmt.Errorf("TELEGRAM_MODE must be %q or %q, got %q", ModePolling, ModeWebhook, c.TelegramMode)
	}
	switch c.CompletionProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is not set")
		}
	default:
		return fmt.Errorf("COMPLETION_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.CompletionProvider)
	}
	if c.CompletionTimeout <= 0 {
		return fmt.Errorf("COMPLETION_TIMEOUT must be positive")
	}
	if c.SendRatePerSec <= 0 {
		return fmt.Errorf("SEND_RATE_PER_SEC must be positive")
	}
	return nil
}
