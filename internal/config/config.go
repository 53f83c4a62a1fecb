package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the evinsight server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	AI       AIConfig
}

type ServerConfig struct {
	Port        int `env:"EVINSIGHT_PORT" validate:"gt=0,lte=65535"`
	Env         string
	CORSOrigins []string
}

// DatabaseConfig configures the optional run ledger. An empty URL disables it.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" validate:"gt=0"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" validate:"gte=0"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" validate:"gt=0"`
}

type AIConfig struct {
	CallTimeout time.Duration `env:"AI_CALL_TIMEOUT_SECS" validate:"gt=0"`
	OpenAI      OpenAIConfig
	DeepSeek    DeepSeekConfig
	Gemini      GeminiConfig
}

type OpenAIConfig struct {
	APIKey      string
	AssistantID string
	BaseURL     string  `env:"OPENAI_BASE_URL" validate:"required,url"`
	Model       string  `env:"OPENAI_MODEL" validate:"required"`
	MaxTokens   int     `env:"OPENAI_MAX_TOKENS" validate:"gt=0"`
	Temperature float64 `env:"OPENAI_TEMPERATURE" validate:"gte=0,lte=2"`
}

type DeepSeekConfig struct {
	APIKey       string
	BackupAPIKey string
	BaseURL      string  `env:"DEEPSEEK_BASE_URL" validate:"required,url"`
	Model        string  `env:"DEEPSEEK_MODEL" validate:"required"`
	MaxTokens    int     `env:"DEEPSEEK_MAX_TOKENS" validate:"gt=0"`
	Temperature  float64 `env:"DEEPSEEK_TEMPERATURE" validate:"gte=0,lte=2"`
}

type GeminiConfig struct {
	APIKey      string
	BaseURL     string  `env:"GEMINI_BASE_URL" validate:"required,url"`
	Model       string  `env:"GEMINI_MODEL" validate:"required"`
	MaxTokens   int     `env:"GEMINI_MAX_TOKENS" validate:"gt=0"`
	Temperature float64 `env:"GEMINI_TEMPERATURE" validate:"gte=0,lte=2"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report failures by environment variable name so operators know what to fix.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Load reads configuration from environment variables (and an optional .env file)
// and returns a validated Config. Missing provider credentials are not an error: the
// provider is simply reported as unavailable.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        envInt("EVINSIGHT_PORT", 5000),
			Env:         envString("EVINSIGHT_ENV", "development"),
			CORSOrigins: envList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		AI: AIConfig{
			CallTimeout: envDurationSecs("AI_CALL_TIMEOUT_SECS", 8*time.Second),
			OpenAI: OpenAIConfig{
				APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
				AssistantID: strings.TrimSpace(os.Getenv("OPENAI_ASSISTANT_ID")),
				BaseURL:     envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Model:       envString("OPENAI_MODEL", "gpt-4-turbo-preview"),
				MaxTokens:   envInt("OPENAI_MAX_TOKENS", 4000),
				Temperature: envFloat("OPENAI_TEMPERATURE", 0.7),
			},
			DeepSeek: DeepSeekConfig{
				APIKey:       strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY")),
				BackupAPIKey: strings.TrimSpace(os.Getenv("DEEPSEEK_BACKUP_API_KEY")),
				BaseURL:      envString("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
				Model:        envString("DEEPSEEK_MODEL", "deepseek-chat"),
				MaxTokens:    envInt("DEEPSEEK_MAX_TOKENS", 4000),
				Temperature:  envFloat("DEEPSEEK_TEMPERATURE", 0.7),
			},
			Gemini: GeminiConfig{
				APIKey:      strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
				BaseURL:     envString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
				Model:       envString("GEMINI_MODEL", "gemini-pro"),
				MaxTokens:   envInt("GEMINI_MAX_TOKENS", 4000),
				Temperature: envFloat("GEMINI_TEMPERATURE", 0.7),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s is invalid: failed %q check (got %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("validating config: %w", err)
	}

	if c.Database.URL != "" &&
		!strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("DATABASE_MAX_IDLE_CONNS (%d) must not exceed DATABASE_MAX_OPEN_CONNS (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
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

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
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

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
