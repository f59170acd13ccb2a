package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port        string
	Origin      string
	Environment string
	Database    DatabaseConfig
	Generation  GenerationConfig
	// MaxImageBytes bounds the decoded size of an uploaded medical image.
	MaxImageBytes int64
	// HistoryLimit caps how many records a single history listing returns.
	HistoryLimit int
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// GenerationConfig holds everything needed to talk to the generative model
// provider: which provider, credentials, model selection and the retry
// policy applied to generation calls.
type GenerationConfig struct {
	// Provider selects the backing model API: "gemini" (default) or "openai".
	Provider        string
	GeminiAPIKey    string
	GeminiBaseURL   string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	Model           string
	MaxOutputTokens int
	// AttemptTimeout bounds a single generation call; Attempts bounds how
	// many times a transient failure is retried before giving up.
	AttemptTimeout time.Duration
	Attempts       int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "remote_diagnosis"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	attemptTimeoutSec, err := getEnvAsInt("GENERATION_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	attempts, err := getEnvAsInt("GENERATION_MAX_ATTEMPTS", 2)
	if err != nil {
		return nil, err
	}
	if attempts < 1 {
		return nil, fmt.Errorf("GENERATION_MAX_ATTEMPTS must be at least 1, got %d", attempts)
	}
	maxTokens, err := getEnvAsInt("GENERATION_MAX_OUTPUT_TOKENS", 4096)
	if err != nil {
		return nil, err
	}

	genConfig := GenerationConfig{
		Provider:        getEnv("GENERATION_PROVIDER", "gemini"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:   getEnv("GEMINI_BASE_URL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		Model:           getEnv("GENERATION_MODEL", ""),
		MaxOutputTokens: maxTokens,
		AttemptTimeout:  time.Duration(attemptTimeoutSec) * time.Second,
		Attempts:        attempts,
	}
	if genConfig.Model == "" {
		switch genConfig.Provider {
		case "openai":
			genConfig.Model = "gpt-4o-mini"
		default:
			genConfig.Model = "gemini-2.0-flash"
		}
	}

	maxImageMB, err := getEnvAsInt("MAX_IMAGE_MB", 10)
	if err != nil {
		return nil, err
	}
	historyLimit, err := getEnvAsInt("HISTORY_LIMIT", 100)
	if err != nil {
		return nil, err
	}

	// Return complete configuration
	return &Config{
		Port:          getEnv("PORT", "8000"),
		Origin:        getEnv("ORIGIN", "*"),
		Environment:   getEnv("APP_ENV", "development"),
		Database:      dbConfig,
		Generation:    genConfig,
		MaxImageBytes: int64(maxImageMB) << 20,
		HistoryLimit:  historyLimit,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an integer environment variable with a default value.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
