package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string
	PromptsPath    string

	JWTSecret string

	// Generator/grader collaborator
	AIBaseURL       string
	AIAPIKey        string
	AIModel         string
	AITimeout       time.Duration
	FallbackGrading bool

	// Due selection window queried from the store, and how many of those
	// items end up in one recall session.
	DueSelectionWindow int
	SessionBatchSize   int
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./learnloop.db"),
		DatabaseURL:    getEnv("DB_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		PromptsPath:    getEnv("PROMPTS_PATH", "./prompts"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AIBaseURL:       getEnv("AI_BASE_URL", ""),
		AIAPIKey:        getEnv("AI_API_KEY", ""),
		AIModel:         getEnv("AI_MODEL", "gpt-4o-mini"),
		AITimeout:       getEnvDuration("AI_TIMEOUT", 30*time.Second),
		FallbackGrading: getEnvBool("FALLBACK_GRADING", false),

		DueSelectionWindow: getEnvInt("DUE_SELECTION_WINDOW", 10),
		SessionBatchSize:   getEnvInt("SESSION_BATCH_SIZE", 5),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
