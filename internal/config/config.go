package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration for all binaries. Each store is an
// independent database; the progress and mastery stores have no shared
// transaction domain.
type Config struct {
	// Web UI
	ServerPort      string
	SessionDuration time.Duration
	TemplatesPath   string
	StaticFilesPath string
	CSRFSecret      string // HMAC key for form tokens; random per process when unset

	// Data API
	APIAddr   string // loopback bind, TLS terminates at the reverse proxy
	APIURL    string // base URL the web UI and agent use to reach the API
	APISecret string // shared secret for service tokens; empty disables auth

	// Stores (sqlite paths by default; URL + type switch dialects)
	DatabaseType    string
	UsersDBPath     string
	VocabDBPath     string
	ConceptsDBPath  string
	UsersDBURL      string
	VocabDBURL      string
	ConceptsDBURL   string
	MigrationsPath  string

	// Corpus and agent memory
	DataDir string

	// LLM
	LLMProvider string // openai|anthropic
	LLMModel    string

	// Password reset notification (disabled when FromEmail empty)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("PORT", "5000"),
		SessionDuration: getDuration("SESSION_DURATION", 24*time.Hour),
		TemplatesPath:   getEnv("TEMPLATES_PATH", "./templates"),
		StaticFilesPath: getEnv("STATIC_PATH", "./static"),
		CSRFSecret:      os.Getenv("CSRF_SECRET"),

		APIAddr:   getEnv("API_ADDR", "127.0.0.1:8000"),
		APIURL:    getEnv("API_URL", "http://127.0.0.1:8000"),
		APISecret: os.Getenv("API_SECRET"),

		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		UsersDBPath:    getEnv("USERS_DB_PATH", "./data/users.db"),
		VocabDBPath:    getEnv("VOCAB_DB_PATH", "./data/vocab.db"),
		ConceptsDBPath: getEnv("CONCEPTS_DB_PATH", "./data/concepts.db"),
		UsersDBURL:     os.Getenv("USERS_DB_URL"),
		VocabDBURL:     os.Getenv("VOCAB_DB_URL"),
		ConceptsDBURL:  os.Getenv("CONCEPTS_DB_URL"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		DataDir: getEnv("DATA_DIR", "./data"),

		LLMProvider: getEnv("LLM_PROVIDER", "openai"),
		LLMModel:    getEnv("LLM_MODEL", "gpt-4o-mini"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: os.Getenv("SES_FROM_EMAIL"),
		SESFromName:  getEnv("SES_FROM_NAME", "Greek Tutor"),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration reads a duration in hours, falling back on parse failure
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if hours, err := strconv.Atoi(value); err == nil && hours > 0 {
		return time.Duration(hours) * time.Hour
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
