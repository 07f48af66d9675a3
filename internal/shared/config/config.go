package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Auth           AuthConfig
	Recommendation RecommendationConfig
	Analysis       AnalysisConfig
	EventStore     EventStoreConfig
	LegacyEMR      LegacyEMRConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret      string
	Issuer         string
	AccessTokenTTL time.Duration
}

// RecommendationConfig selects and configures the recommendation provider.
type RecommendationConfig struct {
	// Provider: "dosing" (rule engine over the dosing table) or "llm"
	Provider string
	// OpenAIKey and Model are used by the llm provider only
	OpenAIKey string
	Model     string
	// MaxCandidates caps how many candidates a provider returns per patient
	MaxCandidates int
}

// AnalysisConfig holds the match-classification thresholds.
// The 80/40 defaults are contractual for downstream consumers.
type AnalysisConfig struct {
	ExactThreshold   int
	PartialThreshold int
	Workers          int
}

// EventStoreConfig holds configuration for EventStoreDB (audit event streams).
type EventStoreConfig struct {
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
	Enabled  bool
}

// LegacyEMRConfig configures the hospital-information-system import adapter.
type LegacyEMRConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	Encrypt      bool
	PollInterval time.Duration
	// PrescriptionTable is the source table polled for new prescriptions
	PrescriptionTable string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "stewardrx"),
			Password: getEnv("DB_PASSWORD", "stewardrx"),
			Database: getEnv("DB_NAME", "stewardrx"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			Issuer:         getEnv("JWT_ISSUER", "stewardrx"),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TTL", 8*time.Hour),
		},
		Recommendation: RecommendationConfig{
			Provider:      getEnv("RECOMMENDATION_PROVIDER", "dosing"),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			Model:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxCandidates: getEnvInt("RECOMMENDATION_MAX_CANDIDATES", 3),
		},
		Analysis: AnalysisConfig{
			ExactThreshold:   getEnvInt("ANALYSIS_EXACT_THRESHOLD", 80),
			PartialThreshold: getEnvInt("ANALYSIS_PARTIAL_THRESHOLD", 40),
			Workers:          getEnvInt("ANALYSIS_WORKERS", 8),
		},
		EventStore: EventStoreConfig{
			Host:     getEnv("EVENTSTORE_HOST", "localhost"),
			Port:     getEnvInt("EVENTSTORE_PORT", 2113),
			Insecure: getEnvBool("EVENTSTORE_INSECURE", true),
			Username: getEnv("EVENTSTORE_USERNAME", ""),
			Password: getEnv("EVENTSTORE_PASSWORD", ""),
			Enabled:  getEnvBool("EVENTSTORE_ENABLED", true),
		},
		LegacyEMR: LegacyEMRConfig{
			Enabled:           getEnvBool("LEGACY_EMR_ENABLED", false),
			Host:              getEnv("LEGACY_EMR_HOST", "localhost"),
			Port:              getEnvInt("LEGACY_EMR_PORT", 1433),
			User:              getEnv("LEGACY_EMR_USER", ""),
			Password:          getEnv("LEGACY_EMR_PASSWORD", ""),
			Database:          getEnv("LEGACY_EMR_DATABASE", "his"),
			Encrypt:           getEnvBool("LEGACY_EMR_ENCRYPT", false),
			PollInterval:      getEnvDuration("LEGACY_EMR_POLL_INTERVAL", time.Minute),
			PrescriptionTable: getEnv("LEGACY_EMR_PRESCRIPTION_TABLE", "dbo.Prescriptions"),
		},
	}

	if cfg.Analysis.PartialThreshold > cfg.Analysis.ExactThreshold {
		return nil, fmt.Errorf("partial threshold %d exceeds exact threshold %d",
			cfg.Analysis.PartialThreshold, cfg.Analysis.ExactThreshold)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
