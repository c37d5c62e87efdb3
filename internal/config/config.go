package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RabbitMQConfig holds message broker settings for lifecycle events.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// MetadataConfig holds the metadata service endpoint settings.
type MetadataConfig struct {
	BaseURL    string
	TimeoutSec int
}

// AuthConfig holds bearer token validation settings.
type AuthConfig struct {
	JWTSecret     string
	Issuer        string
	RequiredScope string
}

// IdempotencyConfig controls the fingerprint ledger retention window.
type IdempotencyConfig struct {
	RetentionSec     int
	EvictIntervalSec int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	Database    DatabaseConfig
	MinIO       MinIOConfig
	RabbitMQ    RabbitMQConfig
	Metadata    MetadataConfig
	Auth        AuthConfig
	Idempotency IdempotencyConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "documents.lifecycle"),
		},
		Metadata: MetadataConfig{
			BaseURL:    getEnv("METADATA_BASE_URL", ""),
			TimeoutSec: getEnvInt("METADATA_TIMEOUT_SEC", 10),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			Issuer:        getEnv("JWT_ISSUER", "docvault"),
			RequiredScope: getEnv("JWT_REQUIRED_SCOPE", "documents"),
		},
		Idempotency: IdempotencyConfig{
			RetentionSec:     getEnvInt("IDEMPOTENCY_RETENTION_SEC", 86400),
			EvictIntervalSec: getEnvInt("IDEMPOTENCY_EVICT_INTERVAL_SEC", 3600),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
