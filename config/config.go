package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Storage driver names accepted in STORAGE_DRIVER.
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	BaseURL    string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration (optional; token revocation falls back to an
	// in-process store and rate limiting is disabled when unset)
	RedisURL string

	// JWT configuration
	JWTSecret    string
	TokenTTLHour int

	// Image storage configuration
	StorageDriver string
	StoragePath   string
	S3Bucket      string
	AWSRegion     string

	// CORS configuration
	CORSOrigin string
}

// Load creates a new Config instance from environment variables, reading an
// optional .env file first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		DBName:        getEnv("DB_NAME", "cuisella"),
		DBSSLMode:     getEnv("DB_SSL_MODE", "disable"),
		RedisURL:      getEnv("REDIS_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		TokenTTLHour:  getEnvInt("TOKEN_TTL_HOURS", 24),
		StorageDriver: getEnv("STORAGE_DRIVER", StorageDriverLocal),
		StoragePath:   getEnv("STORAGE_PATH", "storage"),
		S3Bucket:      getEnv("S3_BUCKET_NAME", ""),
		AWSRegion:     getEnv("AWS_REGION", ""),
		CORSOrigin:    getEnv("CORS_ORIGIN", "http://localhost:5173"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.StorageDriver {
	case StorageDriverLocal:
		if c.StoragePath == "" {
			return fmt.Errorf("STORAGE_PATH is required for the local storage driver")
		}
	case StorageDriverS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET_NAME is required for the s3 storage driver")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", c.StorageDriver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
