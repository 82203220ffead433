package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	Port     uint16

	MyParcel MyParcelConfig

	// LabelArchive stores every label PDF served by the HTTP API in Storage.
	LabelArchive bool
	Storage      StorageConfig

	// Sentry error tracking, off while SentryDSN is empty.
	SentryDSN        string
	SentryRelease    string
	SentrySampleRate float64
}

// MyParcelConfig holds the MyParcel API settings. APIKey is the default
// account used by the HTTP API and the CLI when no key is passed.
type MyParcelConfig struct {
	APIKey     string
	BaseURL    string
	Platform   string
	Version    string
	Timeout    time.Duration
	MaxRetries int
}

type StorageConfig struct {
	Provider      string // "local" or "s3"
	LocalPath     string
	LocalURL      string
	S3Endpoint    string // Optional: any S3-compatible endpoint, e.g. Cloudflare R2
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
	S3BucketName  string
	S3PublicURL   string
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Debug(".env file not found, using environment variables and defaults")
		}
	}

	cfg := &Config{
		Env:      getEnv("ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvInt("PORT", 3000),
		MyParcel: MyParcelConfig{
			APIKey:     getEnv("MYPARCEL_API_KEY", ""),
			BaseURL:    getEnv("MYPARCEL_BASE_URL", "https://api.myparcel.nl"),
			Platform:   getEnv("MYPARCEL_PLATFORM", "parcel"),
			Version:    getEnv("MYPARCEL_VERSION", ""),
			Timeout:    getEnvDuration("MYPARCEL_TIMEOUT", 30*time.Second),
			MaxRetries: int(getEnvInt("MYPARCEL_MAX_RETRIES", 3)),
		},
		LabelArchive: getEnvBool("LABEL_ARCHIVE", false),
		Storage: StorageConfig{
			Provider:      getEnv("STORAGE_PROVIDER", "local"),
			LocalPath:     getEnv("LOCAL_STORAGE_PATH", "./data/labels"),
			LocalURL:      getEnv("LOCAL_STORAGE_URL", "/labels"),
			S3Endpoint:    getEnv("S3_ENDPOINT", ""),
			S3Region:      getEnv("S3_REGION", "auto"),
			S3AccessKeyID: getEnv("S3_ACCESS_KEY_ID", ""),
			S3SecretKey:   getEnv("S3_SECRET_ACCESS_KEY", ""),
			S3BucketName:  getEnv("S3_BUCKET_NAME", ""),
			S3PublicURL:   getEnv("S3_PUBLIC_URL", ""),
		},
		SentryDSN:        getEnv("SENTRY_DSN", ""),
		SentryRelease:    getEnv("SENTRY_RELEASE", ""),
		SentrySampleRate: getEnvFloat("SENTRY_SAMPLE_RATE", 1.0),
	}

	// Validate env
	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.Env == "prod" && cfg.MyParcel.APIKey == "" {
		return nil, fmt.Errorf("MYPARCEL_API_KEY must be set in production environment")
	}

	if cfg.LabelArchive && cfg.Storage.Provider == "s3" {
		if cfg.Storage.S3AccessKeyID == "" || cfg.Storage.S3SecretKey == "" {
			return nil, fmt.Errorf("S3 credentials required when archiving labels to S3")
		}
		if cfg.Storage.S3BucketName == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME required when archiving labels to S3")
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s") or whole seconds ("45").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
