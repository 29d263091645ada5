package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Run modes
const (
	RunModeOnce   = "once"
	RunModeDaemon = "daemon"
)

// Config holds all configuration for the application
type Config struct {
	RunMode   string
	Trends    TrendsConfig
	Warehouse WarehouseConfig
	Status    StatusConfig
	Ingestion IngestionConfig
	Server    ServerConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// TrendsConfig holds the search-trends provider settings
type TrendsConfig struct {
	APIKey     string
	Endpoint   string
	Engine     string
	Geo        string
	Hours      int
	Timeout    time.Duration
	RetryCount int
}

// WarehouseConfig holds warehouse-related configuration
type WarehouseConfig struct {
	Type             string // "bigquery", "postgresql"
	Project          string
	Dataset          string
	BigQueryEndpoint string // Custom endpoint for a local emulator
	PostgresURI      string
}

// StatusConfig holds run-status store configuration
type StatusConfig struct {
	Type       string // "memory", "dynamodb", "mongodb"
	Region     string // For AWS DynamoDB
	TableName  string
	Endpoint   string // Custom endpoint for local testing
	MongoDBURI string
	MongoDB    string
}

// IngestionConfig holds ingestion-related configuration
type IngestionConfig struct {
	TablePrefix      string
	Location         *time.Location
	Interval         time.Duration
	LoadPollInterval time.Duration
	LoadTimeout      time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	PushgatewayURL string
	JobName        string
}

// Load loads configuration from a .env file (if present) and environment
// variables with defaults
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg := &Config{
		RunMode: getEnv("RUN_MODE", RunModeOnce),
		Trends: TrendsConfig{
			APIKey:     getEnv("SERPAPI_KEY", ""),
			Endpoint:   getEnv("SERPAPI_ENDPOINT", "https://serpapi.com/search.json"),
			Engine:     getEnv("TRENDS_ENGINE", "google_trends_trending_now"),
			Geo:        getEnv("TRENDS_GEO", "KE"),
			Hours:      getEnvInt("TRENDS_HOURS", 168),
			Timeout:    getEnvDuration("API_TIMEOUT", 30*time.Second),
			RetryCount: getEnvInt("RETRY_COUNT", 3),
		},
		Warehouse: WarehouseConfig{
			Type:             getEnv("WAREHOUSE_TYPE", "bigquery"),
			Project:          getEnv("GCP_PROJECT", "data-storage-485106"),
			Dataset:          getEnv("WAREHOUSE_DATASET", "google"),
			BigQueryEndpoint: getEnv("BIGQUERY_ENDPOINT", ""),
			PostgresURI:      getEnv("POSTGRES_URI", ""),
		},
		Status: StatusConfig{
			Type:       getEnv("STATUS_STORE", "memory"),
			Region:     getEnv("AWS_REGION", "us-west-2"),
			TableName:  getEnv("STATUS_TABLE", "trending_now_status"),
			Endpoint:   getEnv("DYNAMODB_ENDPOINT", ""), // For local DynamoDB
			MongoDBURI: getEnv("MONGODB_URI", ""),
			MongoDB:    getEnv("MONGODB_DATABASE", "trends"),
		},
		Ingestion: IngestionConfig{
			TablePrefix:      getEnv("TABLE_PREFIX", "trending_now"),
			Location:         loc,
			Interval:         getEnvDuration("INGESTION_INTERVAL", time.Hour),
			LoadPollInterval: getEnvDuration("LOAD_POLL_INTERVAL", 2*time.Second),
			LoadTimeout:      getEnvDuration("LOAD_TIMEOUT", 10*time.Minute),
		},
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
			JobName:        getEnv("METRICS_JOB_NAME", "trends_ingest"),
		},
	}

	return cfg, nil
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	if c.Trends.APIKey == "" {
		return fmt.Errorf("SERPAPI_KEY is required")
	}
	if c.Trends.Hours <= 0 {
		return fmt.Errorf("TRENDS_HOURS must be positive, got %d", c.Trends.Hours)
	}
	if c.Trends.RetryCount <= 0 {
		return fmt.Errorf("RETRY_COUNT must be positive, got %d", c.Trends.RetryCount)
	}

	switch c.RunMode {
	case RunModeOnce, RunModeDaemon:
	default:
		return fmt.Errorf("unsupported run mode: %s", c.RunMode)
	}

	switch c.Warehouse.Type {
	case "bigquery":
		if c.Warehouse.Project == "" {
			return fmt.Errorf("GCP_PROJECT is required for bigquery")
		}
	case "postgresql":
		if c.Warehouse.PostgresURI == "" {
			return fmt.Errorf("POSTGRES_URI is required for postgresql")
		}
	default:
		return fmt.Errorf("unsupported warehouse type: %s", c.Warehouse.Type)
	}

	switch c.Status.Type {
	case "memory", "dynamodb":
	case "mongodb":
		if c.Status.MongoDBURI == "" {
			return fmt.Errorf("MONGODB_URI is required for mongodb")
		}
	default:
		return fmt.Errorf("unsupported status store type: %s", c.Status.Type)
	}

	if c.Ingestion.LoadPollInterval <= 0 || c.Ingestion.LoadTimeout <= 0 || c.Ingestion.Interval <= 0 {
		return fmt.Errorf("durations must be positive")
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
