// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	NATS        NATSConfig
	Detection   DetectionConfig
	Scoring     ScoringConfig
	History     HistoryConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// RedisConfig holds the historical store connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// DetectionConfig holds the detection pipeline tuning
type DetectionConfig struct {
	MinRecords          int
	MaxVocabulary       int
	MaxNGram            int
	MinDocFrequency     int
	MinClusters         int
	MaxClusters         int
	MinClusterSize      int
	KeywordsPerTopic    int
	MinSources          int
	MaxEvidence         int
	MaxVelocity         float64
	DefaultWindowDays   int
	MaxWindowDays       int
	DefaultMaxTrends    int
	MaxTrendsLimit      int
	MaxHistoryDays      int
	StaleAfter          time.Duration
	MaintenanceInterval time.Duration
	EventsTopic         string
}

// ScoringConfig holds the scoring weights and thresholds
type ScoringConfig struct {
	MentionWeight   float64
	VelocityWeight  float64
	SourceWeight    float64
	MentionDivisor  float64
	VelocityDivisor float64
	SourceDivisor   float64
	HighThreshold   float64
	MediumThreshold float64
}

// HistoryConfig holds the historical snapshot store configuration
type HistoryConfig struct {
	Retention time.Duration
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "creatorpulse"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Detection: DetectionConfig{
			MinRecords:          getEnvAsInt("DETECT_MIN_RECORDS", 10),
			MaxVocabulary:       getEnvAsInt("DETECT_MAX_VOCABULARY", 100),
			MaxNGram:            getEnvAsInt("DETECT_MAX_NGRAM", 3),
			MinDocFrequency:     getEnvAsInt("DETECT_MIN_DOC_FREQUENCY", 2),
			MinClusters:         getEnvAsInt("DETECT_MIN_CLUSTERS", 3),
			MaxClusters:         getEnvAsInt("DETECT_MAX_CLUSTERS", 10),
			MinClusterSize:      getEnvAsInt("DETECT_MIN_CLUSTER_SIZE", 2),
			KeywordsPerTopic:    getEnvAsInt("DETECT_KEYWORDS_PER_TOPIC", 5),
			MinSources:          getEnvAsInt("DETECT_MIN_SOURCES", 2),
			MaxEvidence:         getEnvAsInt("DETECT_MAX_EVIDENCE", 5),
			MaxVelocity:         getEnvAsFloat("DETECT_MAX_VELOCITY", 500.0),
			DefaultWindowDays:   getEnvAsInt("DETECT_DEFAULT_WINDOW_DAYS", 7),
			MaxWindowDays:       getEnvAsInt("DETECT_MAX_WINDOW_DAYS", 30),
			DefaultMaxTrends:    getEnvAsInt("DETECT_DEFAULT_MAX_TRENDS", 5),
			MaxTrendsLimit:      getEnvAsInt("DETECT_MAX_TRENDS_LIMIT", 50),
			MaxHistoryDays:      getEnvAsInt("DETECT_MAX_HISTORY_DAYS", 90),
			StaleAfter:          getEnvAsDuration("DETECT_STALE_AFTER", 7*24*time.Hour),
			MaintenanceInterval: getEnvAsDuration("DETECT_MAINTENANCE_INTERVAL", 1*time.Hour),
			EventsTopic:         getEnv("DETECT_EVENTS_TOPIC", "trend"),
		},
		Scoring: ScoringConfig{
			MentionWeight:   getEnvAsFloat("SCORE_MENTION_WEIGHT", 0.3),
			VelocityWeight:  getEnvAsFloat("SCORE_VELOCITY_WEIGHT", 0.4),
			SourceWeight:    getEnvAsFloat("SCORE_SOURCE_WEIGHT", 0.3),
			MentionDivisor:  getEnvAsFloat("SCORE_MENTION_DIVISOR", 20.0),
			VelocityDivisor: getEnvAsFloat("SCORE_VELOCITY_DIVISOR", 100.0),
			SourceDivisor:   getEnvAsFloat("SCORE_SOURCE_DIVISOR", 4.0),
			HighThreshold:   getEnvAsFloat("SCORE_HIGH_THRESHOLD", 0.7),
			MediumThreshold: getEnvAsFloat("SCORE_MEDIUM_THRESHOLD", 0.4),
		},
		History: HistoryConfig{
			Retention: getEnvAsDuration("HISTORY_RETENTION", 7*24*time.Hour),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Scoring.HighThreshold < config.Scoring.MediumThreshold {
		return fmt.Errorf("high confidence threshold must be >= medium threshold")
	}
	if config.Detection.MinClusters < 2 || config.Detection.MaxClusters < config.Detection.MinClusters {
		return fmt.Errorf("cluster count bounds are invalid")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
