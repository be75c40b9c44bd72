// internal/config/config.go

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Store       StoreConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Realtime    RealtimeConfig
	Explore     ExploreConfig
	Trending    TrendingConfig
	Discussion  DiscussionConfig
	Worker      WorkerConfig
	Display     DisplayConfig
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

// StoreConfig selects the event and discussion backend
type StoreConfig struct {
	Driver string
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

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// RealtimeConfig holds change notification configuration
type RealtimeConfig struct {
	Driver        string
	SubjectPrefix string
	NotifyChannel string
	QueueSize     int
}

// ExploreConfig holds explore screen configuration
type ExploreConfig struct {
	Debounce time.Duration
}

// TrendingConfig holds trending configuration
type TrendingConfig struct {
	Limit int
	View  string
}

// DiscussionConfig holds discussion feed configuration
type DiscussionConfig struct {
	Limit int
}

// WorkerConfig holds discussion ingestion configuration
type WorkerConfig struct {
	Schedule           string
	RunOnStart         bool
	CycleTimeout       time.Duration
	RedditUserAgent    string
	RedditClientID     string
	RedditClientSecret string
	RedditPostLimit    int
	RedditCommentLimit int
	DefaultSubreddits  []string
	TwitterBearerToken string
	TwitterHost        string
	TwitterMaxResults  int
}

// DisplayConfig holds presentation settings
type DisplayConfig struct {
	Timezone string
}

// Store and realtime drivers
const (
	DriverPostgres = "postgres"
	DriverNATS     = "nats"
	DriverMemory   = "memory"
)

// Load loads configuration from a .env file, if present, and environment variables
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

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
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", DriverPostgres),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "campusevents"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Realtime: RealtimeConfig{
			Driver:        getEnv("REALTIME_DRIVER", DriverNATS),
			SubjectPrefix: getEnv("REALTIME_SUBJECT_PREFIX", "realtime"),
			NotifyChannel: getEnv("REALTIME_NOTIFY_CHANNEL", "realtime_changes"),
			QueueSize:     getEnvAsInt("REALTIME_QUEUE_SIZE", 64),
		},
		Explore: ExploreConfig{
			Debounce: getEnvAsDuration("EXPLORE_DEBOUNCE", 400*time.Millisecond),
		},
		Trending: TrendingConfig{
			Limit: getEnvAsInt("TRENDING_LIMIT", 8),
			View:  getEnv("TRENDING_VIEW", "event_trending"),
		},
		Discussion: DiscussionConfig{
			Limit: getEnvAsInt("DISCUSSION_LIMIT", 200),
		},
		Worker: WorkerConfig{
			Schedule:           getEnv("WORKER_SCHEDULE", "@every 5m"),
			RunOnStart:         getEnvAsBool("WORKER_RUN_ON_START", true),
			CycleTimeout:       getEnvAsDuration("WORKER_CYCLE_TIMEOUT", 4*time.Minute),
			RedditUserAgent:    getEnv("REDDIT_USER_AGENT", "campusevents/1.0"),
			RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
			RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
			RedditPostLimit:    getEnvAsInt("REDDIT_POST_LIMIT", 20),
			RedditCommentLimit: getEnvAsInt("REDDIT_COMMENT_LIMIT", 50),
			DefaultSubreddits:  getEnvAsSlice("WORKER_DEFAULT_SUBREDDITS", []string{"college", "university", "technology", "CampusLife"}),
			TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
			TwitterHost:        getEnv("TWITTER_HOST", "https://api.twitter.com"),
			TwitterMaxResults:  getEnvAsInt("TWITTER_MAX_RESULTS", 10),
		},
		Display: DisplayConfig{
			Timezone: getEnv("DISPLAY_TIMEZONE", "Local"),
		},
	}

	return config, validate(config)
}

// Location resolves the display timezone
func (c DisplayConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// DSN returns the connection string for the database
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// validate checks if config is valid
func validate(config Config) error {
	switch config.Store.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", config.Store.Driver)
	}

	switch config.Realtime.Driver {
	case DriverNATS, DriverMemory:
	default:
		return fmt.Errorf("unknown realtime driver %q", config.Realtime.Driver)
	}

	if config.Explore.Debounce <= 0 {
		return fmt.Errorf("explore debounce must be positive, got %s", config.Explore.Debounce)
	}

	if config.Trending.Limit <= 0 || config.Discussion.Limit <= 0 {
		return fmt.Errorf("trending and discussion limits must be positive")
	}

	if _, err := config.Display.Location(); err != nil {
		return fmt.Errorf("invalid display timezone %q: %w", config.Display.Timezone, err)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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
	values := strings.Split(valueStr, ",")
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
	return values
}
