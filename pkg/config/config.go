// Package config loads application configuration from YAML files with
// environment-variable overrides. It provides typed structs for every
// subsystem (Server, Catalog, Search, Postgres, Mongo, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog source kinds.
const (
	SourceDirectory = "directory"
	SourcePostgres  = "postgres"
	SourceMongo     = "mongo"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Search    SearchConfig    `yaml:"search"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

// CatalogConfig says where raw episode records come from and how often the
// index is rebuilt from them.
type CatalogConfig struct {
	Source          string        `yaml:"source"`
	SegmentDir      string        `yaml:"segmentDir"`
	FilePattern     string        `yaml:"filePattern"`
	AudioDir        string        `yaml:"audioDir"`
	AudioExt        string        `yaml:"audioExt"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
	LoadTimeout     time.Duration `yaml:"loadTimeout"`
	LoadRetries     int           `yaml:"loadRetries"`
	LoadRetryDelay  time.Duration `yaml:"loadRetryDelay"`
}

// SearchConfig controls result paging.
type SearchConfig struct {
	MaxResults   int `yaml:"maxResults"`
	DefaultLimit int `yaml:"defaultLimit"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// MongoConfig holds MongoDB connection parameters for the document source.
type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	Collection     string        `yaml:"collection"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CatalogRefresh  string `yaml:"catalogRefresh"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// RateLimitConfig bounds requests per client per minute.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// AnalyticsConfig controls search-event collection and snapshotting.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	Port             int           `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case SourceDirectory:
		if c.Catalog.SegmentDir == "" {
			return fmt.Errorf("catalog.segmentDir is required for source %q", SourceDirectory)
		}
	case SourcePostgres, SourceMongo:
	default:
		return fmt.Errorf("catalog.source %q is not one of %s, %s, %s",
			c.Catalog.Source, SourceDirectory, SourcePostgres, SourceMongo)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.maxResults must be positive, got %d", c.Search.MaxResults)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.DefaultLimit > c.Search.MaxResults {
		return fmt.Errorf("search.defaultLimit must be in [1, %d], got %d",
			c.Search.MaxResults, c.Search.DefaultLimit)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Catalog: CatalogConfig{
			Source:          SourceDirectory,
			SegmentDir:      "segmented_outputs",
			FilePattern:     "*_segment.json",
			AudioDir:        "audio",
			AudioExt:        ".mp3",
			RefreshInterval: 0,
			LoadTimeout:     time.Minute,
			LoadRetries:     3,
			LoadRetryDelay:  time.Second,
		},
		Search: SearchConfig{
			MaxResults:   500,
			DefaultLimit: 50,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "podcasts",
			User:            "podcasts",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "podcasts",
			Collection:     "episodes",
			ConnectTimeout: 10 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "segment-navigator",
			Topics: KafkaTopics{
				CatalogRefresh:  "catalog-refresh",
				AnalyticsEvents: "search-analytics",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Analytics: AnalyticsConfig{
			BufferSize:       1000,
			SnapshotInterval: time.Minute,
			Port:             8083,
		},
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// applyEnvOverrides reads PN_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	envInt("PN_SERVER_PORT", &cfg.Server.Port)
	envDuration("PN_SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)

	envString("PN_CATALOG_SOURCE", &cfg.Catalog.Source)
	envString("PN_CATALOG_SEGMENT_DIR", &cfg.Catalog.SegmentDir)
	envString("PN_CATALOG_AUDIO_DIR", &cfg.Catalog.AudioDir)
	envDuration("PN_CATALOG_REFRESH_INTERVAL", &cfg.Catalog.RefreshInterval)

	envInt("PN_SEARCH_MAX_RESULTS", &cfg.Search.MaxResults)
	envInt("PN_SEARCH_DEFAULT_LIMIT", &cfg.Search.DefaultLimit)

	envString("PN_POSTGRES_HOST", &cfg.Postgres.Host)
	envInt("PN_POSTGRES_PORT", &cfg.Postgres.Port)
	envString("PN_POSTGRES_DATABASE", &cfg.Postgres.Database)
	envString("PN_POSTGRES_USER", &cfg.Postgres.User)
	envString("PN_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	envString("PN_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)

	envString("PN_MONGO_URI", &cfg.Mongo.URI)
	envString("PN_MONGO_DATABASE", &cfg.Mongo.Database)
	envString("PN_MONGO_COLLECTION", &cfg.Mongo.Collection)

	envBool("PN_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("PN_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}

	envBool("PN_REDIS_ENABLED", &cfg.Redis.Enabled)
	envString("PN_REDIS_ADDR", &cfg.Redis.Addr)
	envString("PN_REDIS_PASSWORD", &cfg.Redis.Password)
	envDuration("PN_REDIS_CACHE_TTL", &cfg.Redis.CacheTTL)

	envBool("PN_RATELIMIT_ENABLED", &cfg.RateLimit.Enabled)
	envInt("PN_RATELIMIT_RPM", &cfg.RateLimit.RequestsPerMinute)

	envString("PN_LOGGING_LEVEL", &cfg.Logging.Level)
	envString("PN_LOGGING_FORMAT", &cfg.Logging.Format)
	envString("PN_LOGGING_FILE", &cfg.Logging.File)

	envBool("PN_METRICS_ENABLED", &cfg.Metrics.Enabled)
	envInt("PN_METRICS_PORT", &cfg.Metrics.Port)

	envBool("PN_ANALYTICS_ENABLED", &cfg.Analytics.Enabled)
}
