package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/upb/recipe-rag/internal/vectormath"
)

// Store backends
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// ErrMissingDatabaseSettings is returned when any required DB_* variable is unset.
var ErrMissingDatabaseSettings = errors.New("missing required database settings")

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Store         StoreConfig
	Embedding     EmbeddingConfig
	LLM           LLMConfig
	Container     ContainerConfig
	Admin         AdminConfig
	Ingest        IngestConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// RequestTimeout bounds a whole request and must exceed LLM.Timeout.
	RequestTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// Host, Port, Database, User and Password are all required.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// StoreConfig selects and tunes the vector store.
type StoreConfig struct {
	Backend    string
	SQLitePath string
	Metric     vectormath.Metric
	// Probes is the number of IVFFlat lists scanned per query.
	Probes int
	// ReindexGrowth triggers a rebuild once the row count reaches this
	// multiple of the count at the last build.
	ReindexGrowth float64
}

// EmbeddingConfig configures the encoder. An empty BaseURL selects the
// built-in hashing encoder.
type EmbeddingConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int
	Timeout   time.Duration
}

// LLMConfig configures the generative model. An empty BaseURL means
// search-only mode.
type LLMConfig struct {
	Model       string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
}

// ContainerConfig controls loopback address translation.
type ContainerConfig struct {
	InContainer bool
	HostAlias   string
}

// AdminConfig protects the admin endpoints. An empty JWTSecret disables them.
type AdminConfig struct {
	JWTSecret string
	JWTIssuer string
}

// IngestConfig holds defaults for the batch ingestion job.
type IngestConfig struct {
	ErrorLogPath   string
	SyntheticCount int
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 90*time.Second),
		},
		Database: loadDatabaseConfig(),
		Store: StoreConfig{
			Backend:       getEnv("STORE_BACKEND", BackendPostgres),
			SQLitePath:    getEnv("SQLITE_PATH", "recipes.db"),
			Metric:        vectormath.Metric(getEnv("DISTANCE_METRIC", string(vectormath.MetricL2))),
			Probes:        getEnvAsInt("IVFFLAT_PROBES", 10),
			ReindexGrowth: getEnvAsFloat("REINDEX_GROWTH_FACTOR", 2.0),
		},
		Embedding: EmbeddingConfig{
			BaseURL:   getEnv("EMBEDDING_BASE_URL", ""),
			APIKey:    getEnv("EMBEDDING_API_KEY", ""),
			Model:     getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
			BatchSize: getEnvAsInt("EMBEDDING_BATCH_SIZE", 64),
			Timeout:   getEnvAsDuration("EMBEDDING_TIMEOUT", 60*time.Second),
		},
		LLM: LLMConfig{
			Model:       getEnv("LLM_MODEL", "llama3.1"),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.2),
		},
		Container: ContainerConfig{
			InContainer: getEnvAsBool("RUNNING_IN_CONTAINER", detectContainer()),
			HostAlias:   getEnv("CONTAINER_HOST_ALIAS", "host.docker.internal"),
		},
		Admin: AdminConfig{
			JWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
			JWTIssuer: getEnv("ADMIN_JWT_ISSUER", "recipe-rag"),
		},
		Ingest: IngestConfig{
			ErrorLogPath:   getEnv("INGEST_ERROR_LOG", "ingest_error.log"),
			SyntheticCount: getEnvAsInt("INGEST_SYNTHETIC_COUNT", 1000),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:*"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Loopback URLs are rewritten once here so nothing downstream has to
	// know whether it runs inside a container.
	cfg.LLM.BaseURL = TranslateLoopback(cfg.LLM.BaseURL, cfg.Container.InContainer, cfg.Container.HostAlias)
	cfg.Embedding.BaseURL = TranslateLoopback(cfg.Embedding.BaseURL, cfg.Container.InContainer, cfg.Container.HostAlias)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendPostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: %s, %s", BackendPostgres, BackendSQLite)
	}

	if _, err := vectormath.ParseMetric(string(c.Store.Metric)); err != nil {
		return err
	}
	if c.Store.Probes < 1 {
		return fmt.Errorf("IVFFLAT_PROBES must be at least 1, got %d", c.Store.Probes)
	}
	if c.Store.ReindexGrowth <= 1 {
		return fmt.Errorf("REINDEX_GROWTH_FACTOR must be greater than 1, got %v", c.Store.ReindexGrowth)
	}
	if c.Embedding.BatchSize < 1 {
		return fmt.Errorf("EMBEDDING_BATCH_SIZE must be at least 1, got %d", c.Embedding.BatchSize)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// Validate reports every missing required database setting at once.
func (c *DatabaseConfig) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if c.Port <= 0 {
		missing = append(missing, "DB_PORT")
	}
	if c.Database == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.User == "" {
		missing = append(missing, "DB_USER")
	}
	if c.Password == "" {
		missing = append(missing, "DB_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingDatabaseSettings, strings.Join(missing, ", "))
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsConfigured reports whether a generative model endpoint is available.
func (c *LLMConfig) IsConfigured() bool {
	return c.BaseURL != ""
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, quoteDSNValue(c.User), quoteDSNValue(c.Password), c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password).
func (c *DatabaseConfig) LogString() string {
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", ""),
		Port:            getEnvAsInt("DB_PORT", 0),
		User:            getEnv("DB_USER", ""),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", ""),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// quoteDSNValue quotes a key/value DSN value so passwords with spaces or
// quotes survive lib/pq parsing.
func quoteDSNValue(v string) string {
	if v == "" || strings.ContainsAny(v, ` '\`) {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `'`, `\'`)
		return "'" + v + "'"
	}
	return v
}

// detectContainer is evaluated once while loading; RUNNING_IN_CONTAINER
// overrides it.
func detectContainer() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8000)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
