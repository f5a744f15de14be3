package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Attachments AttachmentsConfig `mapstructure:"attachments"`
	Search      SearchConfig      `mapstructure:"search"`
	Session     SessionConfig     `mapstructure:"session"`
	Security    SecurityConfig    `mapstructure:"security"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the record store. Driver is one of "postgres",
// "sqlite" or "mongo"; the remaining fields apply per driver.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Schema          string        `mapstructure:"schema"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MongoURI        string        `mapstructure:"mongo_uri"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// StorageConfig selects where attachment content lives. Type is one of
// "filesystem", "memory" or "s3".
type StorageConfig struct {
	Type           string `mapstructure:"type"`
	FSRoot         string `mapstructure:"fs_root"`
	PublicBaseURL  string `mapstructure:"public_base_url"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`

	S3Bucket          string `mapstructure:"s3_bucket"`
	S3Prefix          string `mapstructure:"s3_prefix"`
	S3Region          string `mapstructure:"s3_region"`
	S3Endpoint        string `mapstructure:"s3_endpoint"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
	S3UsePathStyle    bool   `mapstructure:"s3_use_path_style"`
}

type AttachmentsConfig struct {
	// NamePolicy is "count" (legacy) or "unique".
	NamePolicy string `mapstructure:"name_policy"`
}

type SearchConfig struct {
	// Match is "exact" or "contains".
	Match string `mapstructure:"match"`
}

type SessionConfig struct {
	// Store is "database" or "redis".
	Store string `mapstructure:"store"`
}

type SecurityConfig struct {
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, in increasing order of precedence. A .env file in the working
// directory is loaded first when present.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "todo-service")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "1m")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "todos")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.schema", "public")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.sqlite_path", "todos.db")
	v.SetDefault("database.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("database.log_queries", false)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")

	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.fs_root", "uploads")
	v.SetDefault("storage.public_base_url", "/uploads")
	v.SetDefault("storage.max_upload_bytes", 32<<20)
	v.SetDefault("storage.s3_region", "us-east-1")

	v.SetDefault("attachments.name_policy", "count")
	v.SetDefault("search.match", "exact")
	v.SetDefault("session.store", "database")

	v.SetDefault("security.cors_allowed_origins", []string{"https://*", "http://*"})
	v.SetDefault("security.rate_limit_requests", 100)
	v.SetDefault("security.rate_limit_window", "1s")

	v.SetDefault("metrics.enabled", true)
}

func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port": {"PORT", "SERVER_PORT"},

		"database.driver":      {"DB_DRIVER"},
		"database.host":        {"BLUEPRINT_DB_HOST"},
		"database.port":        {"BLUEPRINT_DB_PORT"},
		"database.name":        {"BLUEPRINT_DB_DATABASE"},
		"database.user":        {"BLUEPRINT_DB_USERNAME"},
		"database.password":    {"BLUEPRINT_DB_PASSWORD"},
		"database.schema":      {"BLUEPRINT_DB_SCHEMA"},
		"database.ssl_mode":    {"BLUEPRINT_DB_SSLMODE"},
		"database.mongo_uri":   {"MONGO_URI"},
		"database.sqlite_path": {"SQLITE_PATH"},

		"redis.host":     {"REDIS_HOST"},
		"redis.port":     {"REDIS_PORT"},
		"redis.password": {"REDIS_PASSWORD"},
		"redis.db":       {"REDIS_DB"},

		"logger.level":  {"LOG_LEVEL"},
		"logger.format": {"LOG_FORMAT"},

		"storage.type":                 {"STORAGE_TYPE"},
		"storage.fs_root":              {"STORAGE_FS_ROOT"},
		"storage.public_base_url":      {"STORAGE_PUBLIC_BASE_URL"},
		"storage.s3_bucket":            {"S3_BUCKET"},
		"storage.s3_region":            {"S3_REGION", "AWS_REGION"},
		"storage.s3_endpoint":          {"S3_ENDPOINT"},
		"storage.s3_access_key_id":     {"S3_ACCESS_KEY_ID"},
		"storage.s3_secret_access_key": {"S3_SECRET_ACCESS_KEY"},

		"attachments.name_policy": {"ATTACHMENT_NAME_POLICY"},
		"search.match":            {"SEARCH_MATCH"},
		"session.store":           {"SESSION_STORE"},
		"metrics.enabled":         {"ENABLE_METRICS"},
	}

	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks enumerated settings and required fields per driver.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("postgres requires database host and name")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite requires database.sqlite_path")
		}
	case "mongo":
		if c.Database.MongoURI == "" || c.Database.Name == "" {
			return fmt.Errorf("mongo requires database.mongo_uri and database.name")
		}
	default:
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}

	switch c.Storage.Type {
	case "filesystem":
		if c.Storage.FSRoot == "" {
			return fmt.Errorf("filesystem storage requires storage.fs_root")
		}
	case "memory":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("s3 storage requires storage.s3_bucket")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}

	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("storage.max_upload_bytes must be positive")
	}

	switch c.Attachments.NamePolicy {
	case "count", "unique":
	default:
		return fmt.Errorf("unknown attachment name policy: %s", c.Attachments.NamePolicy)
	}

	switch c.Search.Match {
	case "exact", "contains":
	default:
		return fmt.Errorf("unknown search match mode: %s", c.Search.Match)
	}

	switch c.Session.Store {
	case "database", "redis":
	default:
		return fmt.Errorf("unknown session store: %s", c.Session.Store)
	}

	return nil
}

// DSN returns the postgres connection string.
func (c *DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
	if c.Schema != "" {
		dsn += " search_path=" + c.Schema
	}
	return dsn
}

// URL returns the postgres connection URL used by golang-migrate.
func (c *DatabaseConfig) URL() string {
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if c.Schema != "" {
		q.Set("search_path", c.Schema)
	}
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
