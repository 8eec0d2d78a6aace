package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Locking  LockingConfig  `yaml:"locking"`
	Trash    TrashConfig    `yaml:"trash"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	Port       int    `yaml:"port"`
	Host       string `yaml:"host"`
	UserHeader string `yaml:"user_header"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	Charset      string `yaml:"charset"`
	SSLMode      string `yaml:"sslmode"`
	Path         string `yaml:"path"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	LogLevel     string `yaml:"log_level"`
}

type StorageConfig struct {
	Backend           string    `yaml:"backend"`
	BasePath          string    `yaml:"base_path"`
	GCS               GCSConfig `yaml:"gcs"`
	MaxFileSize       int64     `yaml:"max_file_size"`
	AllowedExtensions []string  `yaml:"allowed_extensions"`
	DefaultUserQuota  int64     `yaml:"default_user_quota"`
	HashChunkSize     int       `yaml:"hash_chunk_size"`
}

type GCSConfig struct {
	ProjectID       string `yaml:"project_id"`
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LockingConfig struct {
	Backend            string `yaml:"backend"`
	TTLSeconds         int    `yaml:"ttl_seconds"`
	WaitTimeoutSeconds int    `yaml:"wait_timeout_seconds"`
}

type TrashConfig struct {
	RetentionDays int `yaml:"retention_days"`
	StaleFileDays int `yaml:"stale_file_days"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	BackendLocal = "local"
	BackendGCS   = "gcs"
	BackendRedis = "redis"
)

// DefaultAllowedExtensions is the upload allow-list used when none is configured.
var DefaultAllowedExtensions = []string{
	"txt", "pdf", "png", "jpg", "jpeg", "gif", "doc", "docx",
	"xls", "xlsx", "ppt", "pptx", "zip", "rar", "mp3", "mp4",
	"avi", "mov", "csv", "json", "xml", "html", "css", "js",
}

var AppConfig *Config

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = &cfg
	return &cfg, nil
}

// Default returns a configuration with every default applied, for embedded use and tests.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.UserHeader == "" {
		cfg.Server.UserHeader = "X-User-ID"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverMySQL
	}
	if cfg.Database.Charset == "" {
		cfg.Database.Charset = "utf8mb4"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "greencloud.db"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendLocal
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "uploads"
	}
	if cfg.Storage.MaxFileSize == 0 {
		cfg.Storage.MaxFileSize = 100 << 20
	}
	if len(cfg.Storage.AllowedExtensions) == 0 {
		cfg.Storage.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	}
	if cfg.Storage.DefaultUserQuota == 0 {
		cfg.Storage.DefaultUserQuota = 5 << 30
	}
	if cfg.Storage.HashChunkSize <= 0 {
		cfg.Storage.HashChunkSize = 4096
	}
	if cfg.Locking.Backend == "" {
		cfg.Locking.Backend = BackendLocal
	}
	if cfg.Locking.TTLSeconds <= 0 {
		cfg.Locking.TTLSeconds = 30
	}
	if cfg.Locking.WaitTimeoutSeconds <= 0 {
		cfg.Locking.WaitTimeoutSeconds = 10
	}
	if cfg.Trash.RetentionDays == 0 {
		cfg.Trash.RetentionDays = 30
	}
	if cfg.Trash.StaleFileDays == 0 {
		cfg.Trash.StaleFileDays = 180
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case BackendLocal:
	case BackendGCS:
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}
	switch c.Locking.Backend {
	case BackendLocal, BackendRedis:
	default:
		return fmt.Errorf("unsupported locking backend %q", c.Locking.Backend)
	}
	if c.Storage.DefaultUserQuota < 0 {
		return fmt.Errorf("storage.default_user_quota must not be negative")
	}
	if c.Trash.RetentionDays < 0 {
		return fmt.Errorf("trash.retention_days must not be negative")
	}
	return nil
}
