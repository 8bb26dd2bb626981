package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Import   ImportConfig   `yaml:"import"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with environment override
func (c ServerConfig) GetHost() string {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig holds the stats cache settings
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL returns the cache expiry as a duration
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ArchiveConfig holds original-file storage settings. S3 mirroring is
// active only when a bucket is configured.
type ArchiveConfig struct {
	UploadsDir string `yaml:"uploads_dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	AWSProfile string `yaml:"aws_profile"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c ArchiveConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	return c.AWSProfile
}

// WatcherConfig holds inbox polling settings
type WatcherConfig struct {
	Enabled         bool   `yaml:"enabled"`
	InboxPath       string `yaml:"inbox_path"`
	IntervalMinutes int    `yaml:"interval_minutes"`
}

// Interval returns the polling interval as a duration
func (c WatcherConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// ImportConfig holds import pipeline settings
type ImportConfig struct {
	ColumnsPath     string `yaml:"columns_path"`
	AllowDuplicates bool   `yaml:"allow_duplicates"`
}

// AnalysisConfig holds anomaly detection thresholds
type AnalysisConfig struct {
	AnomalySigma       float64 `yaml:"anomaly_sigma"`
	DominantErrorShare float64 `yaml:"dominant_error_share"`
	RejectVoiceRange   bool    `yaml:"reject_voice_range"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 300
	}
	if cfg.Archive.UploadsDir == "" {
		cfg.Archive.UploadsDir = "./data/uploads"
	}
	if cfg.Archive.S3Region == "" {
		cfg.Archive.S3Region = "eu-west-3"
	}
	if cfg.Watcher.InboxPath == "" {
		cfg.Watcher.InboxPath = "./data/inbox"
	}
	if cfg.Watcher.IntervalMinutes == 0 {
		cfg.Watcher.IntervalMinutes = 5
	}
	if cfg.Import.ColumnsPath == "" {
		cfg.Import.ColumnsPath = "config/columns.yaml"
	}
	if cfg.Analysis.AnomalySigma == 0 {
		cfg.Analysis.AnomalySigma = 2.0
	}
	if cfg.Analysis.DominantErrorShare == 0 {
		cfg.Analysis.DominantErrorShare = 0.20
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env
// vars, so secrets can live in .env locally and in real env vars in
// production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if bucket := os.Getenv("ARCHIVE_S3_BUCKET"); bucket != "" {
		cfg.Archive.S3Bucket = bucket
	}
	if region := os.Getenv("ARCHIVE_S3_REGION"); region != "" {
		cfg.Archive.S3Region = region
	}
	if inbox := os.Getenv("WATCHER_INBOX_PATH"); inbox != "" {
		cfg.Watcher.InboxPath = inbox
	}

	return cfg, nil
}
