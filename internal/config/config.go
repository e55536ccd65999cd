// Package config loads service configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	HTTPPort    string `yaml:"http_port"`
	DatabaseURL string `yaml:"database_url"`
	RedisAddr   string `yaml:"redis_addr"`

	// QueueName is the redis list the render workers consume.
	QueueName string `yaml:"queue_name"`

	// CleanupSecret authenticates the reaper trigger endpoint. Required:
	// a missing secret fails startup rather than disabling auth.
	CleanupSecret string `yaml:"cleanup_secret"`

	// ReapTimeoutMinutes is how long a job may sit non-terminal before
	// the reaper force-fails it.
	ReapTimeoutMinutes int `yaml:"reap_timeout_minutes"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig selects and configures the object storage provider.
type StorageConfig struct {
	Provider  string       `yaml:"provider"` // localfs | s3 | gdrive
	LocalRoot string       `yaml:"local_root"`
	S3        S3Config     `yaml:"s3"`
	GDrive    GDriveConfig `yaml:"gdrive"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type GDriveConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	RootFolderID string `yaml:"root_folder_id"`
}

// ReapTimeout returns the reaper cutoff as a duration.
func (c *Config) ReapTimeout() time.Duration {
	return time.Duration(c.ReapTimeoutMinutes) * time.Minute
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides on top, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{
		HTTPPort:           "8080",
		QueueName:          "render:jobs",
		ReapTimeoutMinutes: 30,
		RateLimit:          RateLimitConfig{RPS: 50, Burst: 100},
		Log:                LogConfig{Level: "info", Format: "json"},
		Storage:            StorageConfig{Provider: "localfs"},
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr(&c.HTTPPort, "HTTP_PORT")
	setStr(&c.DatabaseURL, "DATABASE_URL")
	setStr(&c.RedisAddr, "REDIS_ADDR")
	setStr(&c.QueueName, "QUEUE_NAME")
	setStr(&c.CleanupSecret, "CLEANUP_SECRET")
	setInt(&c.ReapTimeoutMinutes, "REAP_TIMEOUT_MINUTES")

	setStr(&c.Log.Level, "LOG_LEVEL")
	setStr(&c.Log.Format, "LOG_FORMAT")

	setStr(&c.Storage.Provider, "STORAGE_PROVIDER")
	setStr(&c.Storage.LocalRoot, "STORAGE_LOCAL_ROOT")
	setStr(&c.Storage.S3.Endpoint, "S3_ENDPOINT")
	setStr(&c.Storage.S3.AccessKey, "S3_ACCESS_KEY")
	setStr(&c.Storage.S3.SecretKey, "S3_SECRET_KEY")
	setStr(&c.Storage.S3.Bucket, "S3_BUCKET")
	setBool(&c.Storage.S3.UseSSL, "S3_USE_SSL")
	setStr(&c.Storage.GDrive.ClientID, "GDRIVE_CLIENT_ID")
	setStr(&c.Storage.GDrive.ClientSecret, "GDRIVE_CLIENT_SECRET")
	setStr(&c.Storage.GDrive.RefreshToken, "GDRIVE_REFRESH_TOKEN")
	setStr(&c.Storage.GDrive.RootFolderID, "GDRIVE_FOLDER_ID")
}

// Validate enforces the settings the service refuses to start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: database_url is required")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("config: redis_addr is required")
	}
	if strings.TrimSpace(c.CleanupSecret) == "" {
		return fmt.Errorf("config: cleanup_secret is required")
	}
	if c.ReapTimeoutMinutes <= 0 {
		return fmt.Errorf("config: reap_timeout_minutes must be positive")
	}

	switch c.Storage.Provider {
	case "localfs":
		if c.Storage.LocalRoot == "" {
			return fmt.Errorf("config: storage.local_root is required for localfs")
		}
	case "s3":
		if c.Storage.S3.Endpoint == "" || c.Storage.S3.Bucket == "" {
			return fmt.Errorf("config: storage.s3 endpoint and bucket are required")
		}
	case "gdrive":
		g := c.Storage.GDrive
		if g.ClientID == "" || g.ClientSecret == "" || g.RefreshToken == "" {
			return fmt.Errorf("config: storage.gdrive credentials are required")
		}
	default:
		return fmt.Errorf("config: unknown storage provider %q", c.Storage.Provider)
	}
	return nil
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v == "true" || v == "1"
	}
}
