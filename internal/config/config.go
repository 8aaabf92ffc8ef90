// Package config provides unified configuration for all StatData commands.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the unified configuration for the StatData toolchain.
type Config struct {
	// CacheRoot is the base directory for the versioned dataset cache
	CacheRoot string `json:"cache_root" yaml:"cache_root"`

	// CatalogPath is the path to the catalog database file.
	// Defaults to <CacheRoot>/catalog.db.
	CatalogPath string `json:"catalog_path" yaml:"catalog_path"`

	// DefaultLanguage is the language labels are stored in
	DefaultLanguage string `json:"default_language" yaml:"default_language"`

	// HTTP configuration for the API server
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Download configuration for archive retrieval
	Download DownloadConfig `json:"download" yaml:"download"`

	// Mirror configuration for cloud mirroring of cache entries
	Mirror MirrorConfig `json:"mirror" yaml:"mirror"`

	// Log configuration
	Log LogConfig `json:"log" yaml:"log"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the listen address for the API server
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// DownloadConfig holds archive download configuration.
type DownloadConfig struct {
	// Timeout is the per-request timeout
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of retry attempts for failed downloads
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// UserAgent is sent with every download request
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// Mirror backend types.
const (
	MirrorNone  = "none"
	MirrorLocal = "local"
	MirrorS3    = "s3"
)

// MirrorConfig holds cloud mirroring configuration.
type MirrorConfig struct {
	// Type is the mirror backend: none, local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local mirror path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 mirror configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is the log level: debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// JSON enables JSON log output (console otherwise)
	JSON bool `json:"json" yaml:"json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		CacheRoot:       filepath.Join(home, ".statdata"),
		DefaultLanguage: "en",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Download: DownloadConfig{
			Timeout:    60 * time.Second,
			MaxRetries: 3,
			UserAgent:  "statdata/0.1",
		},
		Mirror: MirrorConfig{
			Type: MirrorNone,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Resolve fills derived paths based on CacheRoot.
func (c *Config) Resolve() {
	if c.CacheRoot == "" {
		c.CacheRoot = DefaultConfig().CacheRoot
	}
	if c.CatalogPath == "" {
		c.CatalogPath = filepath.Join(c.CacheRoot, "catalog.db")
	}
	if c.Mirror.Type == MirrorLocal && c.Mirror.Path == "" {
		c.Mirror.Path = filepath.Join(c.CacheRoot, "mirror")
	}
}

// TranslationsDir returns the directory holding label translation tables.
func (c *Config) TranslationsDir() string {
	return filepath.Join(c.CacheRoot, "translations")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.CacheRoot == "" {
		return fmt.Errorf("cache_root is required")
	}

	switch c.Mirror.Type {
	case "", MirrorNone, MirrorLocal, MirrorS3:
		// Valid mirror types
	default:
		return fmt.Errorf("invalid mirror type: %s (must be none, local, or s3)", c.Mirror.Type)
	}

	if c.Mirror.Type == MirrorS3 && c.Mirror.S3.Bucket == "" {
		return fmt.Errorf("mirror.s3.bucket is required when mirror type is s3")
	}

	if c.Download.MaxRetries < 0 {
		return fmt.Errorf("download.max_retries must not be negative, got %d", c.Download.MaxRetries)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the STATDATA_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("STATDATA_CACHE_ROOT"); v != "" {
		cfg.CacheRoot = v
	}
	if v := os.Getenv("STATDATA_CATALOG_PATH"); v != "" {
		cfg.CatalogPath = v
	}
	if v := os.Getenv("STATDATA_DEFAULT_LANGUAGE"); v != "" {
		cfg.DefaultLanguage = v
	}

	// HTTP configuration
	if v := os.Getenv("STATDATA_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}

	// Download configuration
	if v := os.Getenv("STATDATA_DOWNLOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Download.Timeout = d
		}
	}
	if v := os.Getenv("STATDATA_DOWNLOAD_MAX_RETRIES"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Download.MaxRetries)
	}
	if v := os.Getenv("STATDATA_DOWNLOAD_USER_AGENT"); v != "" {
		cfg.Download.UserAgent = v
	}

	// Mirror configuration
	if v := os.Getenv("STATDATA_MIRROR_TYPE"); v != "" {
		cfg.Mirror.Type = v
	}
	if v := os.Getenv("STATDATA_MIRROR_PATH"); v != "" {
		cfg.Mirror.Path = v
	}
	if v := os.Getenv("STATDATA_S3_BUCKET"); v != "" {
		cfg.Mirror.S3.Bucket = v
	}
	if v := os.Getenv("STATDATA_S3_REGION"); v != "" {
		cfg.Mirror.S3.Region = v
	}
	if v := os.Getenv("STATDATA_S3_ENDPOINT"); v != "" {
		cfg.Mirror.S3.Endpoint = v
	}

	// Log configuration
	if v := os.Getenv("STATDATA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STATDATA_LOG_JSON"); v != "" {
		cfg.Log.JSON = v == "true" || v == "1"
	}
}

// Load builds the effective configuration: defaults, then the optional
// config file, then environment overrides.
func Load(path string) (*Config, error) {
	var cfg *Config
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = DefaultConfig()
	}

	LoadFromEnv(cfg)
	cfg.Resolve()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
