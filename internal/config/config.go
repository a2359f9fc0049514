package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for the proxy.
type Config struct {
	HTTPPort  string
	JWTSecret []byte
	Database  DatabaseConfig
	Cache     CacheConfig
	Upstream  UpstreamConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// CacheConfig holds cache settings
type CacheConfig struct {
	ModelCacheSize int
	ModelCacheTTL  time.Duration
}

// UpstreamConfig holds settings for the upstream LLM endpoint
type UpstreamConfig struct {
	BaseURL          string
	APIKey           string
	DefaultBaseModel string
	RequestTimeout   time.Duration
}

// fileConfig mirrors the optional YAML configuration file. Fields present in
// the file override environment values.
type fileConfig struct {
	HTTPPort string `yaml:"http_port"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Upstream struct {
		BaseURL          string `yaml:"base_url"`
		APIKey           string `yaml:"api_key"`
		DefaultBaseModel string `yaml:"default_base_model"`
	} `yaml:"upstream"`
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// Load reads configuration from environment variables, then applies the
// optional YAML file named by CONFIG_FILE on top.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:  getEnvString("HTTP_PORT", "8080"),
		JWTSecret: []byte(getEnvString("JWT_SECRET", "supersecretkey")),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Cache: CacheConfig{
			ModelCacheSize: getEnvInt("CACHE_MODEL_SIZE", 500),
			ModelCacheTTL:  getEnvDuration("CACHE_MODEL_TTL", 15*time.Minute),
		},
		Upstream: UpstreamConfig{
			BaseURL:          getEnvString("UPSTREAM_BASE_URL", "http://localhost:11434/v1"),
			APIKey:           getEnvString("UPSTREAM_API_KEY", "ollama"),
			DefaultBaseModel: getEnvString("UPSTREAM_DEFAULT_BASE_MODEL", "llama3.2"),
			RequestTimeout:   getEnvDuration("UPSTREAM_REQUEST_TIMEOUT", 60*time.Second),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if file.HTTPPort != "" {
		cfg.HTTPPort = file.HTTPPort
	}
	if file.Database.URL != "" {
		cfg.Database.URL = file.Database.URL
	}
	if file.Upstream.BaseURL != "" {
		cfg.Upstream.BaseURL = file.Upstream.BaseURL
	}
	if file.Upstream.APIKey != "" {
		cfg.Upstream.APIKey = file.Upstream.APIKey
	}
	if file.Upstream.DefaultBaseModel != "" {
		cfg.Upstream.DefaultBaseModel = file.Upstream.DefaultBaseModel
	}

	return nil
}
