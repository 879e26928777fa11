// Package config provides configuration loading and validation for the
// server and workers. Values come from an optional JSON file with
// environment variable overrides; main loads a .env file first via godotenv.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/recipe-importer/internal/broadcast"
	"github.com/jonathan/recipe-importer/internal/storage"
)

// Config is the full application configuration.
type Config struct {
	DatabaseURL string `json:"database_url" validate:"required"`
	ListenAddr  string `json:"listen_addr" validate:"required"`

	// Gemini
	GeminiAPIKey string `json:"gemini_api_key"`
	GeminiModel  string `json:"gemini_model"`

	// Labels is the category vocabulary for the categorize pipeline. Empty
	// means the built-in default vocabulary.
	Labels []string `json:"labels,omitempty"`

	// UseBrowser enables the headless-browser fallback for script-heavy
	// recipe sites.
	UseBrowser bool `json:"use_browser"`

	// Workers maps queue name to worker count; queues absent from the map
	// get one worker.
	Workers map[string]int `json:"workers,omitempty"`

	// PollIntervalMS is the queue poll interval per worker.
	PollIntervalMS int `json:"poll_interval_ms" validate:"gte=0"`

	Storage storage.Config        `json:"storage"`
	Kafka   broadcast.KafkaConfig `json:"kafka"`

	Verbose bool `json:"verbose"`
}

// Defaults returns the configuration baseline.
func Defaults() Config {
	return Config{
		ListenAddr:     ":8080",
		PollIntervalMS: 1000,
	}
}

// Load reads configuration from an optional JSON file, applies environment
// overrides, fills defaults, and validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Config{}

	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.applyEnv()
	cfg = cfg.MergeWithDefaults(Defaults())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides file values with environment variables when set.
func (c *Config) applyEnv() {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")

	setString(&c.Storage.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Storage.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Storage.Bucket, "MINIO_BUCKET")
	setBool(&c.Storage.UseSSL, "MINIO_USE_SSL")

	setString(&c.Kafka.Broker, "KAFKA_BROKER")
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	setString(&c.Kafka.GroupID, "KAFKA_GROUP_ID")

	setBool(&c.UseBrowser, "USE_BROWSER")
	setBool(&c.Verbose, "VERBOSE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from
// defaults.
func (c Config) MergeWithDefaults(defaults Config) Config {
	result := c
	if result.ListenAddr == "" {
		result.ListenAddr = defaults.ListenAddr
	}
	if result.PollIntervalMS == 0 {
		result.PollIntervalMS = defaults.PollIntervalMS
	}
	if result.GeminiModel == "" {
		result.GeminiModel = defaults.GeminiModel
	}
	return result
}

// Validate checks the configuration, returning the first structural problem.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.StructPartial(c, "DatabaseURL", "ListenAddr", "PollIntervalMS"); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// Object storage is optional but must be complete when any part is set.
	if c.storagePartiallySet() {
		if err := v.Struct(c.Storage); err != nil {
			return fmt.Errorf("config error: incomplete storage settings: %w", err)
		}
	}
	return nil
}

func (c *Config) storagePartiallySet() bool {
	s := c.Storage
	return s.Endpoint != "" || s.AccessKey != "" || s.SecretKey != "" || s.Bucket != ""
}

// StorageConfigured reports whether object storage is fully configured.
func (c *Config) StorageConfigured() bool {
	s := c.Storage
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

// KafkaConfigured reports whether external event publishing is enabled.
func (c *Config) KafkaConfigured() bool {
	return c.Kafka.Broker != "" && c.Kafka.Topic != ""
}
