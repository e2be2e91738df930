// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New(ctx) returns a Config with defaults; Load(ctx) layers file and env on top.
//   - Validation failures wrap ErrInvalidConfig; provider failures wrap ErrLoadConfig.
package config

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strings"
)

// Run store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ScoreThreshold and ChunkSize are the formation defaults used when a
	// request does not carry its own values.
	ScoreThreshold float64 `koanf:"score_threshold"`
	ChunkSize      int     `koanf:"chunk_size"`

	// MaxUploadBytes caps request bodies and multipart uploads.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// QueueSize bounds the asynchronous run queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of formation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the idempotency-key cache.
	DedupeSize int `koanf:"dedupe_size"`

	// Store selects the run store backend: memory, redis or postgres.
	Store string `koanf:"store"`

	// RunTTLSeconds is the retention of stored runs for memory and redis.
	RunTTLSeconds int `koanf:"run_ttl_seconds"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	PostgresDSN string `koanf:"postgres_dsn"`

	// ModelPath points at a persisted predictor model. It is loaded when the
	// file exists and written after training otherwise.
	ModelPath string `koanf:"model_path"`

	// TrainingDataPath is the predictor training CSV. Empty uses the bundled dataset.
	TrainingDataPath string `koanf:"training_data_path"`

	// RoomLabelPrefix prefixes generated room names.
	RoomLabelPrefix string `koanf:"room_label_prefix"`

	// MetricsNamespace prefixes every Prometheus series.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsLabels are constant labels added to every series, e.g. the
	// deployment or instance name.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// metricName matches Prometheus metric and label names without colons.
var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		ScoreThreshold:  300,
		ChunkSize:       5,
		MaxUploadBytes:  10 << 20,
		QueueSize:       1024,
		WorkerCount:     runtime.NumCPU(),
		DedupeSize:      10_000,
		Store:           StoreMemory,
		RunTTLSeconds:   86_400,
		RedisAddr:       "localhost:6379",
		RoomLabelPrefix: "Room_",

		MetricsNamespace: "squadron",
	}
}

// Validate checks the invariants the rest of the service relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ChunkSize < 1:
		return fmt.Errorf("%w: chunk_size must be at least 1, got %d", ErrInvalidConfig, c.ChunkSize)
	case c.ScoreThreshold < 0:
		return fmt.Errorf("%w: score_threshold must not be negative, got %v", ErrInvalidConfig, c.ScoreThreshold)
	case !metricName.MatchString(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace %q is not a valid metric name", ErrInvalidConfig, c.MetricsNamespace)
	}
	for name := range c.MetricsLabels {
		if !metricName.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: metrics label %q is not a valid label name", ErrInvalidConfig, name)
		}
	}

	switch c.Store {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required when store=postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	return nil
}
