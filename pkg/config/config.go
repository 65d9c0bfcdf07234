// Package config loads clausefang configuration from a YAML file and
// CLAUSEFANG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
	"github.com/Sumatoshi-tech/clausefang/pkg/observability"
	"github.com/Sumatoshi-tech/clausefang/pkg/pipeline"
	"github.com/Sumatoshi-tech/clausefang/pkg/safeconv"
	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
)

// Sentinel validation errors.
var (
	ErrInvalidProvider    = errors.New("invalid inference provider")
	ErrInvalidBackend     = errors.New("invalid store backend")
	ErrMissingStorePath   = errors.New("bolt store requires a path")
	ErrInvalidSize        = errors.New("invalid byte size")
	ErrInvalidPipeline    = errors.New("invalid pipeline settings")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
	ErrInvalidBackground  = errors.New("max background reviews must be positive")
)

// Inference providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderMock      = "mock"
)

// Store backends.
const (
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Config holds all clausefang configuration.
type Config struct {
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Inference     InferenceConfig     `mapstructure:"inference"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Store         StoreConfig         `mapstructure:"store"`
	Server        ServerConfig        `mapstructure:"server"`
	Playbook      PlaybookConfig      `mapstructure:"playbook"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// PipelineConfig holds segmentation and scheduling tunables. Sizes are in
// bytes of UTF-8 text.
type PipelineConfig struct {
	SmallDocumentThreshold int           `mapstructure:"small_document_threshold"`
	TargetSize             int           `mapstructure:"target_size"`
	MinSize                int           `mapstructure:"min_size"`
	MaxSize                int           `mapstructure:"max_size"`
	Overlap                int           `mapstructure:"overlap"`
	Concurrency            int           `mapstructure:"concurrency"`
	MaxRetries             int           `mapstructure:"max_retries"`
	RetryDelay             time.Duration `mapstructure:"retry_delay"`
}

// InferenceConfig selects and tunes the model provider. API keys are read
// from the environment variables named here, never from the file.
type InferenceConfig struct {
	Provider        string        `mapstructure:"provider"`
	Model           string        `mapstructure:"model"`
	MaxTokens       int64         `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MockLatency     time.Duration `mapstructure:"mock_latency"`
	AnthropicKeyEnv string        `mapstructure:"anthropic_key_env"`
	OpenAIKeyEnv    string        `mapstructure:"openai_key_env"`
}

// CacheConfig controls the segment result cache.
type CacheConfig struct {
	MaxSize string `mapstructure:"max_size"`
	Enabled bool   `mapstructure:"enabled"`
}

// StoreConfig selects where review records live.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadSize   string        `mapstructure:"max_upload_size"`
	MaxBackground   int           `mapstructure:"max_background"`
}

// PlaybookConfig points at a YAML playbook. Empty uses the built-in one.
type PlaybookConfig struct {
	Path string `mapstructure:"path"`
}

// ObservabilityConfig holds telemetry export and logging settings.
type ObservabilityConfig struct {
	Environment  string  `mapstructure:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	LogLevel     string  `mapstructure:"log_level"`
	LogJSON      bool    `mapstructure:"log_json"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Inference.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProvider, c.Inference.Provider)
	}

	switch c.Store.Backend {
	case BackendBolt:
		if c.Store.Path == "" {
			return ErrMissingStorePath
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Store.Backend)
	}

	_, err := c.Cache.MaxSizeBytes()
	if err != nil {
		return err
	}

	_, err = c.Server.MaxUploadBytes()
	if err != nil {
		return err
	}

	if c.Server.MaxBackground <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBackground, c.Server.MaxBackground)
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Observability.SampleRatio)
	}

	err = c.PipelineConfig().Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPipeline, err)
	}

	return nil
}

// MaxSizeBytes parses the cache size, e.g. "64MB".
func (c CacheConfig) MaxSizeBytes() (int64, error) {
	return parseSize("cache.max_size", c.MaxSize)
}

// MaxUploadBytes parses the upload limit, e.g. "5MB".
func (c ServerConfig) MaxUploadBytes() (int64, error) {
	return parseSize("server.max_upload_size", c.MaxUploadSize)
}

func parseSize(key, value string) (int64, error) {
	size, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %w", ErrInvalidSize, key, value, err)
	}

	if size == 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidSize, key)
	}

	n, ok := safeconv.Uint64ToInt64(size)
	if !ok {
		return 0, fmt.Errorf("%w: %s %q overflows", ErrInvalidSize, key, value)
	}

	return n, nil
}

// PipelineConfig converts the pipeline section.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Segment: segment.Options{
			SmallDocumentThreshold: c.Pipeline.SmallDocumentThreshold,
			TargetSize:             c.Pipeline.TargetSize,
			MinSize:                c.Pipeline.MinSize,
			MaxSize:                c.Pipeline.MaxSize,
			Overlap:                c.Pipeline.Overlap,
		},
		Concurrency: c.Pipeline.Concurrency,
		MaxRetries:  c.Pipeline.MaxRetries,
		RetryDelay:  c.Pipeline.RetryDelay,
	}
}

// EngineConfig converts the inference budgets. A zero max_tokens keeps the
// default analysis budget.
func (c *Config) EngineConfig() inference.EngineConfig {
	cfg := inference.DefaultEngineConfig()
	if c.Inference.MaxTokens > 0 {
		cfg.AnalyzeMaxTokens = c.Inference.MaxTokens
	}

	return cfg
}

// ObservabilityConfig converts the observability section for the given mode.
func (c *Config) ObservabilityConfig(mode observability.AppMode, version string) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.Mode = mode
	cfg.ServiceVersion = version
	cfg.Environment = c.Observability.Environment
	cfg.OTLPEndpoint = c.Observability.OTLPEndpoint
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Observability.OTLPHeaders)
	cfg.OTLPInsecure = c.Observability.OTLPInsecure
	cfg.SampleRatio = c.Observability.SampleRatio
	cfg.LogLevel = observability.ParseLogLevel(c.Observability.LogLevel)
	cfg.LogJSON = c.Observability.LogJSON

	if mode == observability.ModeMCP && cfg.LogLevel < slog.LevelWarn {
		// stdout carries the protocol; keep stderr quiet.
		cfg.LogLevel = slog.LevelWarn
	}

	return cfg
}
