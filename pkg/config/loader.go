package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CLAUSEFANG_PIPELINE_CONCURRENCY.
const EnvPrefix = "CLAUSEFANG"

// LoadConfig loads configuration from path, or from .clausefang.yaml in the
// working or home directory when path is empty, then applies environment
// overrides. A missing default file is not an error.
func LoadConfig(path string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if path != "" {
		viperCfg.SetConfigFile(path)
	} else {
		viperCfg.SetConfigName(".clausefang")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	viperCfg := viper.New()
	setDefaults(viperCfg)

	var config Config

	// Defaults always decode.
	_ = viperCfg.Unmarshal(&config)

	return &config
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("pipeline.small_document_threshold", DefaultSmallDocumentThreshold)
	viperCfg.SetDefault("pipeline.target_size", DefaultTargetSize)
	viperCfg.SetDefault("pipeline.min_size", DefaultMinSize)
	viperCfg.SetDefault("pipeline.max_size", DefaultMaxSize)
	viperCfg.SetDefault("pipeline.overlap", DefaultOverlap)
	viperCfg.SetDefault("pipeline.concurrency", DefaultConcurrency)
	viperCfg.SetDefault("pipeline.max_retries", DefaultMaxRetries)
	viperCfg.SetDefault("pipeline.retry_delay", DefaultRetryDelay)

	viperCfg.SetDefault("inference.provider", DefaultProvider)
	viperCfg.SetDefault("inference.model", "")
	viperCfg.SetDefault("inference.max_tokens", 0)
	viperCfg.SetDefault("inference.timeout", DefaultInferenceTimeout)
	viperCfg.SetDefault("inference.mock_latency", 0)
	viperCfg.SetDefault("inference.anthropic_key_env", DefaultAnthropicKeyEnv)
	viperCfg.SetDefault("inference.openai_key_env", DefaultOpenAIKeyEnv)

	viperCfg.SetDefault("cache.enabled", DefaultCacheEnabled)
	viperCfg.SetDefault("cache.max_size", DefaultCacheMaxSize)

	viperCfg.SetDefault("store.backend", DefaultStoreBackend)
	viperCfg.SetDefault("store.path", DefaultStorePath)

	viperCfg.SetDefault("server.addr", DefaultServerAddr)
	viperCfg.SetDefault("server.read_timeout", DefaultReadTimeout)
	viperCfg.SetDefault("server.write_timeout", DefaultWriteTimeout)
	viperCfg.SetDefault("server.idle_timeout", DefaultIdleTimeout)
	viperCfg.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	viperCfg.SetDefault("server.max_upload_size", DefaultMaxUploadSize)
	viperCfg.SetDefault("server.max_background", DefaultMaxBackground)

	viperCfg.SetDefault("playbook.path", "")

	viperCfg.SetDefault("observability.environment", "")
	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_headers", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("observability.log_level", DefaultLogLevel)
	viperCfg.SetDefault("observability.log_json", DefaultLogJSON)
}
