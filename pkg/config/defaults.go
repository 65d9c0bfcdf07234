package config

import (
	"time"

	"github.com/Sumatoshi-tech/clausefang/pkg/pipeline"
	"github.com/Sumatoshi-tech/clausefang/pkg/segment"
)

// Pipeline defaults.
const (
	DefaultSmallDocumentThreshold = segment.DefaultSmallDocumentThreshold
	DefaultTargetSize             = segment.DefaultTargetSize
	DefaultMinSize                = segment.DefaultMinSize
	DefaultMaxSize                = segment.DefaultMaxSize
	DefaultOverlap                = segment.DefaultOverlap
	DefaultConcurrency            = pipeline.DefaultConcurrency
	DefaultMaxRetries             = pipeline.DefaultMaxRetries
	DefaultRetryDelay             = pipeline.DefaultRetryDelay
)

// Inference defaults.
const (
	DefaultProvider        = ProviderMock
	DefaultInferenceTimeout = 5 * time.Minute
	DefaultAnthropicKeyEnv = "ANTHROPIC_API_KEY"
	DefaultOpenAIKeyEnv    = "OPENAI_API_KEY"
)

// Cache defaults.
const (
	DefaultCacheEnabled = true
	DefaultCacheMaxSize = "64MB"
)

// Store defaults.
const (
	DefaultStoreBackend = BackendBolt
	DefaultStorePath    = "clausefang.db"
)

// Server defaults.
const (
	DefaultServerAddr      = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxUploadSize   = "5MB"
	DefaultMaxBackground   = 8
)

// Observability defaults.
const (
	DefaultLogLevel    = "info"
	DefaultLogJSON     = false
	DefaultSampleRatio = 1.0
)
