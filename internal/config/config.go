package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Global singleton so infrastructure packages can read configuration
// without threading it through every constructor.
var globalConfig *Config

// Config holds all environment backed configuration for the generation service.
type Config struct {
	// HTTP Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9091"`
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// PostgreSQL read replica (optional)
	DBPostgresqlReadDSN string `env:"DB_POSTGRESQL_READ_DSN"`

	// Inference providers
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenAIBaseURL     string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`

	// Generation behaviour
	TitleModel    string `env:"TITLE_MODEL" envDefault:"google/gemini-2.0-flash-001"`
	ImageModel    string `env:"IMAGE_MODEL" envDefault:"gpt-image-1"`
	ImageSize     string `env:"IMAGE_SIZE" envDefault:"1024x1024"`
	MaxAgentSteps int    `env:"MAX_AGENT_STEPS" envDefault:"10"`

	// Generation workers
	WorkerCount    int `env:"WORKER_COUNT" envDefault:"8"`
	WorkerQueueLen int `env:"WORKER_QUEUE_LEN" envDefault:"256"`

	// MCP tool providers
	MCPEnabled     bool          `env:"MCP_ENABLED" envDefault:"true"`
	SmitheryAPIKey string        `env:"SMITHERY_API_KEY"`
	ExaAPIKey      string        `env:"EXA_API_KEY"`
	MCPTimeout     time.Duration `env:"MCP_TIMEOUT" envDefault:"30s"`

	// Blob storage
	BlobStoragePath string `env:"BLOB_STORAGE_PATH" envDefault:"/var/lib/s4chat/blobs"`
	BlobBaseURL     string `env:"BLOB_BASE_URL" envDefault:"http://localhost:8080/v1/media"`

	// Model catalog
	ModelSeedFile            string `env:"MODEL_SEED_FILE"`
	ModelSyncEnabled         bool   `env:"MODEL_SYNC_ENABLED" envDefault:"false"`
	ModelSyncIntervalMinutes int    `env:"MODEL_SYNC_INTERVAL_MINUTES" envDefault:"60"`

	// Observability / Logging
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	OTLPEndpoint     string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string        `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName      string        `env:"SERVICE_NAME" envDefault:"s4chat"`
	ServiceNamespace string        `env:"SERVICE_NAMESPACE" envDefault:"s4chat"`
	Environment      string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"console"`

	// Features
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`

	// Parsed model seed, populated by Load when ModelSeedFile is set.
	ModelSeed *ModelSeed `env:"-"`
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.MaxAgentSteps <= 0 {
		return nil, errors.New("MAX_AGENT_STEPS must be positive")
	}
	if cfg.WorkerCount <= 0 {
		return nil, errors.New("WORKER_COUNT must be positive")
	}

	seedFile := strings.TrimSpace(cfg.ModelSeedFile)
	if seedFile == "" {
		seedFile = DefaultModelSeedFile
	}
	seed, err := LoadModelSeed(seedFile)
	if err != nil {
		return nil, fmt.Errorf("load model seed: %w", err)
	}
	cfg.ModelSeed = seed

	globalConfig = cfg
	return cfg, nil
}

// GetGlobal returns the last successfully loaded configuration, or nil.
func GetGlobal() *Config {
	return globalConfig
}
