package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by the config layer.
const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
)

// Embedding backend names.
const (
	EmbeddingBackendHash   = "hash"
	EmbeddingBackendVertex = "vertex"
)

// Vector index backend names.
const (
	VectorBackendMemory = "memory"
	VectorBackendQdrant = "qdrant"
)

// Distance metric names.
const (
	MetricCosine    = "cosine"
	MetricEuclidean = "euclidean"
)

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` in config file or DB_CONNECTION)")

// SchedulerConfig controls the scraper scheduler.
type SchedulerConfig struct {
	Interval      time.Duration `yaml:"interval"`       // Tick interval between scrape rounds.
	RunOnStartup  bool          `yaml:"run-on-startup"` // Run all scrapers once before the loop.
	ScrapeTimeout time.Duration `yaml:"scrape-timeout"` // Per-invocation timeout.
}

// EmbeddingConfig selects and parameterizes the embedding function.
type EmbeddingConfig struct {
	Backend   string `yaml:"backend"`   // hash or vertex.
	Model     string `yaml:"model"`     // Embedding model name (vertex).
	Dimension int    `yaml:"dimension"` // Fixed embedding dimensionality.
	Project   string `yaml:"project"`   // Google Cloud project (vertex).
	Location  string `yaml:"location"`  // Google Cloud location (vertex).
}

// VectorConfig selects and parameterizes the vector index backend.
type VectorConfig struct {
	Backend    string `yaml:"backend"`    // memory or qdrant.
	Collection string `yaml:"collection"` // Qdrant collection name.
	Host       string `yaml:"host"`       // Qdrant host.
	Port       int    `yaml:"port"`       // Qdrant gRPC port.
	Metric     string `yaml:"metric"`     // cosine or euclidean.
}

// RAGConfig holds search and recommendation tunables.
type RAGConfig struct {
	PoolSize       int           `yaml:"pool-size"`       // Candidate pool for recommendations.
	InputShare     float64       `yaml:"input-share"`     // Input fraction of the token split.
	CheapBelow     float64       `yaml:"cheap-below"`     // Input price/token below which a model is "cheap".
	ExpensiveAbove float64       `yaml:"expensive-above"` // Input price/token above which a model is "expensive".
	StaleAfter     time.Duration `yaml:"stale-after"`     // Age after which records are flagged stale (0 = never).
}

// Config is the full application configuration.
type Config struct {
	DatabaseDSN string          `yaml:"database-dsn"`
	Port        int             `yaml:"port"`
	LogLevel    string          `yaml:"log-level"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	Embedding   EmbeddingConfig `yaml:"embedding"`
	Vector      VectorConfig    `yaml:"vector"`
	RAG         RAGConfig       `yaml:"rag"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DatabaseDSN: "tokenscout.db",
		Port:        8318,
		LogLevel:    "info",
		Scheduler: SchedulerConfig{
			Interval:      30 * time.Minute,
			RunOnStartup:  true,
			ScrapeTimeout: 60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Backend:   EmbeddingBackendHash,
			Model:     "text-embedding-004",
			Dimension: 256,
		},
		Vector: VectorConfig{
			Backend:    VectorBackendMemory,
			Collection: "model_pricing",
			Host:       "localhost",
			Port:       6334,
			Metric:     MetricCosine,
		},
		RAG: RAGConfig{
			PoolSize:       10,
			InputShare:     0.5,
			CheapBelow:     0.000001,
			ExpensiveAbove: 0.00001,
		},
	}
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads the YAML config file, layers it over the defaults, applies env
// overrides, and validates the result. A missing file is not an error; the
// defaults (plus env) are used.
func Load(configPath string) (Config, error) {
	cfg := Default()

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	} else if !os.IsNotExist(errRead) {
		return Config{}, fmt.Errorf("read config file: %w", errRead)
	}

	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}

	if errValidate := cfg.Validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

// Validate rejects configurations the process cannot safely start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return ErrMissingDatabaseDSN
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port: %d", c.Port)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("config: scheduler interval must be positive")
	}
	if c.Scheduler.ScrapeTimeout <= 0 {
		return fmt.Errorf("config: scrape timeout must be positive")
	}
	switch c.Embedding.Backend {
	case EmbeddingBackendHash, EmbeddingBackendVertex:
	default:
		return fmt.Errorf("config: unknown embedding backend: %s", c.Embedding.Backend)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("config: embedding dimension must be positive")
	}
	switch c.Vector.Backend {
	case VectorBackendMemory, VectorBackendQdrant:
	default:
		return fmt.Errorf("config: unknown vector backend: %s", c.Vector.Backend)
	}
	switch c.Vector.Metric {
	case MetricCosine, MetricEuclidean:
	default:
		return fmt.Errorf("config: unknown distance metric: %s", c.Vector.Metric)
	}
	if c.RAG.PoolSize <= 0 {
		return fmt.Errorf("config: rag pool size must be positive")
	}
	if c.RAG.InputShare < 0 || c.RAG.InputShare > 1 {
		return fmt.Errorf("config: rag input share must be within [0, 1]")
	}
	if c.RAG.CheapBelow < 0 || c.RAG.ExpensiveAbove < c.RAG.CheapBelow {
		return fmt.Errorf("config: price tier bands must satisfy 0 <= cheap-below <= expensive-above")
	}
	return nil
}
