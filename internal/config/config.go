// Package config holds the pipeline configuration surface. Validation
// happens once, at pipeline construction, before any LLM call is made.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigError describes an invalid configuration value. It is raised at
// construction time and always aborts the run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Config aggregates all pipeline settings.
type Config struct {
	Ingestion  IngestionConfig  `mapstructure:"ingestion"`
	Generation GenerationConfig `mapstructure:"generation"`
	Validation ValidationConfig `mapstructure:"validation"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Clustering ClusteringConfig `mapstructure:"clustering"`
	Export     ExportConfig     `mapstructure:"export"`

	// Concurrency bounds the number of in-flight scoring workers.
	Concurrency int `mapstructure:"concurrency"`

	// MaxRetries bounds retry attempts for transient gateway failures.
	MaxRetries int `mapstructure:"max_retries"`

	// PerCallTimeout bounds a single gateway call.
	PerCallTimeout time.Duration `mapstructure:"per_call_timeout"`

	// AuditDB is the SQLite path for the LLM request audit log.
	// Empty disables auditing.
	AuditDB string `mapstructure:"audit_db"`
}

// IngestionConfig controls document loading and chunking.
type IngestionConfig struct {
	InputPaths    []string `mapstructure:"input_paths"`
	MaxChunkWords int      `mapstructure:"max_chunk_words"`
	OverlapWords  int      `mapstructure:"overlap_words"`
}

// GenerationConfig controls LLM question generation.
type GenerationConfig struct {
	MaxQuestionsPerChunk int     `mapstructure:"max_questions_per_chunk"`
	OptionCount          int     `mapstructure:"option_count"`
	Temperature          float64 `mapstructure:"temperature"`
	MaxTokens            int     `mapstructure:"max_tokens"`
}

// ValidationConfig controls quality scoring and filtering.
type ValidationConfig struct {
	MinQualityScore    float64 `mapstructure:"min_quality_score"`
	HeuristicWeight    float64 `mapstructure:"heuristic_weight"`
	ConsistencyWeight  float64 `mapstructure:"consistency_weight"`
	ConsistencySamples int     `mapstructure:"consistency_samples"`
	MinStemLength      int     `mapstructure:"min_stem_length"`
}

// EmbeddingConfig controls the embedding cache.
type EmbeddingConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

// ClusteringConfig controls the clustering engine.
type ClusteringConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`

	// Summarize enables LLM cluster summaries. When the enrichment call
	// fails the representative stem is used instead.
	Summarize bool `mapstructure:"summarize"`
}

// ExportConfig controls dataset export.
type ExportConfig struct {
	OutputPath      string `mapstructure:"output_path"`
	Format          string `mapstructure:"format"` // "jsonl" or "csv"
	IncludeMetadata bool   `mapstructure:"include_metadata"`
}

// Default returns a Config with the documented defaults.
func Default() Config {
	return Config{
		Ingestion: IngestionConfig{
			MaxChunkWords: 512,
			OverlapWords:  64,
		},
		Generation: GenerationConfig{
			MaxQuestionsPerChunk: 5,
			OptionCount:          4,
			Temperature:          0.7,
			MaxTokens:            2048,
		},
		Validation: ValidationConfig{
			MinQualityScore:    0.7,
			HeuristicWeight:    0.4,
			ConsistencyWeight:  0.6,
			ConsistencySamples: 5,
			MinStemLength:      12,
		},
		Embedding: EmbeddingConfig{
			BatchSize: 32,
		},
		Clustering: ClusteringConfig{
			SimilarityThreshold: 0.85,
			Summarize:           true,
		},
		Export: ExportConfig{
			OutputPath:      "dataset.jsonl",
			Format:          "jsonl",
			IncludeMetadata: true,
		},
		Concurrency:    4,
		MaxRetries:     3,
		PerCallTimeout: 30 * time.Second,
	}
}

// Load reads configuration from the given file (optional) and BENCHGEN_*
// environment variables, layered over defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("benchgen")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("ingestion.max_chunk_words", cfg.Ingestion.MaxChunkWords)
	v.SetDefault("ingestion.overlap_words", cfg.Ingestion.OverlapWords)
	v.SetDefault("generation.max_questions_per_chunk", cfg.Generation.MaxQuestionsPerChunk)
	v.SetDefault("generation.option_count", cfg.Generation.OptionCount)
	v.SetDefault("generation.temperature", cfg.Generation.Temperature)
	v.SetDefault("generation.max_tokens", cfg.Generation.MaxTokens)
	v.SetDefault("validation.min_quality_score", cfg.Validation.MinQualityScore)
	v.SetDefault("validation.heuristic_weight", cfg.Validation.HeuristicWeight)
	v.SetDefault("validation.consistency_weight", cfg.Validation.ConsistencyWeight)
	v.SetDefault("validation.consistency_samples", cfg.Validation.ConsistencySamples)
	v.SetDefault("validation.min_stem_length", cfg.Validation.MinStemLength)
	v.SetDefault("embedding.batch_size", cfg.Embedding.BatchSize)
	v.SetDefault("clustering.similarity_threshold", cfg.Clustering.SimilarityThreshold)
	v.SetDefault("clustering.summarize", cfg.Clustering.Summarize)
	v.SetDefault("export.output_path", cfg.Export.OutputPath)
	v.SetDefault("export.format", cfg.Export.Format)
	v.SetDefault("export.include_metadata", cfg.Export.IncludeMetadata)
	v.SetDefault("concurrency", cfg.Concurrency)
	v.SetDefault("max_retries", cfg.MaxRetries)
	v.SetDefault("per_call_timeout", cfg.PerCallTimeout)
}

// Validate checks the whole surface and returns the first violation.
func (c Config) Validate() error {
	if c.Validation.MinQualityScore < 0 || c.Validation.MinQualityScore > 1 {
		return &ConfigError{Field: "validation.min_quality_score", Reason: "must be in [0, 1]"}
	}
	sum := c.Validation.HeuristicWeight + c.Validation.ConsistencyWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return &ConfigError{
			Field:  "validation.heuristic_weight/consistency_weight",
			Reason: fmt.Sprintf("must sum to 1.0, got %.3f", sum),
		}
	}
	if c.Validation.HeuristicWeight < 0 || c.Validation.ConsistencyWeight < 0 {
		return &ConfigError{Field: "validation.heuristic_weight/consistency_weight", Reason: "must be non-negative"}
	}
	if c.Validation.ConsistencySamples < 1 {
		return &ConfigError{Field: "validation.consistency_samples", Reason: "must be >= 1"}
	}
	if c.Clustering.SimilarityThreshold < 0 || c.Clustering.SimilarityThreshold > 1 {
		return &ConfigError{Field: "clustering.similarity_threshold", Reason: "must be in [0, 1]"}
	}
	if c.Embedding.BatchSize < 1 {
		return &ConfigError{Field: "embedding.batch_size", Reason: "must be >= 1"}
	}
	if c.MaxRetries < 0 {
		return &ConfigError{Field: "max_retries", Reason: "must be >= 0"}
	}
	if c.PerCallTimeout <= 0 {
		return &ConfigError{Field: "per_call_timeout", Reason: "must be > 0"}
	}
	if c.Concurrency < 1 {
		return &ConfigError{Field: "concurrency", Reason: "must be >= 1"}
	}
	switch c.Export.Format {
	case "jsonl", "csv":
	default:
		return &ConfigError{Field: "export.format", Reason: fmt.Sprintf("unsupported format %q", c.Export.Format)}
	}
	if c.Generation.OptionCount < 2 || c.Generation.OptionCount > 6 {
		return &ConfigError{Field: "generation.option_count", Reason: "must be between 2 and 6"}
	}
	return nil
}
