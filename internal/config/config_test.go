package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"weights not summing to 1", func(c *Config) { c.Validation.HeuristicWeight = 0.5 }, "validation.heuristic_weight/consistency_weight"},
		{"quality score above 1", func(c *Config) { c.Validation.MinQualityScore = 1.5 }, "validation.min_quality_score"},
		{"zero consistency samples", func(c *Config) { c.Validation.ConsistencySamples = 0 }, "validation.consistency_samples"},
		{"threshold above 1", func(c *Config) { c.Clustering.SimilarityThreshold = 1.2 }, "clustering.similarity_threshold"},
		{"zero batch size", func(c *Config) { c.Embedding.BatchSize = 0 }, "embedding.batch_size"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max_retries"},
		{"zero timeout", func(c *Config) { c.PerCallTimeout = 0 }, "per_call_timeout"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
		{"bad export format", func(c *Config) { c.Export.Format = "parquet" }, "export.format"},
		{"too many options", func(c *Config) { c.Generation.OptionCount = 7 }, "generation.option_count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchgen.yaml")
	yaml := `
validation:
  min_quality_score: 0.6
  consistency_samples: 3
clustering:
  similarity_threshold: 0.9
export:
  format: csv
  output_path: out.csv
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Validation.MinQualityScore != 0.6 {
		t.Errorf("min_quality_score = %v, want 0.6", cfg.Validation.MinQualityScore)
	}
	if cfg.Validation.ConsistencySamples != 3 {
		t.Errorf("consistency_samples = %d, want 3", cfg.Validation.ConsistencySamples)
	}
	if cfg.Clustering.SimilarityThreshold != 0.9 {
		t.Errorf("similarity_threshold = %v, want 0.9", cfg.Clustering.SimilarityThreshold)
	}
	if cfg.Export.Format != "csv" {
		t.Errorf("format = %q, want csv", cfg.Export.Format)
	}
	// Untouched values keep defaults.
	if cfg.Embedding.BatchSize != 32 {
		t.Errorf("batch_size = %d, want default 32", cfg.Embedding.BatchSize)
	}
}
