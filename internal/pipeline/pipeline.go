// Package pipeline wires the stages together: ingest, generate, filter,
// embed, cluster, export. All state is run-scoped; a Pipeline can be
// discarded after Run returns.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/abhisek/benchgen/internal/cluster"
	"github.com/abhisek/benchgen/internal/config"
	"github.com/abhisek/benchgen/internal/embedding"
	"github.com/abhisek/benchgen/internal/export"
	"github.com/abhisek/benchgen/internal/generate"
	"github.com/abhisek/benchgen/internal/ingest"
	"github.com/abhisek/benchgen/internal/llm"
	"github.com/abhisek/benchgen/internal/validate"
)

// Result is everything one run produced.
type Result struct {
	Report export.Report

	// GenerationErrors lists chunks that failed generation and were
	// skipped. They are counted in Report.Counts.Errored.
	GenerationErrors []error
}

// Pipeline executes one dataset build end to end.
type Pipeline struct {
	cfg      config.Config
	provider llm.Provider
	log      zerolog.Logger

	generator  *generate.Generator
	filter     *validate.Filter
	cache      *embedding.Cache
	engine     *cluster.Engine
	summarizer *cluster.Summarizer
}

// New validates cfg and builds a Pipeline. Configuration problems surface
// here, before any gateway call is made.
func New(cfg config.Config, provider llm.Provider, log zerolog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scorer, err := validate.NewScorer(provider, cfg.Validation, cfg.PerCallTimeout)
	if err != nil {
		return nil, err
	}
	cache, err := embedding.NewCache(provider, cfg.Embedding, cfg.Concurrency)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:      cfg,
		provider: provider,
		log:      log,
		generator: generate.New(provider, generate.Config{
			MaxQuestionsPerChunk: cfg.Generation.MaxQuestionsPerChunk,
			OptionCount:          cfg.Generation.OptionCount,
			MaxTokens:            cfg.Generation.MaxTokens,
			Temperature:          cfg.Generation.Temperature,
			MaxPriorStems:        20,
		}),
		filter:     validate.NewFilter(scorer, cfg.Concurrency),
		cache:      cache,
		engine:     cluster.NewEngine(cfg.Clustering.SimilarityThreshold),
		summarizer: cluster.NewSummarizer(provider, cfg.PerCallTimeout),
	}, nil
}

// Run executes the full pipeline and writes the export file. The returned
// Result always carries accepted/rejected/errored counts, even when some
// chunks failed.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	chunks, err := ingest.LoadChunks(p.cfg.Ingestion)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	p.log.Info().Int("chunks", len(chunks)).Msg("documents ingested")

	candidates, genErrs := p.generator.GenerateAll(ctx, chunks)
	for _, e := range genErrs {
		p.log.Warn().Err(e).Msg("chunk generation failed, skipping")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	p.log.Info().
		Int("candidates", len(candidates)).
		Int("failed_chunks", len(genErrs)).
		Msg("candidates generated")

	batch, err := p.filter.Run(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	p.log.Info().
		Int("accepted", len(batch.Accepted)).
		Int("rejected", len(batch.Rejected)).
		Msg("candidates filtered")

	clusters, unembedded, err := p.clusterAccepted(ctx, batch.Accepted)
	if err != nil {
		return nil, err
	}
	p.log.Info().Int("clusters", len(clusters)).Msg("candidates clustered")

	report := export.BuildReport(batch, clusters, len(genErrs)+unembedded)
	if err := export.Write(report, p.cfg.Export); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	p.log.Info().
		Str("path", p.cfg.Export.OutputPath).
		Str("format", p.cfg.Export.Format).
		Msg("dataset written")

	return &Result{Report: report, GenerationErrors: genErrs}, nil
}

// clusterAccepted embeds the accepted stems and groups them. Candidates
// the gateway could not embed after retries are left unclustered and
// reported through the errored count; only a dimension mismatch, a missing
// embedding capability, or run cancellation aborts the run.
func (p *Pipeline) clusterAccepted(ctx context.Context, accepted []validate.Decision) ([]cluster.Cluster, int, error) {
	if len(accepted) == 0 {
		return nil, 0, nil
	}

	items := make([]embedding.Item, len(accepted))
	for i, d := range accepted {
		items[i] = embedding.Item{ID: d.Candidate.ID, Text: d.Candidate.Stem}
	}
	if err := p.cache.Embed(ctx, items); err != nil {
		var mismatch *embedding.ErrDimensionMismatch
		if errors.As(err, &mismatch) || !llm.IsTransient(err) {
			return nil, 0, fmt.Errorf("embed: %w", err)
		}
		p.log.Warn().Err(err).Msg("embedding failed, affected candidates stay unclustered")
	}

	var members []cluster.Member
	unembedded := 0
	for _, d := range accepted {
		v, ok := p.cache.Vector(d.Candidate.ID)
		if !ok {
			unembedded++
			continue
		}
		members = append(members, cluster.Member{ID: d.Candidate.ID, Stem: d.Candidate.Stem, Vector: v})
	}

	clusters := p.engine.Build(members)
	if p.cfg.Clustering.Summarize {
		clusters = p.summarizer.Enrich(ctx, clusters, members)
	}
	return clusters, unembedded, nil
}
