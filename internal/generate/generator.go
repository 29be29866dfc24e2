// Package generate turns document chunks into MCQ candidates via the LLM
// gateway. It is a thin wrapper: the structured-output schema and the
// gateway do the heavy lifting.
package generate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/abhisek/benchgen/internal/ingest"
	"github.com/abhisek/benchgen/internal/llm"
)

// Config controls the generator.
type Config struct {
	MaxQuestionsPerChunk int
	OptionCount          int
	MaxTokens            int
	Temperature          float64

	// MaxPriorStems bounds the dedup list included in the prompt.
	MaxPriorStems int
}

// DefaultConfig returns recommended generator settings.
func DefaultConfig() Config {
	return Config{
		MaxQuestionsPerChunk: 5,
		OptionCount:          4,
		MaxTokens:            2048,
		Temperature:          0.7,
		MaxPriorStems:        20,
	}
}

// Generator produces MCQ candidates from document chunks.
type Generator struct {
	provider llm.Provider
	config   Config

	priorStems []string
}

// New creates a Generator with the given provider and config.
func New(provider llm.Provider, cfg Config) *Generator {
	return &Generator{provider: provider, config: cfg}
}

// candidateOutput mirrors one question object in the LLM response.
type candidateOutput struct {
	Stem         string   `json:"stem"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Rationale    string   `json:"rationale"`
}

type batchOutput struct {
	Questions []candidateOutput `json:"questions"`
}

// Generate produces candidates for one chunk. Output order follows the
// LLM response order.
func (g *Generator) Generate(ctx context.Context, chunk ingest.Chunk) ([]Candidate, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeGeneration)

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(chunk.Text, g.priorStems, g.config)},
		},
		Schema:      CandidateSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed for chunk %s: %w", chunk.ID, err)
	}

	var raw batchOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	if len(raw.Questions) > g.config.MaxQuestionsPerChunk {
		raw.Questions = raw.Questions[:g.config.MaxQuestionsPerChunk]
	}

	candidates := make([]Candidate, 0, len(raw.Questions))
	for _, q := range raw.Questions {
		candidates = append(candidates, Candidate{
			ID:            uuid.NewString(),
			Stem:          q.Stem,
			Options:       q.Options,
			CorrectIndex:  q.CorrectIndex,
			Rationale:     q.Rationale,
			SourceChunkID: chunk.ID,
		})
		g.priorStems = append(g.priorStems, q.Stem)
	}
	return candidates, nil
}

// GenerateAll produces candidates for every chunk in order. A failed chunk
// is skipped and reported in the returned error slice; one bad chunk never
// sinks the batch.
func (g *Generator) GenerateAll(ctx context.Context, chunks []ingest.Chunk) ([]Candidate, []error) {
	var all []Candidate
	var errs []error
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		candidates, err := g.Generate(ctx, chunk)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, candidates...)
	}
	return all, errs
}
