package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/benchgen/internal/llm"
)

var summarySchema = &llm.Schema{
	Name:        "cluster-summary",
	Description: "A one-line summary of what a group of questions has in common",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "One sentence describing the shared topic of the questions",
			},
		},
		"required":             []any{"summary"},
		"additionalProperties": false,
	},
}

const summarySystemPrompt = `You label groups of related quiz questions. Given the questions in a group, reply with a single short sentence naming their shared topic.`

// Summarizer enriches clusters with LLM-written topic summaries.
// Enrichment is best-effort: any failure falls back to the
// representative's stem and clustering output is never discarded.
type Summarizer struct {
	provider llm.Provider
	timeout  time.Duration
}

func NewSummarizer(provider llm.Provider, timeout time.Duration) *Summarizer {
	return &Summarizer{provider: provider, timeout: timeout}
}

// Enrich fills in Summary for every cluster. Singletons take their only
// stem directly; larger clusters get one gateway call each.
func (s *Summarizer) Enrich(ctx context.Context, clusters []Cluster, members []Member) []Cluster {
	stems := make(map[string]string, len(members))
	for _, m := range members {
		stems[m.ID] = m.Stem
	}

	out := make([]Cluster, len(clusters))
	for i, c := range clusters {
		out[i] = c
		if len(c.MemberIDs) == 1 {
			out[i].Summary = stems[c.RepresentativeID]
			continue
		}
		summary, err := s.summarizeOnce(ctx, c, stems)
		if err != nil || summary == "" {
			summary = stems[c.RepresentativeID]
		}
		out[i].Summary = summary
	}
	return out
}

func (s *Summarizer) summarizeOnce(ctx context.Context, c Cluster, stems map[string]string) (string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeSummary)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var b strings.Builder
	b.WriteString("Questions:\n")
	for _, id := range c.MemberIDs {
		fmt.Fprintf(&b, "- %s\n", stems[id])
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		System: summarySystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: b.String()},
		},
		Schema:      summarySchema,
		MaxTokens:   128,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Summary), nil
}
