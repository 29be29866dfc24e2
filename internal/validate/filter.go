package validate

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/benchgen/internal/generate"
)

// Decision pairs a candidate with its scoring outcome.
type Decision struct {
	Candidate generate.Candidate `json:"candidate"`
	Score     QualityScore       `json:"score"`

	// Reasons lists why a candidate was rejected. Empty when accepted.
	// Includes post-scoring reasons such as duplicate_stem.
	Reasons []string `json:"reasons,omitempty"`
}

// BatchResult holds both sides of a filtered batch. Nothing is discarded
// silently: every input candidate appears exactly once, in its original
// relative order.
type BatchResult struct {
	Accepted []Decision
	Rejected []Decision
}

// Filter scores batches of candidates and applies accept/reject policy.
type Filter struct {
	scorer      *Scorer
	concurrency int
}

// NewFilter creates a Filter running at most concurrency scoring workers.
func NewFilter(scorer *Scorer, concurrency int) *Filter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Filter{scorer: scorer, concurrency: concurrency}
}

// Run scores every candidate concurrently, then applies thresholds and
// trivial stem dedup. Scoring runs in parallel but all order-sensitive
// policy is applied over the original input order, so results are
// deterministic regardless of completion order.
func (f *Filter) Run(ctx context.Context, candidates []generate.Candidate) (*BatchResult, error) {
	scores := make([]QualityScore, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, c := range candidates {
		g.Go(func() error {
			score, err := f.scorer.Score(gctx, c)
			if err != nil {
				return err
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &BatchResult{}
	seenStems := make(map[string]bool)

	for i, c := range candidates {
		score := scores[i]

		if score.Verdict != VerdictAccept {
			result.Rejected = append(result.Rejected, Decision{
				Candidate: c,
				Score:     score,
				Reasons:   score.Reasons,
			})
			continue
		}

		// Trivial dedup among accepted candidates: first occurrence wins.
		key := normalizeStem(c.Stem)
		if seenStems[key] {
			result.Rejected = append(result.Rejected, Decision{
				Candidate: c,
				Score:     score,
				Reasons:   append(append([]string{}, score.Reasons...), ReasonDuplicateStem),
			})
			continue
		}
		seenStems[key] = true

		result.Accepted = append(result.Accepted, Decision{Candidate: c, Score: score})
	}

	return result, nil
}

// normalizeStem case-folds and collapses all whitespace runs so that
// byte-identical normalized stems compare equal.
func normalizeStem(stem string) string {
	return strings.Join(strings.Fields(strings.ToLower(stem)), " ")
}
