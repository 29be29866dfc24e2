package validate

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/abhisek/benchgen/internal/config"
	"github.com/abhisek/benchgen/internal/generate"
	"github.com/abhisek/benchgen/internal/llm"
)

func filterScorer(t *testing.T, mock *llm.MockProvider, samples int) *Scorer {
	t.Helper()
	cfg := config.ValidationConfig{
		MinQualityScore:    0.6,
		HeuristicWeight:    0.4,
		ConsistencyWeight:  0.6,
		ConsistencySamples: samples,
		MinStemLength:      5,
	}
	s, err := NewScorer(mock, cfg, time.Second)
	if err != nil {
		t.Fatalf("new scorer: %v", err)
	}
	return s
}

func candidate(id, stem string) generate.Candidate {
	return generate.Candidate{
		ID:           id,
		Stem:         stem,
		Options:      []string{"alpha", "beta", "gamma", "delta"},
		CorrectIndex: 0,
	}
}

func TestFilter_DedupNormalizedStems(t *testing.T) {
	mock := llm.NewMockProvider(answer(0), answer(0))
	f := NewFilter(filterScorer(t, mock, 1), 1)

	result, err := f.Run(context.Background(), []generate.Candidate{
		candidate("a", "What is X?"),
		candidate("b", "what is x?  "),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Accepted) != 1 {
		t.Fatalf("accepted = %d, want 1", len(result.Accepted))
	}
	if result.Accepted[0].Candidate.ID != "a" {
		t.Errorf("first occurrence must win, got %q", result.Accepted[0].Candidate.ID)
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("rejected = %d, want 1", len(result.Rejected))
	}
	dup := result.Rejected[0]
	if dup.Candidate.ID != "b" {
		t.Errorf("rejected candidate = %q, want b", dup.Candidate.ID)
	}
	if !slices.Contains(dup.Reasons, ReasonDuplicateStem) {
		t.Errorf("reasons %v missing duplicate_stem", dup.Reasons)
	}
}

func TestFilter_NothingDroppedSilently(t *testing.T) {
	// 4 candidates: accept, reject (bad index), accept, duplicate of #1.
	mock := llm.NewMockProvider(answer(0), answer(0), answer(0))
	f := NewFilter(filterScorer(t, mock, 1), 1)

	bad := candidate("b", "Which port does SSH use?")
	bad.CorrectIndex = 7

	in := []generate.Candidate{
		candidate("a", "Which port does HTTP use?"),
		bad,
		candidate("c", "Which port does DNS use?"),
		candidate("d", "which port does http use?"),
	}

	result, err := f.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := len(result.Accepted) + len(result.Rejected); got != len(in) {
		t.Fatalf("accounted for %d of %d candidates", got, len(in))
	}
	if len(result.Accepted) != 2 {
		t.Fatalf("accepted = %d, want 2", len(result.Accepted))
	}
	if result.Accepted[0].Candidate.ID != "a" || result.Accepted[1].Candidate.ID != "c" {
		t.Errorf("accepted order = %q, %q; want a, c",
			result.Accepted[0].Candidate.ID, result.Accepted[1].Candidate.ID)
	}
}

func TestFilter_OrderStableUnderConcurrency(t *testing.T) {
	// All samples identical, so completion order cannot influence results.
	mock := llm.NewMockProvider()
	var in []generate.Candidate
	for i := range 20 {
		mock.AddResponse(answer(0))
		in = append(in, candidate(fmt.Sprintf("c%02d", i), fmt.Sprintf("Question number %d?", i)))
	}

	f := NewFilter(filterScorer(t, mock, 1), 8)
	result, err := f.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Accepted) != len(in) {
		t.Fatalf("accepted = %d, want %d", len(result.Accepted), len(in))
	}
	for i, d := range result.Accepted {
		if want := fmt.Sprintf("c%02d", i); d.Candidate.ID != want {
			t.Fatalf("accepted[%d] = %q, want %q", i, d.Candidate.ID, want)
		}
	}
}

func TestFilter_MalformedCandidateRejectedNotFatal(t *testing.T) {
	// One candidate whose samples never parse must become a rejection;
	// the rest of the batch proceeds.
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrInvalidResponse{Content: []byte("garbled")}},
		answer(0),
	)
	f := NewFilter(filterScorer(t, mock, 1), 1)

	result, err := f.Run(context.Background(), []generate.Candidate{
		candidate("a", "Which flag enables verbose output?"),
		candidate("b", "Which flag selects the config file?"),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Accepted) != 1 || result.Accepted[0].Candidate.ID != "b" {
		t.Fatalf("accepted = %+v, want just b", result.Accepted)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Candidate.ID != "a" {
		t.Fatalf("rejected = %+v, want just a", result.Rejected)
	}
}

func TestFilter_RejectionCarriesScore(t *testing.T) {
	// Scoring unavailable (empty queue) must surface as a reject with
	// reasons, not vanish from the batch.
	mock := llm.NewMockProvider()
	f := NewFilter(filterScorer(t, mock, 2), 1)

	result, err := f.Run(context.Background(), []generate.Candidate{
		candidate("a", "Which record maps a name to an address?"),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("rejected = %d, want 1", len(result.Rejected))
	}
	if !slices.Contains(result.Rejected[0].Reasons, ReasonScoringUnavailable) {
		t.Errorf("reasons = %v, want scoring_unavailable", result.Rejected[0].Reasons)
	}
}
