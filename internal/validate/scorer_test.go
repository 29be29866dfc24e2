package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/abhisek/benchgen/internal/config"
	"github.com/abhisek/benchgen/internal/generate"
	"github.com/abhisek/benchgen/internal/llm"
)

func scorerConfig() config.ValidationConfig {
	return config.ValidationConfig{
		MinQualityScore:    0.6,
		HeuristicWeight:    0.4,
		ConsistencyWeight:  0.6,
		ConsistencySamples: 5,
		MinStemLength:      12,
	}
}

func goodCandidate() generate.Candidate {
	return generate.Candidate{
		ID:           "c1",
		Stem:         "Which layer handles retransmission?",
		Options:      []string{"Physical", "Transport", "Session", "Application"},
		CorrectIndex: 1,
	}
}

func answer(idx int) llm.MockResponse {
	return llm.MockResponse{Content: json.RawMessage(fmt.Sprintf(`{"answer_index":%d}`, idx))}
}

// queueAnswers returns a mock that answers the declared correct index
// `agree` times and a wrong index for the remaining samples.
func queueAnswers(agree, total, correct int) *llm.MockProvider {
	mock := llm.NewMockProvider()
	for i := range total {
		if i < agree {
			mock.AddResponse(answer(correct))
		} else {
			mock.AddResponse(answer(correct + 1))
		}
	}
	return mock
}

func TestScore_ConsistencyScenario(t *testing.T) {
	// Agreement 5/5, 3/5, 0/5 at k=5 with weights 0.4/0.6 and threshold
	// 0.6 must yield 1.0, 0.76, 0.4 → accept, accept, reject.
	tests := []struct {
		agree        int
		wantCombined float64
		wantVerdict  Verdict
	}{
		{5, 1.0, VerdictAccept},
		{3, 0.76, VerdictAccept},
		{0, 0.4, VerdictReject},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("agree_%d", tt.agree), func(t *testing.T) {
			c := goodCandidate()
			mock := queueAnswers(tt.agree, 5, c.CorrectIndex)
			s, err := NewScorer(mock, scorerConfig(), time.Second)
			if err != nil {
				t.Fatalf("new scorer: %v", err)
			}

			score, err := s.Score(context.Background(), c)
			if err != nil {
				t.Fatalf("score: %v", err)
			}
			if diff := score.Combined - tt.wantCombined; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("combined = %v, want %v", score.Combined, tt.wantCombined)
			}
			if score.Verdict != tt.wantVerdict {
				t.Errorf("verdict = %s, want %s", score.Verdict, tt.wantVerdict)
			}
			if score.Heuristic != 1.0 {
				t.Errorf("heuristic = %v, want 1.0", score.Heuristic)
			}
		})
	}
}

func TestScore_HardCheckDisqualifies(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*generate.Candidate)
		reason string
	}{
		{"duplicate options", func(c *generate.Candidate) { c.Options[2] = c.Options[0] }, ReasonDuplicateOptions},
		{"correct index out of range", func(c *generate.Candidate) { c.CorrectIndex = 9 }, ReasonInvalidCorrectIndex},
		{"negative correct index", func(c *generate.Candidate) { c.CorrectIndex = -1 }, ReasonInvalidCorrectIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := goodCandidate()
			tt.mutate(&c)

			// Even a unanimous consistency vote cannot save a hard failure.
			mock := queueAnswers(5, 5, c.CorrectIndex)
			s, err := NewScorer(mock, scorerConfig(), time.Second)
			if err != nil {
				t.Fatal(err)
			}

			score, err := s.Score(context.Background(), c)
			if err != nil {
				t.Fatalf("score: %v", err)
			}
			if score.Verdict != VerdictReject {
				t.Fatalf("verdict = %s, want reject", score.Verdict)
			}
			if !slices.Contains(score.Reasons, tt.reason) {
				t.Errorf("reasons %v missing %q", score.Reasons, tt.reason)
			}
			// Hard failures skip the sampling spend.
			if mock.CallCount() != 0 {
				t.Errorf("expected no LLM calls, got %d", mock.CallCount())
			}
		})
	}
}

func TestScore_SoftChecksOnlyPenalize(t *testing.T) {
	c := goodCandidate()
	c.Stem = "Short?" // under MinStemLength

	mock := queueAnswers(5, 5, c.CorrectIndex)
	s, err := NewScorer(mock, scorerConfig(), time.Second)
	if err != nil {
		t.Fatal(err)
	}

	score, err := s.Score(context.Background(), c)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score.Heuristic != 0.75 {
		t.Errorf("heuristic = %v, want 0.75", score.Heuristic)
	}
	// 0.4*0.75 + 0.6*1.0 = 0.9, still above threshold.
	if score.Verdict != VerdictAccept {
		t.Errorf("verdict = %s, want accept", score.Verdict)
	}
	if !slices.Contains(score.Reasons, ReasonStemTooShort) {
		t.Errorf("reasons %v missing stem_too_short", score.Reasons)
	}
}

func TestScore_ScoringUnavailable(t *testing.T) {
	// Empty mock queue: every sample fails with ErrProviderUnavailable.
	mock := llm.NewMockProvider()
	s, err := NewScorer(mock, scorerConfig(), time.Second)
	if err != nil {
		t.Fatal(err)
	}

	score, err := s.Score(context.Background(), goodCandidate())
	if err != nil {
		t.Fatalf("transient exhaustion must not abort the stage: %v", err)
	}
	if score.Verdict != VerdictReject {
		t.Fatalf("verdict = %s, want reject", score.Verdict)
	}
	if !slices.Contains(score.Reasons, ReasonScoringUnavailable) {
		t.Errorf("reasons %v missing scoring_unavailable", score.Reasons)
	}
}

func TestScore_PartialSampleFailuresCountAsDisagreement(t *testing.T) {
	c := goodCandidate()
	mock := llm.NewMockProvider(
		answer(c.CorrectIndex),
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}},
		answer(c.CorrectIndex),
		answer(c.CorrectIndex),
		answer(c.CorrectIndex),
	)
	s, err := NewScorer(mock, scorerConfig(), time.Second)
	if err != nil {
		t.Fatal(err)
	}

	score, err := s.Score(context.Background(), c)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score.Consistency != 0.8 {
		t.Errorf("consistency = %v, want 0.8", score.Consistency)
	}
}

func TestScore_MalformedSamplesCountAsDisagreement(t *testing.T) {
	// The gateway retries an unparseable response once; if it stays
	// malformed that is this candidate's problem, not the stage's.
	malformed := llm.MockResponse{Err: &llm.ErrInvalidResponse{Content: []byte("not json")}}
	mock := llm.NewMockProvider(malformed, malformed, malformed, malformed, malformed)
	s, err := NewScorer(mock, scorerConfig(), time.Second)
	if err != nil {
		t.Fatal(err)
	}

	score, err := s.Score(context.Background(), goodCandidate())
	if err != nil {
		t.Fatalf("malformed samples must not abort the stage: %v", err)
	}
	if score.Consistency != 0 {
		t.Errorf("consistency = %v, want 0", score.Consistency)
	}
	if score.Verdict != VerdictReject {
		t.Errorf("verdict = %s, want reject", score.Verdict)
	}
	if !slices.Contains(score.Reasons, ReasonLowQuality) {
		t.Errorf("reasons %v missing low_quality_score", score.Reasons)
	}
}

func TestScore_FatalErrorAborts(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrMaxTokensExceeded{}},
	)
	s, err := NewScorer(mock, scorerConfig(), time.Second)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Score(context.Background(), goodCandidate())
	if err == nil {
		t.Fatal("expected fatal error to propagate")
	}
	var maxTok *llm.ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %T", err)
	}
}

func TestNewScorer_WeightsMustSumToOne(t *testing.T) {
	cfg := scorerConfig()
	cfg.HeuristicWeight = 0.5 // 0.5 + 0.6 != 1.0

	_, err := NewScorer(llm.NewMockProvider(), cfg, time.Second)
	if err == nil {
		t.Fatal("expected config error")
	}
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
}
