package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/benchgen/internal/config"
	"github.com/abhisek/benchgen/internal/generate"
	"github.com/abhisek/benchgen/internal/llm"
)

// heuristicPenalty is subtracted from the heuristic score per failed
// check. Four checks, so an all-fail candidate bottoms out at 0.
const heuristicPenalty = 0.25

// answerSchema is the structured output for one self-consistency sample.
var answerSchema = &llm.Schema{
	Name:        "mcq-answer",
	Description: "The index of the correct option for a multiple-choice question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer_index": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"description": "Zero-based index of the option you judge correct",
			},
		},
		"required":             []any{"answer_index"},
		"additionalProperties": false,
	},
}

const answerSystemPrompt = `You are grading a multiple-choice question. Pick the single correct option based only on the question itself. Answer independently; do not assume the question's author was right.`

// Scorer scores one candidate at a time. Safe for concurrent use.
type Scorer struct {
	provider llm.Provider
	cfg      config.ValidationConfig
	timeout  time.Duration
}

// NewScorer builds a Scorer, failing fast with a ConfigError when the
// scoring weights are inconsistent.
func NewScorer(provider llm.Provider, cfg config.ValidationConfig, timeout time.Duration) (*Scorer, error) {
	if sum := cfg.HeuristicWeight + cfg.ConsistencyWeight; sum < 0.999999 || sum > 1.000001 {
		return nil, &config.ConfigError{
			Field:  "validation.heuristic_weight/consistency_weight",
			Reason: fmt.Sprintf("must sum to 1.0, got %.3f", sum),
		}
	}
	if cfg.ConsistencySamples < 1 {
		return nil, &config.ConfigError{Field: "validation.consistency_samples", Reason: "must be >= 1"}
	}
	return &Scorer{provider: provider, cfg: cfg, timeout: timeout}, nil
}

// runChecks returns the heuristic score, the failure reasons, and whether
// a hard (disqualifying) check failed. Duplicate options and an
// out-of-range correct index are hard; option count and stem length only
// penalize.
func (s *Scorer) runChecks(c generate.Candidate) (score float64, reasons []string, hardFail bool) {
	score = 1.0
	fail := func(reason string, hard bool) {
		score -= heuristicPenalty
		reasons = append(reasons, reason)
		if hard {
			hardFail = true
		}
	}

	if len(c.Options) < 2 || len(c.Options) > 6 {
		fail(ReasonOptionCount, false)
	}

	seen := make(map[string]bool, len(c.Options))
	for _, o := range c.Options {
		if seen[o] {
			fail(ReasonDuplicateOptions, true)
			break
		}
		seen[o] = true
	}

	if len(strings.TrimSpace(c.Stem)) < s.cfg.MinStemLength {
		fail(ReasonStemTooShort, false)
	}

	if c.CorrectIndex < 0 || c.CorrectIndex >= len(c.Options) {
		fail(ReasonInvalidCorrectIndex, true)
	}

	if score < 0 {
		score = 0
	}
	return score, reasons, hardFail
}

// Score evaluates one candidate. A non-nil error means the gateway failed
// in a non-retryable way and the whole stage should abort; every
// per-candidate outcome, including scoring unavailability, is expressed in
// the returned QualityScore instead.
func (s *Scorer) Score(ctx context.Context, c generate.Candidate) (QualityScore, error) {
	heuristic, reasons, hardFail := s.runChecks(c)

	// A hard failure is disqualifying no matter what the LLM thinks, so
	// skip the sampling spend entirely.
	if hardFail {
		return QualityScore{
			Heuristic: heuristic,
			Combined:  s.cfg.HeuristicWeight * heuristic,
			Verdict:   VerdictReject,
			Reasons:   reasons,
		}, nil
	}

	consistency, err := s.sampleConsistency(ctx, c)
	if err != nil {
		if llm.IsTransient(err) || isTimeout(err) {
			// Retries exhausted: never silently accept.
			return QualityScore{
				Heuristic: heuristic,
				Verdict:   VerdictReject,
				Reasons:   append(reasons, ReasonScoringUnavailable),
			}, nil
		}
		return QualityScore{}, err
	}

	combined := s.cfg.HeuristicWeight*heuristic + s.cfg.ConsistencyWeight*consistency

	verdict := VerdictReject
	if combined >= s.cfg.MinQualityScore {
		verdict = VerdictAccept
	} else {
		reasons = append(reasons, ReasonLowQuality)
	}

	return QualityScore{
		Heuristic:   heuristic,
		Consistency: consistency,
		Combined:    combined,
		Verdict:     verdict,
		Reasons:     reasons,
	}, nil
}

// sampleConsistency asks the gateway k times which option is correct and
// returns the agreement rate with the candidate's declared answer.
// Individual sample failures count as disagreement; if every sample fails
// transiently the last error is returned. A sample the gateway could not
// coerce into the schema even after its retry is disagreement too, since
// only this candidate is affected.
func (s *Scorer) sampleConsistency(ctx context.Context, c generate.Candidate) (float64, error) {
	k := s.cfg.ConsistencySamples

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nOptions:\n", c.Stem)
	for i, o := range c.Options {
		fmt.Fprintf(&b, "%d. %s\n", i, o)
	}
	userMsg := b.String()

	agree := 0
	failures := 0
	var lastErr error

	for range k {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		idx, err := s.sampleOnce(ctx, userMsg)
		if err != nil {
			var invalid *llm.ErrInvalidResponse
			if errors.As(err, &invalid) {
				continue
			}
			if !llm.IsTransient(err) && !isTimeout(err) {
				return 0, err
			}
			failures++
			lastErr = err
			continue
		}
		if idx == c.CorrectIndex {
			agree++
		}
	}

	if failures == k {
		return 0, lastErr
	}
	return float64(agree) / float64(k), nil
}

func (s *Scorer) sampleOnce(ctx context.Context, userMsg string) (int, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeConsistency)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		System: answerSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		Schema:      answerSchema,
		MaxTokens:   64,
		Temperature: 0.2,
	})
	if err != nil {
		return 0, err
	}

	var out struct {
		AnswerIndex int `json:"answer_index"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		// Malformed sample: treat as disagreement, not an outage.
		return -1, nil
	}
	return out.AnswerIndex, nil
}

// isTimeout reports whether err is a per-call deadline expiry. The parent
// run context is checked separately before each sample.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
