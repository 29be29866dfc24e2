// Package validate decides which generated candidates enter the dataset.
// It combines cheap heuristic checks with LLM self-consistency sampling
// and filters batches with trivial stem deduplication.
package validate

// Verdict is the acceptance decision for one candidate.
type Verdict string

const (
	VerdictAccept Verdict = "accept"
	VerdictReject Verdict = "reject"
)

// Reason codes attached to rejections. Stable strings: they end up in the
// exported dataset's audit section.
const (
	ReasonOptionCount         = "option_count_out_of_range"
	ReasonDuplicateOptions    = "duplicate_options"
	ReasonStemTooShort        = "stem_too_short"
	ReasonInvalidCorrectIndex = "invalid_correct_index"
	ReasonLowQuality          = "low_quality_score"
	ReasonScoringUnavailable  = "scoring_unavailable"
	ReasonDuplicateStem       = "duplicate_stem"
)

// QualityScore is the scoring result for one candidate. Created once by
// the scorer and never mutated afterwards.
type QualityScore struct {
	// Heuristic is the structural score in [0, 1]: 1.0 minus a fixed
	// penalty per failed check.
	Heuristic float64 `json:"heuristic_score"`

	// Consistency is the fraction of independent LLM samples that agreed
	// with the candidate's declared correct option.
	Consistency float64 `json:"consistency_score"`

	// Combined is the weighted combination of the two, in [0, 1].
	Combined float64 `json:"combined_score"`

	// Verdict is accept or reject.
	Verdict Verdict `json:"verdict"`

	// Reasons lists failure codes in the order they were detected.
	// Empty for clean accepts.
	Reasons []string `json:"reasons,omitempty"`
}
