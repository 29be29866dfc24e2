package llm

import "context"

// Purpose labels attached to gateway calls. One per pipeline stage that
// talks to the LLM; the logging layer and the audit log group spend by
// these values, so they must stay stable across releases.
const (
	PurposeGeneration  = "question-gen"
	PurposeConsistency = "consistency"
	PurposeEmbedding   = "embedding"
	PurposeSummary     = "summary"
)

type contextKey string

const purposeKey contextKey = "llm_purpose"

// WithPurpose tags ctx with the stage issuing the call.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom returns the purpose tag, or "unknown" for untagged calls.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}
