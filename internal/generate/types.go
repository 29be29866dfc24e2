package generate

// Candidate is one generated multiple-choice question before any
// acceptance decision. Immutable once produced; validation and clustering
// read it but never mutate it.
type Candidate struct {
	// ID uniquely identifies the candidate within a run.
	ID string `json:"id"`

	// Stem is the question text.
	Stem string `json:"stem"`

	// Options holds 2-6 distinct answer options in display order.
	Options []string `json:"options"`

	// CorrectIndex points into Options at the declared correct answer.
	CorrectIndex int `json:"correct_index"`

	// Rationale is a short explanation of why the answer is correct.
	Rationale string `json:"rationale,omitempty"`

	// SourceChunkID references the originating document chunk. A weak
	// reference: downstream stages never touch ingestion data through it.
	SourceChunkID string `json:"source_chunk_id"`
}
