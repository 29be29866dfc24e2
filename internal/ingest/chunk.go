// Package ingest loads source documents and splits them into chunks that
// downstream question generation consumes. Only plain-text inputs are
// supported; richer formats are out of scope.
package ingest

// Chunk is one window of document text with provenance.
type Chunk struct {
	// ID uniquely identifies the chunk within a run, e.g. "notes-4cbb19e7-3".
	ID string

	// DocumentID identifies the source document.
	DocumentID string

	// Text is the chunk content.
	Text string

	// Metadata carries document-level attributes (title, path).
	Metadata map[string]string
}
