package llm

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"math"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider is a deterministic Provider for testing.
// Generate returns canned responses in FIFO order and records all requests.
// Embed returns canned vectors when queued, otherwise a deterministic
// hash-derived vector per text so embedding-dependent code stays testable
// without fixtures.
type MockProvider struct {
	mu         sync.Mutex
	responses  []MockResponse
	embeddings [][][]float64
	embedErrs  []error
	Calls      []Request
	EmbedCalls [][]string

	// EmbedDim is the dimensionality of hash-derived vectors. Default 8.
	EmbedDim int
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses, EmbedDim: 8}
}

// Generate returns the next canned response or ErrProviderUnavailable if
// the queue is empty.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return nil, &ErrProviderUnavailable{Err: nil}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return nil, resp.Err
	}

	return &Response{
		Content:    resp.Content,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// Embed returns queued vectors/errors in FIFO order, falling back to
// deterministic hash-derived vectors.
func (m *MockProvider) Embed(_ context.Context, texts []string) ([][]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EmbedCalls = append(m.EmbedCalls, texts)

	if len(m.embedErrs) > 0 {
		err := m.embedErrs[0]
		m.embedErrs = m.embedErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	if len(m.embeddings) > 0 {
		vectors := m.embeddings[0]
		m.embeddings = m.embeddings[1:]
		return vectors, nil
	}

	dim := m.EmbedDim
	if dim <= 0 {
		dim = 8
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t, dim)
	}
	return out, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the Generate queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// AddEmbedding appends a canned vector batch to the Embed queue.
func (m *MockProvider) AddEmbedding(vectors [][]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings = append(m.embeddings, vectors)
}

// AddEmbedError appends an error to be returned by the next Embed call.
func (m *MockProvider) AddEmbedError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedErrs = append(m.embedErrs, err)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// EmbedCallCount returns the number of Embed calls made.
func (m *MockProvider) EmbedCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.EmbedCalls)
}

// hashVector derives a stable unit-length vector from text.
func hashVector(text string, dim int) []float64 {
	v := make([]float64, dim)
	var norm float64
	for i := range dim {
		h := fnv.New64a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i)})
		v[i] = float64(int64(h.Sum64())) / float64(1<<63) // [-1, 1)
		norm += v[i] * v[i]
	}
	if norm > 0 {
		scale := 1 / math.Sqrt(norm)
		for i := range v {
			v[i] *= scale
		}
	}
	return v
}
