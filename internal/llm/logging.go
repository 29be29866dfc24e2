package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RequestRecord captures one gateway call for auditing.
type RequestRecord struct {
	Timestamp    time.Time
	Purpose      string
	Kind         string // "generate" or "embed"
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// Recorder persists gateway request records. Implemented by the audit log;
// a nil-safe no-op is used when auditing is disabled.
type Recorder interface {
	Append(ctx context.Context, rec RequestRecord) error
}

// LoggingProvider is a decorator that logs every gateway call and, when a
// Recorder is configured, persists it to the audit log.
type LoggingProvider struct {
	inner    Provider
	log      zerolog.Logger
	recorder Recorder
}

// WithLogging wraps a Provider with structured logging and audit recording.
// recorder may be nil.
func WithLogging(p Provider, log zerolog.Logger, recorder Recorder) Provider {
	return &LoggingProvider{inner: p, log: log, recorder: recorder}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	rec := RequestRecord{
		Timestamp: start,
		Purpose:   PurposeFrom(ctx),
		Kind:      "generate",
		Model:     l.inner.ModelID(),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if resp != nil {
		rec.InputTokens = resp.Usage.InputTokens
		rec.OutputTokens = resp.Usage.OutputTokens
		rec.Model = resp.Model
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	l.emit(ctx, rec)

	return resp, err
}

func (l *LoggingProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	start := time.Now()
	vectors, err := l.inner.Embed(ctx, texts)

	rec := RequestRecord{
		Timestamp: start,
		Purpose:   PurposeFrom(ctx),
		Kind:      "embed",
		Model:     l.inner.ModelID(),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	l.emit(ctx, rec)

	return vectors, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func (l *LoggingProvider) emit(ctx context.Context, rec RequestRecord) {
	evt := l.log.Debug().
		Str("purpose", rec.Purpose).
		Str("kind", rec.Kind).
		Str("model", rec.Model).
		Int64("latency_ms", rec.LatencyMs).
		Bool("success", rec.Success)
	if rec.ErrorMessage != "" {
		evt = evt.Str("error", rec.ErrorMessage)
	}
	evt.Msg("llm request")

	// Audit failures must not fail the request.
	if l.recorder != nil {
		if err := l.recorder.Append(ctx, rec); err != nil {
			l.log.Warn().Err(err).Msg("failed to record llm request")
		}
	}
}
