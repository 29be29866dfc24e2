package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", &ErrRateLimit{RetryAfter: time.Second, Err: errors.New("429")}, true},
		{"unavailable", &ErrProviderUnavailable{Err: errors.New("503")}, true},
		{"plain network error", fmt.Errorf("connection reset"), true},
		{"unsupported", &ErrUnsupported{Provider: "anthropic", Capability: "embeddings"}, false},
		{"max tokens", &ErrMaxTokensExceeded{}, false},
		{"invalid response", &ErrInvalidResponse{Err: errors.New("bad json")}, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrUnwrap(t *testing.T) {
	inner := errors.New("boom")

	if !errors.Is(&ErrRateLimit{Err: inner}, inner) {
		t.Error("ErrRateLimit should unwrap to inner error")
	}
	if !errors.Is(&ErrProviderUnavailable{Err: inner}, inner) {
		t.Error("ErrProviderUnavailable should unwrap to inner error")
	}
	if !errors.Is(&ErrInvalidResponse{Err: inner}, inner) {
		t.Error("ErrInvalidResponse should unwrap to inner error")
	}
}
