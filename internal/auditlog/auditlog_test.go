package auditlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/benchgen/internal/llm"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndRecent(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	records := []llm.RequestRecord{
		{Timestamp: time.Now(), Purpose: "consistency", Kind: "generate", Model: "mock", InputTokens: 10, OutputTokens: 2, LatencyMs: 5, Success: true},
		{Timestamp: time.Now(), Purpose: "embedding", Kind: "embed", Model: "mock", LatencyMs: 7, Success: false, ErrorMessage: "rate limited"},
	}
	for _, rec := range records {
		require.NoError(t, l.Append(ctx, rec))
	}

	entries, err := l.Recent(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "embedding", entries[0].Purpose)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "rate limited", entries[0].ErrorMessage)
}

func TestRecentFiltersByPurpose(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	for _, purpose := range []string{"consistency", "embedding", "consistency"} {
		rec := llm.RequestRecord{Timestamp: time.Now(), Purpose: purpose, Kind: "generate", Model: "mock", Success: true}
		require.NoError(t, l.Append(ctx, rec))
	}

	entries, err := l.Recent(ctx, QueryOpts{Purpose: "consistency"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestUsageByPurpose(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	records := []llm.RequestRecord{
		{Timestamp: time.Now(), Purpose: "consistency", Kind: "generate", Model: "mock", InputTokens: 10, OutputTokens: 2, LatencyMs: 4, Success: true},
		{Timestamp: time.Now(), Purpose: "consistency", Kind: "generate", Model: "mock", InputTokens: 12, OutputTokens: 3, LatencyMs: 6, Success: true},
		{Timestamp: time.Now(), Purpose: "embedding", Kind: "embed", Model: "mock", InputTokens: 50, LatencyMs: 9, Success: true},
	}
	for _, rec := range records {
		require.NoError(t, l.Append(ctx, rec))
	}

	usage, err := l.UsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 2)

	first := usage[0]
	assert.Equal(t, "consistency", first.Purpose)
	assert.Equal(t, 2, first.Calls)
	assert.Equal(t, 22, first.InputTokens)
	assert.Equal(t, 5, first.OutputTokens)
	assert.Equal(t, 5, first.AvgLatencyMs)
}
