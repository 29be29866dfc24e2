package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/benchgen/internal/llm"
)

func TestEnrich_SummarizesMultiMemberClusters(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`{"summary":"TCP fundamentals"}`)},
	)
	s := NewSummarizer(mock, time.Second)

	members := []Member{
		{ID: "a", Stem: "What is TCP?"},
		{ID: "b", Stem: "Define TCP."},
	}
	clusters := []Cluster{
		{ID: "cluster-000", MemberIDs: []string{"a", "b"}, RepresentativeID: "a"},
	}

	enriched := s.Enrich(context.Background(), clusters, members)
	if enriched[0].Summary != "TCP fundamentals" {
		t.Errorf("summary = %q", enriched[0].Summary)
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}
}

func TestEnrich_SingletonsSkipGateway(t *testing.T) {
	mock := llm.NewMockProvider()
	s := NewSummarizer(mock, time.Second)

	members := []Member{{ID: "a", Stem: "What is DNS?"}}
	clusters := []Cluster{
		{ID: "cluster-000", MemberIDs: []string{"a"}, RepresentativeID: "a"},
	}

	enriched := s.Enrich(context.Background(), clusters, members)
	if enriched[0].Summary != "What is DNS?" {
		t.Errorf("summary = %q, want representative stem", enriched[0].Summary)
	}
	if mock.CallCount() != 0 {
		t.Errorf("calls = %d, want 0", mock.CallCount())
	}
}

func TestEnrich_FallsBackOnError(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}},
	)
	s := NewSummarizer(mock, time.Second)

	members := []Member{
		{ID: "a", Stem: "What is TCP?"},
		{ID: "b", Stem: "Define TCP."},
	}
	clusters := []Cluster{
		{ID: "cluster-000", MemberIDs: []string{"a", "b"}, RepresentativeID: "a"},
	}

	enriched := s.Enrich(context.Background(), clusters, members)
	if enriched[0].Summary != "What is TCP?" {
		t.Errorf("summary = %q, want representative stem fallback", enriched[0].Summary)
	}
}

func TestEnrich_FallsBackOnMalformedPayload(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`not json`)},
	)
	s := NewSummarizer(mock, time.Second)

	members := []Member{
		{ID: "a", Stem: "What is TCP?"},
		{ID: "b", Stem: "Define TCP."},
	}
	clusters := []Cluster{
		{ID: "cluster-000", MemberIDs: []string{"a", "b"}, RepresentativeID: "a"},
	}

	enriched := s.Enrich(context.Background(), clusters, members)
	if enriched[0].Summary != "What is TCP?" {
		t.Errorf("summary = %q, want representative stem fallback", enriched[0].Summary)
	}
}
