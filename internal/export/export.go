// Package export writes the finished dataset to disk as JSONL or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/abhisek/benchgen/internal/cluster"
	"github.com/abhisek/benchgen/internal/config"
	"github.com/abhisek/benchgen/internal/validate"
)

// Metadata is the optional per-question audit block.
type Metadata struct {
	HeuristicScore   float64  `json:"heuristic_score"`
	ConsistencyScore float64  `json:"consistency_score"`
	CombinedScore    float64  `json:"combined_score"`
	ClusterID        string   `json:"cluster_id,omitempty"`
	ClusterSummary   string   `json:"cluster_summary,omitempty"`
	Reasons          []string `json:"reasons,omitempty"`
}

// Item is one exported question.
type Item struct {
	ID            string    `json:"id"`
	Stem          string    `json:"stem"`
	Options       []string  `json:"options"`
	CorrectIndex  int       `json:"correct_index"`
	Rationale     string    `json:"rationale,omitempty"`
	SourceChunkID string    `json:"source_chunk_id,omitempty"`
	Metadata      *Metadata `json:"metadata,omitempty"`
}

// RejectedItem is one filtered-out candidate kept for the audit trail.
type RejectedItem struct {
	ID            string   `json:"id"`
	Stem          string   `json:"stem"`
	Reasons       []string `json:"reasons"`
	CombinedScore float64  `json:"combined_score"`
}

// Counts summarizes one run.
type Counts struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Errored  int `json:"errored"`
}

// Report is everything a run produced.
type Report struct {
	Accepted []Item         `json:"accepted"`
	Rejected []RejectedItem `json:"rejected"`
	Clusters []cluster.Cluster `json:"clusters"`
	Counts   Counts         `json:"counts"`
}

// BuildReport assembles a Report from the filter output and clusters.
// errored counts generation chunks that failed and were skipped.
func BuildReport(batch *validate.BatchResult, clusters []cluster.Cluster, errored int) Report {
	clusterOf := make(map[string]cluster.Cluster)
	for _, c := range clusters {
		for _, id := range c.MemberIDs {
			clusterOf[id] = c
		}
	}

	report := Report{Clusters: clusters}
	for _, d := range batch.Accepted {
		item := Item{
			ID:            d.Candidate.ID,
			Stem:          d.Candidate.Stem,
			Options:       d.Candidate.Options,
			CorrectIndex:  d.Candidate.CorrectIndex,
			Rationale:     d.Candidate.Rationale,
			SourceChunkID: d.Candidate.SourceChunkID,
			Metadata: &Metadata{
				HeuristicScore:   d.Score.Heuristic,
				ConsistencyScore: d.Score.Consistency,
				CombinedScore:    d.Score.Combined,
				Reasons:          d.Score.Reasons,
			},
		}
		if c, ok := clusterOf[d.Candidate.ID]; ok {
			item.Metadata.ClusterID = c.ID
			item.Metadata.ClusterSummary = c.Summary
		}
		report.Accepted = append(report.Accepted, item)
	}
	for _, d := range batch.Rejected {
		report.Rejected = append(report.Rejected, RejectedItem{
			ID:            d.Candidate.ID,
			Stem:          d.Candidate.Stem,
			Reasons:       d.Reasons,
			CombinedScore: d.Score.Combined,
		})
	}
	report.Counts = Counts{
		Accepted: len(report.Accepted),
		Rejected: len(report.Rejected),
		Errored:  errored,
	}
	return report
}

// Write renders the report to cfg.OutputPath in the configured format.
func Write(report Report, cfg config.ExportConfig) error {
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	switch cfg.Format {
	case "jsonl":
		if err := WriteJSONL(f, report, cfg.IncludeMetadata); err != nil {
			return err
		}
	case "csv":
		if err := WriteCSV(f, report, cfg.IncludeMetadata); err != nil {
			return err
		}
	default:
		return &config.ConfigError{Field: "export.format", Reason: fmt.Sprintf("unsupported format %q", cfg.Format)}
	}
	return f.Close()
}

// WriteJSONL writes one JSON object per line: a record for each accepted
// question, then, when metadata is enabled, the rejections, clusters and
// run counts so a dataset file is auditable on its own.
func WriteJSONL(w io.Writer, report Report, includeMetadata bool) error {
	enc := json.NewEncoder(w)

	for _, item := range report.Accepted {
		out := item
		if !includeMetadata {
			out.Metadata = nil
		}
		if err := enc.Encode(record{Type: "question", Question: &out}); err != nil {
			return fmt.Errorf("write question: %w", err)
		}
	}
	if !includeMetadata {
		return nil
	}

	for _, r := range report.Rejected {
		if err := enc.Encode(record{Type: "rejected", Rejected: &r}); err != nil {
			return fmt.Errorf("write rejection: %w", err)
		}
	}
	for _, c := range report.Clusters {
		if err := enc.Encode(record{Type: "cluster", Cluster: &c}); err != nil {
			return fmt.Errorf("write cluster: %w", err)
		}
	}
	if err := enc.Encode(record{Type: "summary", Counts: &report.Counts}); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// record is one JSONL line. Exactly one payload field is set.
type record struct {
	Type     string           `json:"type"`
	Question *Item            `json:"question,omitempty"`
	Rejected *RejectedItem    `json:"rejected,omitempty"`
	Cluster  *cluster.Cluster `json:"cluster,omitempty"`
	Counts   *Counts          `json:"counts,omitempty"`
}

// WriteCSV writes the accepted questions as rows. Options are joined with
// "|". Rejections and clusters do not fit a flat table and are JSONL-only.
func WriteCSV(w io.Writer, report Report, includeMetadata bool) error {
	cw := csv.NewWriter(w)

	header := []string{"id", "stem", "options", "correct_index", "rationale", "source_chunk_id"}
	if includeMetadata {
		header = append(header, "combined_score", "cluster_id", "cluster_summary")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, item := range report.Accepted {
		row := []string{
			item.ID,
			item.Stem,
			strings.Join(item.Options, "|"),
			strconv.Itoa(item.CorrectIndex),
			item.Rationale,
			item.SourceChunkID,
		}
		if includeMetadata {
			m := item.Metadata
			if m == nil {
				m = &Metadata{}
			}
			row = append(row,
				strconv.FormatFloat(m.CombinedScore, 'f', 4, 64),
				m.ClusterID,
				m.ClusterSummary,
			)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
