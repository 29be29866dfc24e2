package generate

import "github.com/abhisek/benchgen/internal/llm"

// CandidateSchema defines the JSON schema for question generation responses.
var CandidateSchema = &llm.Schema{
	Name:        "mcq-candidates",
	Description: "A batch of multiple-choice questions derived from a document chunk",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":        "array",
				"description": "The generated questions, at most the requested count",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"stem": map[string]any{
							"type":        "string",
							"description": "The question text, self-contained and answerable from the context alone",
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "The answer options. All distinct, exactly one correct.",
						},
						"correct_index": map[string]any{
							"type":        "integer",
							"minimum":     0,
							"description": "Zero-based index of the correct option",
						},
						"rationale": map[string]any{
							"type":        "string",
							"description": "One or two sentences explaining the correct answer",
						},
					},
					"required":             []any{"stem", "options", "correct_index", "rationale"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
