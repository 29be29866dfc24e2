package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

var questionSchema = &Schema{
	Name: "test-question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"stem": map[string]any{"type": "string"},
			"correct_index": map[string]any{
				"type":    "integer",
				"minimum": 0,
			},
		},
		"required":             []any{"stem", "correct_index"},
		"additionalProperties": false,
	},
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"conforming payload", `{"stem":"What is TCP?","correct_index":1}`, false},
		{"missing required field", `{"stem":"What is TCP?"}`, true},
		{"wrong type", `{"stem":"What is TCP?","correct_index":"one"}`, true},
		{"extra field", `{"stem":"q","correct_index":0,"bogus":true}`, true},
		{"not JSON", `{stem:`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(questionSchema, json.RawMessage(tt.raw))
			if tt.wantErr {
				var invalid *ErrInvalidResponse
				if !errors.As(err, &invalid) {
					t.Fatalf("expected ErrInvalidResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateResponse_NilSchemaSkipsValidation(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`anything goes`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateResponse_CachesCompiledSchema(t *testing.T) {
	raw := json.RawMessage(`{"stem":"q","correct_index":0}`)
	if err := validateResponse(questionSchema, raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := compiledSchemas.Load(questionSchema.Name); !ok {
		t.Error("compiled schema not cached")
	}
}
