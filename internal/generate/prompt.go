package generate

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert question writer creating rigorous multiple-choice questions from technical documents.

Rules:
- Every question must be answerable from the provided context alone, without outside knowledge.
- Write self-contained stems. Never refer to "the text", "the passage", or "the context above".
- Provide exactly the requested number of options per question. All options must be distinct.
- Exactly one option is correct. Distractors should be plausible misreadings, not random values.
- Give a short rationale citing the fact in the context that makes the answer correct.
- Do not repeat or trivially rephrase any question from the "already generated" list.`

// buildUserMessage constructs the user message for one chunk.
func buildUserMessage(chunkText string, priorStems []string, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create up to %d multiple-choice questions with %d options each.\n",
		cfg.MaxQuestionsPerChunk, cfg.OptionCount)

	b.WriteString("\nAlready generated in this run:\n")
	b.WriteString(buildPriorList(priorStems, cfg.MaxPriorStems))

	b.WriteString("\n\nContext:\n")
	b.WriteString(chunkText)

	return b.String()
}

// buildPriorList formats prior stems for the prompt, respecting the max
// limit. Returns "None" if there are no prior stems.
func buildPriorList(stems []string, max int) string {
	if len(stems) == 0 {
		return "None"
	}

	// Keep only the most recent N stems.
	if max > 0 && len(stems) > max {
		stems = stems[len(stems)-max:]
	}

	var b strings.Builder
	for i, s := range stems {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return strings.TrimRight(b.String(), "\n")
}
