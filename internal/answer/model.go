// Package answer selects a final answer from retrieved context, either by
// extractive question answering or by generation.
package answer

import "context"

// QAOutput is the raw result of one span-extraction call: the decoded span
// and the model's confidence in its start and end positions.
type QAOutput struct {
	Span       string
	StartScore float64
	EndScore   float64
}

// QAModel extracts an answer span for a question from a context passage.
type QAModel interface {
	Answer(ctx context.Context, question, passage string) (QAOutput, error)
}

// Generator produces free-form text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
