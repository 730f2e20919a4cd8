package answer

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Generation stays conservative: low temperature keeps answers grounded in
// the supplied context, the frequency penalty damps repeated phrases.
const (
	generateTemperature      = 0.3
	generateMaxTokens        = 256
	generateFrequencyPenalty = 0.5
)

// OpenAIGenerator produces answers through the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator using OPENAI_API_KEY from the
// environment. model may be empty, defaulting to gpt-4o-mini.
func NewOpenAIGenerator(model string) (*OpenAIGenerator, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{client: openai.NewClient(key), model: model}, nil
}

// Generate sends the prompt as a single user message and returns the reply.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            g.model,
		Temperature:      generateTemperature,
		MaxTokens:        generateMaxTokens,
		FrequencyPenalty: generateFrequencyPenalty,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
