package runner

import (
	"context"
	"fmt"

	"github.com/mwiater/llmeval/internal/providers"
)

// ModelClient asks a model under test a single question.
type ModelClient interface {
	Ask(ctx context.Context, question, systemMessage, modelName string, temperature float64) (string, error)
}

// ProviderClient is a ModelClient over a ChatProvider. Each Ask is one
// buffered round trip with no retry.
type ProviderClient struct {
	provider providers.ChatProvider
	params   map[string]any
}

// NewModelClient returns a client that forwards params (the model's
// provider-specific keys) with every request.
func NewModelClient(p providers.ChatProvider, params map[string]any) *ProviderClient {
	return &ProviderClient{provider: p, params: params}
}

// Ask sends question with systemMessage to modelName and returns the answer text.
func (c *ProviderClient) Ask(ctx context.Context, question, systemMessage, modelName string, temperature float64) (string, error) {
	req := providers.StreamRequest{
		Model:        modelName,
		SystemPrompt: systemMessage,
		History: []providers.ChatMessage{{
			Role:    "user",
			Content: question,
		}},
		Temperature:      providers.Float64Ptr(temperature),
		Parameters:       c.params,
		DisableStreaming: true,
	}

	answer, _, err := providers.Collect(ctx, c.provider, req)
	if err != nil {
		return "", fmt.Errorf("ask %s: %w", modelName, err)
	}
	return answer, nil
}
