// Package anthropic provides a ChatProvider backed by the Anthropic Messages
// API through the official SDK.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mwiater/llmeval/internal/logging"
	"github.com/mwiater/llmeval/internal/providers"
)

const (
	// DefaultMaxTokens is used when a request does not set MaxTokens.
	DefaultMaxTokens = 4096
	DefaultTimeout   = 600 * time.Second
)

// ErrMissingAPIKey is returned by New when no API key is supplied.
var ErrMissingAPIKey = errors.New("anthropic: API key is required")

// Options configures a Provider.
type Options struct {
	APIKey string
	// BaseURL overrides the SDK default endpoint. Used by tests and proxies.
	BaseURL string
	Timeout time.Duration
}

// Provider implements the providers.ChatProvider interface using the Messages API.
type Provider struct {
	client  sdk.Client
	name    string
	timeout time.Duration
}

// New constructs a Provider. The SDK's automatic retries are disabled: a
// failed call surfaces to the caller, which owns any fallback.
func New(opts Options) (*Provider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	name := "anthropic"
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
		name = base
	}

	return &Provider{
		client:  sdk.NewClient(reqOpts...),
		name:    name,
		timeout: timeout,
	}, nil
}

// Name returns the endpoint identifier used in logs.
func (p *Provider) Name() string {
	return p.name
}

// Stream issues a Messages request and forwards output to the provided callbacks.
func (p *Provider) Stream(ctx context.Context, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	params := buildParams(req)
	logging.LogRequest(logging.Outbound, p.name, req.Model, params)

	if req.DisableStreaming {
		return p.handleNonStreaming(ctx, params, req, callbacks)
	}
	return p.handleStreaming(ctx, params, req, callbacks)
}

func (p *Provider) handleNonStreaming(ctx context.Context, params sdk.MessageNewParams, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return fmt.Errorf("anthropic: messages request: %w", err)
	}
	logging.LogRequest(logging.Inbound, p.name, req.Model, msg.RawJSON())

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if callbacks.OnChunk != nil && text.Len() > 0 {
		if err := callbacks.OnChunk(providers.ChatMessage{Role: "assistant", Content: text.String()}); err != nil {
			return err
		}
	}
	return complete(callbacks, string(msg.Model), req.Model, string(msg.StopReason))
}

func (p *Provider) handleStreaming(ctx context.Context, params sdk.MessageNewParams, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var finalModel, stopReason string
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case sdk.MessageStartEvent:
			finalModel = string(ev.Message.Model)
		case sdk.ContentBlockDeltaEvent:
			delta, ok := ev.Delta.AsAny().(sdk.TextDelta)
			if !ok || delta.Text == "" {
				continue
			}
			if callbacks.OnChunk != nil {
				if err := callbacks.OnChunk(providers.ChatMessage{Role: "assistant", Content: delta.Text}); err != nil {
					return err
				}
			}
		case sdk.MessageDeltaEvent:
			if ev.Delta.StopReason != "" {
				stopReason = string(ev.Delta.StopReason)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic: stream: %w", err)
	}
	logging.LogRequest(logging.Inbound, p.name, req.Model, map[string]string{"model": finalModel, "stop_reason": stopReason})

	return complete(callbacks, finalModel, req.Model, stopReason)
}

func buildParams(req providers.StreamRequest) sdk.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	messages := make([]sdk.MessageParam, 0, len(req.History))
	for _, msg := range req.History {
		block := sdk.NewTextBlock(msg.Content)
		if strings.EqualFold(strings.TrimSpace(msg.Role), "assistant") {
			messages = append(messages, sdk.NewAssistantMessage(block))
			continue
		}
		messages = append(messages, sdk.NewUserMessage(block))
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	return params
}

func complete(callbacks providers.StreamCallbacks, reported, requested, stopReason string) error {
	if callbacks.OnComplete == nil {
		return nil
	}
	modelName := reported
	if modelName == "" {
		modelName = requested
	}
	return callbacks.OnComplete(providers.StreamMetadata{
		Model:      modelName,
		CreatedAt:  time.Now(),
		Done:       true,
		StopReason: stopReason,
	})
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}
