// Package providers defines the capability interface shared by every chat
// endpoint llmeval talks to. Models under test and the judge are both reached
// through a ChatProvider; the concrete family (OpenAI-compatible or
// Anthropic-compatible) is chosen once from configuration by providerfactory.
package providers

import (
	"context"
	"strings"
	"time"
)

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// StreamMetadata describes a completed response.
type StreamMetadata struct {
	Model      string
	CreatedAt  time.Time
	Done       bool
	StopReason string
}

// StreamRequest encapsulates all the information needed for one chat call.
// A nil Temperature leaves the provider default in place. Parameters holds
// provider-specific request keys that are forwarded as-is.
type StreamRequest struct {
	Model            string
	SystemPrompt     string
	History          []ChatMessage
	Temperature      *float64
	MaxTokens        int
	Parameters       map[string]any
	DisableStreaming bool
}

// StreamCallbacks defines the callback functions invoked during a chat call.
// OnChunk receives each incremental piece of text (exactly one piece when
// streaming is disabled); OnComplete is called once the response is finished.
type StreamCallbacks struct {
	OnChunk    func(ChatMessage) error
	OnComplete func(StreamMetadata) error
}

// ChatProvider is the interface every provider family implements.
type ChatProvider interface {
	// Name identifies the provider endpoint in logs.
	Name() string
	// Stream performs one chat call, streamed unless req.DisableStreaming is set.
	Stream(ctx context.Context, req StreamRequest, callbacks StreamCallbacks) error
	// Close cleans up any resources used by the provider.
	Close() error
}

// Collect performs req against p and returns the assembled response text.
// On failure it returns an empty string, never the partial text received so far.
func Collect(ctx context.Context, p ChatProvider, req StreamRequest) (string, StreamMetadata, error) {
	var output strings.Builder
	var meta StreamMetadata

	callbacks := StreamCallbacks{
		OnChunk: func(chunk ChatMessage) error {
			output.WriteString(chunk.Content)
			return nil
		},
		OnComplete: func(m StreamMetadata) error {
			meta = m
			return nil
		},
	}

	if err := p.Stream(ctx, req, callbacks); err != nil {
		return "", StreamMetadata{}, err
	}
	return output.String(), meta, nil
}

// Float64Ptr returns a pointer to v, for StreamRequest.Temperature.
func Float64Ptr(v float64) *float64 {
	return &v
}
