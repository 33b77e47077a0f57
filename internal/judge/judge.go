// Package judge asks a grading model to evaluate a whole transcript.
package judge

import (
	"context"
	"fmt"

	"github.com/mwiater/llmeval/internal/logging"
	"github.com/mwiater/llmeval/internal/providers"
)

// Client grades a transcript and returns the judge's raw text.
type Client interface {
	Judge(ctx context.Context, transcript, instructions string) (string, error)
}

// Options configures a ProviderJudge.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	// Buffered skips the streaming attempt and issues one blocking call.
	Buffered bool
	// OnChunk, when set, receives streamed text as it arrives. Text from a
	// failed stream may already have been delivered before the fallback.
	OnChunk func(string)
}

// ProviderJudge is a Client over a ChatProvider.
type ProviderJudge struct {
	provider providers.ChatProvider
	opts     Options
}

// New returns a judge that grades with p.
func New(p providers.ChatProvider, opts Options) *ProviderJudge {
	return &ProviderJudge{provider: p, opts: opts}
}

// Judge sends transcript with instructions as the system message. A streamed
// attempt comes first; if it fails for any reason, one buffered call with the
// same arguments is made before an error is returned. Only complete text is
// ever returned.
func (j *ProviderJudge) Judge(ctx context.Context, transcript, instructions string) (string, error) {
	req := providers.StreamRequest{
		Model:        j.opts.Model,
		SystemPrompt: instructions,
		History: []providers.ChatMessage{{
			Role:    "user",
			Content: transcript,
		}},
		Temperature: j.opts.Temperature,
		MaxTokens:   j.opts.MaxTokens,
	}

	if !j.opts.Buffered {
		text, err := j.stream(ctx, req)
		if err == nil {
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logging.LogEvent("judge %s: streaming failed, falling back to a buffered call: %v", j.provider.Name(), err)
	}

	req.DisableStreaming = true
	text, _, err := providers.Collect(ctx, j.provider, req)
	if err != nil {
		return "", fmt.Errorf("judge %s: %w", j.opts.Model, err)
	}
	if j.opts.OnChunk != nil {
		j.opts.OnChunk(text)
	}
	return text, nil
}

func (j *ProviderJudge) stream(ctx context.Context, req providers.StreamRequest) (string, error) {
	if j.opts.OnChunk == nil {
		text, _, err := providers.Collect(ctx, j.provider, req)
		return text, err
	}

	wrapped := &chunkForwarder{inner: j.provider, onChunk: j.opts.OnChunk}
	text, _, err := providers.Collect(ctx, wrapped, req)
	return text, err
}

// chunkForwarder tees streamed chunks to a display callback.
type chunkForwarder struct {
	inner   providers.ChatProvider
	onChunk func(string)
}

func (c *chunkForwarder) Name() string { return c.inner.Name() }
func (c *chunkForwarder) Close() error { return nil }

func (c *chunkForwarder) Stream(ctx context.Context, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	next := callbacks.OnChunk
	callbacks.OnChunk = func(msg providers.ChatMessage) error {
		c.onChunk(msg.Content)
		if next == nil {
			return nil
		}
		return next(msg)
	}
	return c.inner.Stream(ctx, req, callbacks)
}
