// Package openai provides a ChatProvider backed by an OpenAI-compatible
// /chat/completions HTTP API (LM Studio, llama.cpp server, vLLM, OpenAI).
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/llmeval/internal/logging"
	"github.com/mwiater/llmeval/internal/providers"
)

// DefaultTimeout bounds a single chat call when Options.Timeout is zero.
const DefaultTimeout = 600 * time.Second

// Options configures a Provider.
type Options struct {
	// Name identifies the endpoint in logs. Defaults to BaseURL.
	Name string
	// BaseURL is the API root, e.g. http://localhost:1234/v1.
	BaseURL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey  string
	Timeout time.Duration
}

// Provider implements the providers.ChatProvider interface over HTTP.
type Provider struct {
	client  *http.Client
	name    string
	baseURL string
	apiKey  string
	timeout time.Duration
}

// New constructs a Provider for the given endpoint.
func New(opts Options) *Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = baseURL
	}
	return &Provider{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		name:    name,
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		timeout: timeout,
	}
}

// Name returns the endpoint identifier used in logs.
func (p *Provider) Name() string {
	return p.name
}

// Stream issues a chat request and forwards output to the provided callbacks.
func (p *Provider) Stream(ctx context.Context, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	messages := req.History
	if req.SystemPrompt != "" {
		messages = append([]providers.ChatMessage{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}

	payload := map[string]any{}
	applyParameters(payload, req.Parameters)
	payload["model"] = req.Model
	payload["messages"] = toOpenAIMessages(messages)
	payload["stream"] = !req.DisableStreaming
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	logging.LogRequest(logging.Outbound, p.name, req.Model, body)

	streamCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	endpoint := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	if !req.DisableStreaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		logging.LogRequest(logging.Inbound, p.name, req.Model, raw)
		return fmt.Errorf("openai: /chat/completions returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	if req.DisableStreaming {
		return p.handleNonStreaming(resp, req, callbacks)
	}
	return p.handleStreaming(resp, req, callbacks)
}

func (p *Provider) handleNonStreaming(resp *http.Response, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	logging.LogRequest(logging.Inbound, p.name, req.Model, body)

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("openai: decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return errors.New("openai: chat response contained no choices")
	}

	choice := parsed.Choices[0]
	role := choice.Message.Role
	if role == "" {
		role = "assistant"
	}
	if callbacks.OnChunk != nil && choice.Message.Content != "" {
		if err := callbacks.OnChunk(providers.ChatMessage{Role: role, Content: choice.Message.Content}); err != nil {
			return err
		}
	}
	return complete(callbacks, parsed.Model, req.Model, choice.FinishReason)
}

func (p *Provider) handleStreaming(resp *http.Response, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	reader := bufio.NewReader(resp.Body)
	var finalModel, stopReason string
	sawDone := false
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				sawDone = true
				break
			}
			logging.LogRequest(logging.Inbound, p.name, req.Model, data)

			var chunk chatStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return fmt.Errorf("openai: decode stream chunk: %w", err)
			}
			if chunk.Error != nil {
				return fmt.Errorf("openai: stream error: %s", chunk.Error.Message)
			}
			if chunk.Model != "" {
				finalModel = chunk.Model
			}
			if len(chunk.Choices) > 0 {
				choice := chunk.Choices[0]
				if choice.FinishReason != "" {
					stopReason = choice.FinishReason
				}
				content := choice.Delta.Content
				role := choice.Delta.Role
				if content == "" && choice.Message.Content != "" {
					content = choice.Message.Content
					role = choice.Message.Role
				}
				if role == "" {
					role = "assistant"
				}
				// Whitespace-only deltas carry the newlines between words.
				if callbacks.OnChunk != nil && content != "" {
					if err := callbacks.OnChunk(providers.ChatMessage{Role: role, Content: content}); err != nil {
						return err
					}
				}
			}
		}
		if eof {
			break
		}
	}

	if !sawDone && stopReason == "" {
		return errors.New("openai: stream ended before completion")
	}
	return complete(callbacks, finalModel, req.Model, stopReason)
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
	p.client.CloseIdleConnections()
	return nil
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// applyParameters copies provider-specific keys into the payload. Keys that
// the request itself sets (model, messages, stream) are overwritten later.
func applyParameters(payload map[string]any, params map[string]any) {
	for k, v := range params {
		if strings.TrimSpace(k) == "" || v == nil {
			continue
		}
		payload[k] = v
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toOpenAIMessages(messages []providers.ChatMessage) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		role := strings.TrimSpace(msg.Role)
		if role == "" {
			role = "user"
		}
		out = append(out, openAIMessage{Role: role, Content: msg.Content})
	}
	return out
}
