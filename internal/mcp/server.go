// Package mcp exposes llmeval's suites, generation runs, scoring and stored
// results as Model Context Protocol tools over a stdio JSON-RPC 2.0 stream.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/mwiater/llmeval/internal/logging"
	"github.com/mwiater/llmeval/internal/runner"
	"github.com/mwiater/llmeval/internal/scoring"
)

const protocolVersion = "2024-11-05"

// RunRequest is a generation request made through the run_test_suite tool.
// Zero values leave the suite configuration untouched.
type RunRequest struct {
	Suite       string
	Model       string
	Temperature *float64
	Endpoint    string
}

// ScoreRequest is a scoring request for one transcript. Zero values fall
// back to the scoring configuration file.
type ScoreRequest struct {
	ResultsFile string
	Model       string
	Repetitions int
}

// Pipeline runs the two evaluation stages on behalf of tool calls.
type Pipeline interface {
	Generate(ctx context.Context, req RunRequest) (*runner.Manifest, error)
	Score(ctx context.Context, req ScoreRequest) (*scoring.ScoreOutput, string, error)
}

// Config locates the suites and results the tools operate on.
type Config struct {
	Name      string
	Version   string
	SuitesDir string
	OutputDir string
}

// Server answers MCP requests. Requests are handled one at a time in the
// order they arrive.
type Server struct {
	cfg      Config
	pipeline Pipeline
	tools    map[string]tool
}

// NewServer returns a Server whose run and score tools call pipeline.
func NewServer(cfg Config, pipeline Pipeline) *Server {
	if cfg.Name == "" {
		cfg.Name = "llmeval"
	}
	s := &Server{cfg: cfg, pipeline: pipeline, tools: map[string]tool{}}
	for _, t := range s.toolset() {
		s.tools[t.Name] = t
	}
	return s
}

// Serve reads requests from r and writes responses to w until r is
// exhausted or ctx is cancelled. Cancelling ctx also cancels the tool call
// in progress.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	t := newTransport(r, w)

	type message struct {
		data []byte
		err  error
	}
	messages := make(chan message)
	go func() {
		for {
			data, err := t.read()
			select {
			case messages <- message{data: data, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logging.LogEvent("mcp: stopping: %v", ctx.Err())
			return nil
		case m := <-messages:
			if m.err != nil {
				if errors.Is(m.err, io.EOF) {
					logging.LogEvent("mcp: client closed the stream")
					return nil
				}
				return m.err
			}
			resp := s.handleMessage(ctx, m.data)
			if resp == nil {
				continue
			}
			if err := t.write(resp); err != nil {
				return err
			}
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, data []byte) *response {
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		return makeError(nullID, codeParseError, "parse error: %v", err)
	}
	resp := s.handle(ctx, &req)
	if req.notification() {
		return nil
	}
	return resp
}

func (s *Server) handle(ctx context.Context, req *request) *response {
	if req.JSONRPC != "2.0" || req.Method == "" {
		return makeError(req.ID, codeInvalidRequest, "invalid request")
	}
	logging.LogEvent("mcp: %s", req.Method)

	switch req.Method {
	case "initialize":
		return makeResult(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": s.cfg.Name, "version": s.cfg.Version},
		})
	case "notifications/initialized", "notifications/cancelled":
		return nil
	case "ping":
		return makeResult(req.ID, map[string]any{})
	case "tools/list":
		defs := make([]toolDefinition, 0, len(s.tools))
		for _, t := range s.toolset() {
			defs = append(defs, t.toolDefinition)
		}
		return makeResult(req.ID, map[string]any{"tools": defs})
	case "tools/call":
		return s.callTool(ctx, req)
	}
	return makeError(req.ID, codeMethodNotFound, "method not found: %s", req.Method)
}
