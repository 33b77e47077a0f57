package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mwiater/llmeval/internal/logging"
	"github.com/mwiater/llmeval/internal/runner"
	"github.com/mwiater/llmeval/internal/schema"
	"github.com/mwiater/llmeval/internal/scoring"
	"github.com/mwiater/llmeval/internal/suite"
)

const (
	listSuitesTool = "list_test_suites"
	runSuiteTool   = "run_test_suite"
	scoreTool      = "score_results"
	resultsTool    = "get_results"
)

type toolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// toolHandler receives arguments that already satisfy the tool's
// InputSchema. Its return value is sent to the client as indented JSON.
type toolHandler func(ctx context.Context, args json.RawMessage) (any, error)

type tool struct {
	toolDefinition
	handler toolHandler
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolResult struct {
	Content []contentPart `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

func errorResult(err error) toolResult {
	return toolResult{Content: []contentPart{{Type: "text", Text: err.Error()}}, IsError: true}
}

func (s *Server) toolset() []tool {
	return []tool{
		{
			toolDefinition: toolDefinition{
				Name:        listSuitesTool,
				Description: "List the test suites available to run_test_suite with their models and question counts.",
				InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
			},
			handler: s.listSuites,
		},
		{
			toolDefinition: toolDefinition{
				Name:        runSuiteTool,
				Description: "Ask every configured model every question of a test suite and write one transcript per model plus resultset.json. Returns the run_id used by score_results and get_results.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"test_suite":  {"type": "string", "minLength": 1, "description": "Suite directory name as listed by list_test_suites"},
						"model":       {"type": "string", "description": "Run this single model instead of the configured list"},
						"temperature": {"type": "number", "minimum": 0, "description": "Temperature for 'model', or for every configured model"},
						"endpoint":    {"type": "string", "description": "Override the suite's OpenAI-compatible base URL"}
					},
					"required": ["test_suite"]
				}`),
			},
			handler: s.runSuite,
		},
		{
			toolDefinition: toolDefinition{
				Name:        scoreTool,
				Description: "Have the judge model grade a transcript several times and write <transcript>_scores.json. Give run_id to score every transcript of a run, or results_file for one transcript.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"run_id":        {"type": "string", "description": "Run directory name returned by run_test_suite"},
						"results_file":  {"type": "string", "description": "Transcript path inside the output directory"},
						"scoring_model": {"type": "string", "description": "Judge model (default: scoring config)"},
						"repetitions":   {"type": "integer", "minimum": 1, "description": "Judge runs per transcript (default: scoring config)"}
					}
				}`),
			},
			handler: s.scoreResults,
		},
		{
			toolDefinition: toolDefinition{
				Name:        resultsTool,
				Description: "List stored runs, or return one run's manifest together with its score files.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"run_id": {"type": "string", "description": "Run to return in full; omit to list every run"}
					}
				}`),
			},
			handler: s.getResults,
		},
	}
}

func (s *Server) callTool(ctx context.Context, req *request) *response {
	var p struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return makeError(req.ID, codeInvalidParams, "invalid params: %v", err)
	}
	t, ok := s.tools[p.Name]
	if !ok {
		return makeError(req.ID, codeInvalidParams, "unknown tool: %s", p.Name)
	}

	args := p.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	if err := schema.ValidateDocument(p.Name+" arguments", t.InputSchema, args); err != nil {
		return makeResult(req.ID, errorResult(err))
	}

	value, err := t.handler(ctx, args)
	if err != nil {
		logging.LogEvent("mcp: %s failed: %v", p.Name, err)
		return makeResult(req.ID, errorResult(err))
	}
	text, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return makeResult(req.ID, errorResult(fmt.Errorf("encode %s result: %w", p.Name, err)))
	}
	return makeResult(req.ID, toolResult{Content: []contentPart{{Type: "text", Text: string(text)}}})
}

type suiteInfo struct {
	Name          string   `json:"name"`
	Title         string   `json:"title,omitempty"`
	Description   string   `json:"description,omitempty"`
	Models        []string `json:"models,omitempty"`
	QuestionCount int      `json:"question_count"`
	Error         string   `json:"error,omitempty"`
}

func (s *Server) listSuites(_ context.Context, _ json.RawMessage) (any, error) {
	names, err := suite.List(s.cfg.SuitesDir)
	if err != nil {
		return nil, err
	}
	suites := make([]suiteInfo, 0, len(names))
	for _, name := range names {
		info := suiteInfo{Name: name}
		loaded, err := suite.Load(s.cfg.SuitesDir, name)
		if err != nil {
			info.Error = err.Error()
			suites = append(suites, info)
			continue
		}
		info.Title = loaded.Name
		info.Description = loaded.Description
		info.QuestionCount = len(loaded.Questions)
		for _, m := range loaded.Models {
			info.Models = append(info.Models, m.Name)
		}
		suites = append(suites, info)
	}
	return suites, nil
}

type runArgs struct {
	TestSuite   string   `json:"test_suite"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	Endpoint    string   `json:"endpoint"`
}

type runResult struct {
	RunID string `json:"run_id"`
	*runner.Manifest
}

func (s *Server) runSuite(ctx context.Context, raw json.RawMessage) (any, error) {
	var args runArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if err := checkPlainName("test_suite", args.TestSuite); err != nil {
		return nil, err
	}
	if s.pipeline == nil {
		return nil, errNoPipeline
	}

	manifest, err := s.pipeline.Generate(ctx, RunRequest{
		Suite:       args.TestSuite,
		Model:       strings.TrimSpace(args.Model),
		Temperature: args.Temperature,
		Endpoint:    args.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("test run failed: %w", err)
	}
	return runResult{RunID: filepath.Base(manifest.Dir), Manifest: manifest}, nil
}

type scoreArgs struct {
	RunID        string `json:"run_id"`
	ResultsFile  string `json:"results_file"`
	ScoringModel string `json:"scoring_model"`
	Repetitions  int    `json:"repetitions"`
}

type scoredFile struct {
	ResultsFile string          `json:"results_file"`
	ScoresFile  string          `json:"scores_file"`
	Runs        int             `json:"runs"`
	Summary     scoring.Summary `json:"summary"`
}

var errNoPipeline = errors.New("no evaluation pipeline is configured")

func (s *Server) scoreResults(ctx context.Context, raw json.RawMessage) (any, error) {
	var args scoreArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	switch {
	case args.RunID == "" && args.ResultsFile == "":
		return nil, errors.New("either run_id or results_file is required")
	case args.RunID != "" && args.ResultsFile != "":
		return nil, errors.New("give either run_id or results_file, not both")
	case s.pipeline == nil:
		return nil, errNoPipeline
	}

	if args.ResultsFile != "" {
		path, err := resolveResultsFile(s.cfg.OutputDir, args.ResultsFile)
		if err != nil {
			return nil, err
		}
		return s.scoreFile(ctx, path, args)
	}

	runDir, err := resolveRunPath(s.cfg.OutputDir, args.RunID)
	if err != nil {
		return nil, err
	}
	transcripts, err := transcriptsIn(runDir)
	if err != nil {
		return nil, fmt.Errorf("run %q not found: %w", args.RunID, err)
	}
	if len(transcripts) == 0 {
		return nil, fmt.Errorf("no transcripts found in run %q", args.RunID)
	}

	scored := make([]scoredFile, 0, len(transcripts))
	for _, path := range transcripts {
		sf, err := s.scoreFile(ctx, path, args)
		if err != nil {
			return nil, err
		}
		scored = append(scored, sf)
	}
	return map[string]any{"run_id": args.RunID, "scored": scored}, nil
}

func (s *Server) scoreFile(ctx context.Context, path string, args scoreArgs) (scoredFile, error) {
	out, scoresFile, err := s.pipeline.Score(ctx, ScoreRequest{
		ResultsFile: path,
		Model:       args.ScoringModel,
		Repetitions: args.Repetitions,
	})
	if err != nil {
		return scoredFile{}, fmt.Errorf("scoring %s failed: %w", filepath.Base(path), err)
	}
	return scoredFile{ResultsFile: path, ScoresFile: scoresFile, Runs: len(out.Runs), Summary: out.Summary}, nil
}

// transcriptsIn returns the transcript files of a run directory in name order.
func transcriptsIn(runDir string) ([]string, error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			files = append(files, filepath.Join(runDir, e.Name()))
		}
	}
	return files, nil
}

type runEntry struct {
	RunID string `json:"run_id"`
	*runner.Manifest
	ScoreFiles []string                        `json:"score_files"`
	Scores     map[string]*scoring.ScoreOutput `json:"scores,omitempty"`
}

func (s *Server) getResults(_ context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}

	if args.RunID != "" {
		runDir, err := resolveRunPath(s.cfg.OutputDir, args.RunID)
		if err != nil {
			return nil, err
		}
		entry, err := readRun(runDir, true)
		if err != nil {
			return nil, fmt.Errorf("run %q not found: %w", args.RunID, err)
		}
		return entry, nil
	}

	entries, err := os.ReadDir(s.cfg.OutputDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read results directory: %w", err)
	}
	runs := make([]*runEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		entry, err := readRun(filepath.Join(s.cfg.OutputDir, e.Name()), false)
		if err != nil {
			// Runs that failed part-way have no manifest.
			continue
		}
		runs = append(runs, entry)
	}
	return runs, nil
}

// readRun loads a run's manifest and lists its score files. withScores
// also decodes every score file.
func readRun(runDir string, withScores bool) (*runEntry, error) {
	manifest, err := runner.ReadManifest(runDir)
	if err != nil {
		return nil, err
	}
	entry := &runEntry{RunID: filepath.Base(runDir), Manifest: manifest, ScoreFiles: []string{}}

	files, err := os.ReadDir(runDir)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), scoring.ScoresSuffix) {
			continue
		}
		entry.ScoreFiles = append(entry.ScoreFiles, f.Name())
		if !withScores {
			continue
		}
		out, err := scoring.ReadScoreFile(filepath.Join(runDir, f.Name()))
		if err != nil {
			logging.LogEvent("mcp: skipping %s: %v", f.Name(), err)
			continue
		}
		if entry.Scores == nil {
			entry.Scores = map[string]*scoring.ScoreOutput{}
		}
		entry.Scores[f.Name()] = out
	}
	return entry, nil
}
