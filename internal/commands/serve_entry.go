package llmeval

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mwiater/llmeval/internal/logging"
	"github.com/mwiater/llmeval/internal/mcp"
	"github.com/mwiater/llmeval/internal/report"
	"github.com/mwiater/llmeval/internal/runner"
	"github.com/mwiater/llmeval/internal/scoring"
)

// serve runs the MCP server until the client closes its end or a signal
// arrives. A signal also cancels the tool call in progress.
func serve(ctx context.Context, in io.Reader, out io.Writer, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcp.NewServer(mcp.Config{
		Name:      "llmeval",
		Version:   appVersion,
		SuitesDir: opts.suitesDir,
		OutputDir: opts.outputDir,
	}, toolPipeline{opts: opts})

	logging.LogEvent("mcp server on stdio: suites=%s output=%s", opts.suitesDir, opts.outputDir)
	return srv.Serve(ctx, in, out)
}

// toolPipeline runs the same generation and scoring code as the run and
// score commands. Console output is discarded because stdout carries the
// protocol.
type toolPipeline struct {
	opts serveOptions
}

func (p toolPipeline) Generate(ctx context.Context, req mcp.RunRequest) (*runner.Manifest, error) {
	opts := runOptions{
		suiteName:      req.Suite,
		suitesDir:      p.opts.suitesDir,
		outputDir:      p.opts.outputDir,
		model:          req.Model,
		endpoint:       req.Endpoint,
		requestTimeout: p.opts.requestTimeout,
	}
	if req.Temperature != nil {
		opts.temperature = *req.Temperature
		opts.overrideTemperature = true
	}
	return generate(ctx, report.New(io.Discard), opts)
}

func (p toolPipeline) Score(ctx context.Context, req mcp.ScoreRequest) (*scoring.ScoreOutput, string, error) {
	opts := scoreOptions{
		resultsFile: req.ResultsFile,
		configPath:  p.opts.scoringConfig,
		model:       req.Model,
		quiet:       true,
	}
	if req.Repetitions > 0 {
		opts.repetitions = req.Repetitions
		opts.overrideRepetitions = true
	}
	return scoreTranscript(ctx, report.New(io.Discard), opts)
}
