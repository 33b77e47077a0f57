package llmeval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mwiater/llmeval/internal/appconfig"
	"github.com/mwiater/llmeval/internal/judge"
	"github.com/mwiater/llmeval/internal/logging"
	"github.com/mwiater/llmeval/internal/providerfactory"
	"github.com/mwiater/llmeval/internal/providers"
	"github.com/mwiater/llmeval/internal/report"
	"github.com/mwiater/llmeval/internal/scoring"
)

// scoreResults runs the scoring stage for one transcript. Nothing is written
// unless every repetition completes.
func scoreResults(ctx context.Context, out io.Writer, opts scoreOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := scoreResultsContext(ctx, out, opts)
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		logging.LogEvent("scoring interrupted: %v", err)
		return ErrInterrupted
	}
	return err
}

func scoreResultsContext(ctx context.Context, out io.Writer, opts scoreOptions) error {
	printer := report.New(out)
	result, path, err := scoreTranscript(ctx, printer, opts)
	if err != nil {
		return err
	}
	printer.ScoreSummary(result, path)
	return nil
}

// scoreTranscript runs every repetition for opts.resultsFile and writes the
// score artifact. It returns the artifact and the path it was written to.
func scoreTranscript(ctx context.Context, printer *report.Printer, opts scoreOptions) (*scoring.ScoreOutput, string, error) {
	if _, err := os.Stat(opts.resultsFile); err != nil {
		return nil, "", fmt.Errorf("%w: %s", scoring.ErrResultsNotFound, opts.resultsFile)
	}

	cfg, err := loadScoringConfig(opts)
	if err != nil {
		return nil, "", err
	}

	provider, err := providerfactory.NewJudgeProvider(&cfg)
	if err != nil {
		return nil, "", err
	}
	defer provider.Close()

	printer.Heading("Scoring %s", filepath.Base(opts.resultsFile))
	printer.Infof("Judge: %s (%s)", cfg.Model, cfg.API)
	printer.Infof("Repetitions: %d", cfg.Repetitions)

	jopts := judge.Options{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: providers.Float64Ptr(cfg.Temperature),
		Buffered:    opts.buffered,
	}
	if !opts.quiet {
		jopts.OnChunk = printer.Chunk
	}

	scorer := scoring.NewScorer(judge.New(provider, jopts), scoring.Config{
		API:         cfg.API,
		Model:       cfg.Model,
		Repetitions: cfg.Repetitions,
	})
	scorer.SetRunHooks(
		func(i, total int) { printer.Heading("Run %d/%d", i, total) },
		printer.ScoreRun,
	)

	result, err := scorer.ScoreFile(ctx, opts.resultsFile)
	if err != nil {
		return nil, "", err
	}

	path, err := scoring.WriteScoreFile(result, opts.resultsFile)
	if err != nil {
		return nil, "", err
	}
	logging.LogEvent("scores written to %s", path)
	return result, path, nil
}

// loadScoringConfig reads the scoring config and applies flag overrides.
func loadScoringConfig(opts scoreOptions) (appconfig.Config, error) {
	cfg, err := appconfig.Load(opts.configPath)
	if err != nil {
		return appconfig.Config{}, err
	}
	if opts.overrideRepetitions {
		cfg.Repetitions = opts.repetitions
	}
	if opts.model != "" {
		cfg.Model = opts.model
	}
	if opts.endpoint != "" {
		cfg.Endpoint = opts.endpoint
	}
	if err := cfg.Normalize(); err != nil {
		return appconfig.Config{}, err
	}
	return cfg, nil
}
