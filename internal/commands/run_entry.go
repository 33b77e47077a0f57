package llmeval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mwiater/llmeval/internal/logging"
	"github.com/mwiater/llmeval/internal/providerfactory"
	"github.com/mwiater/llmeval/internal/report"
	"github.com/mwiater/llmeval/internal/runner"
	"github.com/mwiater/llmeval/internal/suite"
)

const (
	defaultSuitesDir = "test_suites"
	defaultOutputDir = "results"
)

var errSuiteRequired = errors.New("test suite name required")

// runSuite loads a suite, applies flag overrides and runs generation.
// A failure part-way leaves the transcripts already written in place.
func runSuite(ctx context.Context, out io.Writer, opts runOptions) error {
	if opts.suiteName == "" {
		printAvailableSuites(out, opts.suitesDir)
		return errSuiteRequired
	}
	_, err := generate(ctx, report.New(out), opts)
	return err
}

// generate runs the generation stage for opts.suiteName and reports
// progress through printer. It returns the manifest written to disk.
func generate(ctx context.Context, printer *report.Printer, opts runOptions) (*runner.Manifest, error) {
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	s, err := suite.Load(opts.suitesDir, opts.suiteName)
	if err != nil {
		return nil, fmt.Errorf("failed to load test suite: %w", err)
	}
	applyRunOverrides(s, opts)
	logging.LogEvent("suite %s loaded from %s", s.Name, s.Dir)

	provider := providerfactory.NewModelProvider(s.API, opts.requestTimeout)
	defer provider.Close()

	r := runner.New(func(m suite.Model) (runner.ModelClient, error) {
		return runner.NewModelClient(provider, m.Params), nil
	}, opts.outputDir)
	r.SetProgressFunc(printer.Question)

	names := make([]string, 0, len(s.Models))
	for _, m := range s.Models {
		names = append(names, fmt.Sprintf("%s (temperature: %.1f)", m.Name, m.Temperature))
	}
	printer.RunStart(s.Name, s.Description, s.API.BaseURL, names, len(s.Questions))

	manifest, err := r.Run(ctx, s)
	if err != nil {
		printer.Errorf("run failed")
		return nil, err
	}
	printer.RunSummary(manifest)
	return manifest, nil
}

func applyRunOverrides(s *suite.Suite, opts runOptions) {
	if opts.endpoint != "" {
		s.API.BaseURL = strings.TrimRight(opts.endpoint, "/")
	}
	if opts.model != "" {
		s.Models = []suite.Model{{Name: opts.model, Temperature: opts.temperature}}
		return
	}
	if opts.overrideTemperature {
		for i := range s.Models {
			s.Models[i].Temperature = opts.temperature
		}
	}
}

// printAvailableSuites lists the suites a user could have meant.
func printAvailableSuites(out io.Writer, dir string) {
	names, err := suite.List(dir)
	if err != nil {
		fmt.Fprintf(out, "Could not list test suites: %v\n", err)
		return
	}
	fmt.Fprintln(out, "Usage: llmeval run <suite>")
	if len(names) == 0 {
		fmt.Fprintf(out, "No test suites found in %s.\n", dir)
		return
	}
	fmt.Fprintln(out, "\nAvailable test suites:")
	for _, name := range names {
		fmt.Fprintf(out, "  - %s\n", name)
	}
}
