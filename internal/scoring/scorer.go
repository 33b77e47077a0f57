// Package scoring runs the judge repeatedly over one transcript, parses a
// score from each verdict and aggregates the results.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwiater/llmeval/internal/judge"
	"github.com/mwiater/llmeval/internal/logging"
	"github.com/mwiater/llmeval/internal/runner"
	"github.com/mwiater/llmeval/internal/schema"
	"github.com/mwiater/llmeval/internal/util"
)

// ScoresSuffix replaces the transcript's extension in the score file name.
const ScoresSuffix = "_scores.json"

// ErrResultsNotFound is returned when the transcript to score does not exist.
var ErrResultsNotFound = errors.New("results file not found")

// Config describes one scoring invocation.
type Config struct {
	API         string
	Model       string
	Repetitions int
	// Instructions defaults to judge.EvaluationPrompt.
	Instructions string
}

// ScoreOutput is the persisted score artifact.
type ScoreOutput struct {
	Metadata Metadata      `json:"metadata"`
	Runs     []JudgmentRun `json:"runs"`
	Summary  Summary       `json:"summary"`
}

type Metadata struct {
	Timestamp     string `json:"timestamp"`
	ResultsFile   string `json:"results_file"`
	ScoringAPI    string `json:"scoring_api"`
	ScoringModel  string `json:"scoring_model"`
	Repetitions   int    `json:"repetitions"`
	QuestionCount int    `json:"question_count"`
}

// RunStartFunc is called before repetition index (1-based) of total.
type RunStartFunc func(index, total int)

// RunDoneFunc is called with each repetition's parsed outcome.
type RunDoneFunc func(index, total int, run JudgmentRun)

// Scorer runs repetitions sequentially against a judge.
type Scorer struct {
	judge   judge.Client
	config  Config
	onStart RunStartFunc
	onDone  RunDoneFunc
}

// NewScorer returns a Scorer. Negative repetition counts are treated as zero.
func NewScorer(j judge.Client, cfg Config) *Scorer {
	if cfg.Repetitions < 0 {
		cfg.Repetitions = 0
	}
	if cfg.Instructions == "" {
		cfg.Instructions = judge.EvaluationPrompt
	}
	return &Scorer{judge: j, config: cfg}
}

// SetRunHooks installs optional per-repetition callbacks.
func (s *Scorer) SetRunHooks(onStart RunStartFunc, onDone RunDoneFunc) {
	s.onStart = onStart
	s.onDone = onDone
}

// ScoreFile reads resultsFile and scores its contents.
func (s *Scorer) ScoreFile(ctx context.Context, resultsFile string) (*ScoreOutput, error) {
	content, err := os.ReadFile(resultsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResultsNotFound, resultsFile)
		}
		return nil, fmt.Errorf("read results file: %w", err)
	}
	return s.Score(ctx, string(content), resultsFile)
}

// Score judges transcript the configured number of times. Each repetition
// sends the identical transcript and instructions. A judge failure aborts
// scoring and nothing is returned; an unparseable verdict does not.
func (s *Scorer) Score(ctx context.Context, transcript, resultsFile string) (*ScoreOutput, error) {
	total := s.config.Repetitions
	out := &ScoreOutput{
		Metadata: Metadata{
			Timestamp:     time.Now().Format(time.RFC3339),
			ResultsFile:   resultsFile,
			ScoringAPI:    s.config.API,
			ScoringModel:  s.config.Model,
			Repetitions:   total,
			QuestionCount: CountQuestions(transcript),
		},
		Runs: make([]JudgmentRun, 0, total),
	}

	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.onStart != nil {
			s.onStart(i, total)
		}
		logging.LogEvent("scoring run %d/%d with %s", i, total, s.config.Model)

		raw, err := s.judge.Judge(ctx, transcript, s.config.Instructions)
		if err != nil {
			return nil, fmt.Errorf("scoring run %d/%d: %w", i, total, err)
		}

		run := ParseScore(raw)
		if run.Parsed() {
			logging.LogEvent("scoring run %d/%d: %d/%d (%.2f%%)", i, total, *run.Correct, *run.Total, *run.Percentage)
		} else {
			logging.LogEvent("scoring run %d/%d: %s", i, total, run.ParseError)
		}
		out.Runs = append(out.Runs, run)
		if s.onDone != nil {
			s.onDone(i, total, run)
		}
	}

	out.Summary = Summarize(out.Runs)
	return out, nil
}

// CountQuestions counts the question blocks in a transcript. A separator
// line only counts when the next line is a block header, so a "---" inside
// an answer is not mistaken for a new block.
func CountQuestions(transcript string) int {
	lines := strings.Split(transcript, "\n")
	n := 0
	for i := 0; i+1 < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == runner.BlockSeparator &&
			strings.HasPrefix(lines[i+1], runner.BlockHeaderPrefix) {
			n++
		}
	}
	return n
}

// ScoreFilePath returns the score artifact path for resultsFile: the same
// directory, the extension replaced by ScoresSuffix.
func ScoreFilePath(resultsFile string) string {
	dir := filepath.Dir(resultsFile)
	base := filepath.Base(resultsFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+ScoresSuffix)
}

// WriteScoreFile validates out and writes it next to resultsFile.
func WriteScoreFile(out *ScoreOutput, resultsFile string) (string, error) {
	if out == nil {
		return "", errors.New("nil score output")
	}
	if err := schema.Validate(schema.Scores, out); err != nil {
		return "", fmt.Errorf("score artifact: %w", err)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal scores: %w", err)
	}
	path := ScoreFilePath(resultsFile)
	if err := util.WriteFile(path, data); err != nil {
		return "", fmt.Errorf("write scores file: %w", err)
	}
	return path, nil
}

// ReadScoreFile loads a score artifact written by WriteScoreFile.
func ReadScoreFile(path string) (*ScoreOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out ScoreOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &out, nil
}
