// Package runner drives the generation stage: every configured model answers
// every question, one transcript file per model, then one run manifest.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mwiater/llmeval/internal/logging"
	"github.com/mwiater/llmeval/internal/schema"
	"github.com/mwiater/llmeval/internal/suite"
	"github.com/mwiater/llmeval/internal/util"
)

const (
	// ManifestFileName is written into the run directory once all models finish.
	ManifestFileName = "resultset.json"

	runDirTimeFormat = "20060102-150405"
)

// ClientFactory returns the client used for all of one model's questions.
type ClientFactory func(model suite.Model) (ModelClient, error)

// Manifest is the run summary persisted as resultset.json.
type Manifest struct {
	ID              string         `json:"id"`
	Suite           string         `json:"suite"`
	Timestamp       string         `json:"timestamp"`
	TestSuiteConfig map[string]any `json:"test_suite_config"`
	Models          []ModelRun     `json:"models"`
	FullDuration    float64        `json:"full_duration"`

	// Dir is the run directory holding the transcripts and the manifest.
	Dir string `json:"-"`
}

// ModelRun records one model's transcript. Duration is in seconds.
type ModelRun struct {
	ModelName   string  `json:"model_name"`
	Duration    float64 `json:"duration"`
	ResultsFile string  `json:"results_file"`
}

// Runner runs a suite against its models, sequentially.
type Runner struct {
	clientFor ClientFactory
	outputDir string
	progress  ProgressFunc
	now       func() time.Time
}

// New returns a Runner writing run directories under outputDir.
func New(clientFor ClientFactory, outputDir string) *Runner {
	return &Runner{
		clientFor: clientFor,
		outputDir: outputDir,
		now:       time.Now,
	}
}

// SetProgressFunc sets the per-question progress callback.
func (r *Runner) SetProgressFunc(fn ProgressFunc) {
	r.progress = fn
}

// Run generates one transcript per model and then the manifest. Each
// transcript is written as soon as it is complete. If any model fails the
// run stops and no manifest is written.
func (r *Runner) Run(ctx context.Context, s *suite.Suite) (*Manifest, error) {
	if s == nil {
		return nil, errors.New("nil suite")
	}
	if len(s.Models) == 0 {
		return nil, suite.ErrNoModels
	}
	if r.clientFor == nil {
		return nil, errors.New("runner has no client factory")
	}

	started := r.now()
	runName := fmt.Sprintf("%s_%s", runDirBase(s), started.Format(runDirTimeFormat))
	runDir, err := util.CreateRunDir(r.outputDir, runName)
	if err != nil {
		return nil, err
	}
	logging.LogEvent("run %s: %d model(s), %d question(s)", runDir, len(s.Models), len(s.Questions))

	manifest := &Manifest{
		ID:              uuid.NewString(),
		Suite:           s.Name,
		Timestamp:       started.Format(time.RFC3339),
		TestSuiteConfig: s.Raw,
		Models:          make([]ModelRun, 0, len(s.Models)),
		Dir:             runDir,
	}
	if manifest.TestSuiteConfig == nil {
		manifest.TestSuiteConfig = map[string]any{}
	}

	used := make(map[string]bool, len(s.Models))
	for _, model := range s.Models {
		modelStart := time.Now()

		client, err := r.clientFor(model)
		if err != nil {
			return nil, fmt.Errorf("prepare model %s: %w", model.Name, err)
		}

		logging.LogEvent("model %s: started (temperature=%g)", model.Name, model.Temperature)
		transcript, err := BuildTranscript(ctx, client, model, s.Questions, s.Prompt.SystemMessage, r.progress)
		if err != nil {
			return nil, err
		}

		fileName := uniqueFileName(ResultsFileName(s.Output.FilenamePattern, model.Name, started), used)
		resultsFile := filepath.Join(runDir, fileName)
		if err := util.WriteFile(resultsFile, []byte(transcript.Text)); err != nil {
			return nil, fmt.Errorf("write results for model %s: %w", model.Name, err)
		}

		run := ModelRun{
			ModelName:   model.Name,
			Duration:    time.Since(modelStart).Seconds(),
			ResultsFile: resultsFile,
		}
		manifest.Models = append(manifest.Models, run)
		logging.LogEvent("model %s: %d answers written to %s in %.2fs", model.Name, transcript.Answers, resultsFile, run.Duration)
	}

	manifest.FullDuration = r.now().Sub(started).Seconds()
	if manifest.FullDuration < 0 {
		manifest.FullDuration = 0
	}
	if err := writeManifest(runDir, manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// ResultsFileName expands the {model} and {timestamp} placeholders of pattern.
// The model name is sanitised so it cannot escape the run directory.
func ResultsFileName(pattern, modelName string, ts time.Time) string {
	replacer := strings.NewReplacer(
		"{model}", util.SanitizeFilename(modelName),
		"{timestamp}", ts.Format(runDirTimeFormat),
	)
	name := filepath.Base(replacer.Replace(pattern))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = util.SanitizeFilename(modelName) + ".txt"
	}
	return name
}

// uniqueFileName keeps two models from sharing one transcript file. Every
// name it returns is recorded in used, suffixed ones included.
func uniqueFileName(name string, used map[string]bool) string {
	candidate := name
	ext := filepath.Ext(name)
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext)
	}
	used[candidate] = true
	return candidate
}

func runDirBase(s *suite.Suite) string {
	base := s.Name
	if s.Dir != "" {
		base = filepath.Base(s.Dir)
	}
	return util.SanitizeFilename(strings.ReplaceAll(base, " ", "_"))
}

func writeManifest(runDir string, m *Manifest) error {
	if err := schema.Validate(schema.Manifest, m); err != nil {
		return fmt.Errorf("run manifest: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal run manifest: %w", err)
	}
	path := filepath.Join(runDir, ManifestFileName)
	if err := util.WriteFile(path, data); err != nil {
		return fmt.Errorf("write run manifest: %w", err)
	}
	logging.LogEvent("manifest written to %s", path)
	return nil
}

// ReadManifest loads the manifest stored in the run directory dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ManifestFileName, err)
	}
	m.Dir = dir
	return &m, nil
}
