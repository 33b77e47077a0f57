package llmeval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mwiater/llmeval/internal/runner"
	"github.com/mwiater/llmeval/internal/scoring"
	"github.com/mwiater/llmeval/internal/suite"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// chatServer is an OpenAI-compatible endpoint answering every request with
// reply, streamed as SSE when the request asks for it.
type chatServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []map[string]any
}

func newChatServer(t *testing.T, reply func(n int) string) *chatServer {
	t.Helper()
	cs := &chatServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cs.mu.Lock()
		cs.requests = append(cs.requests, body)
		n := len(cs.requests)
		cs.mu.Unlock()

		text := reply(n)
		if stream, _ := body["stream"].(bool); stream {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, part := range []string{text[:len(text)/2], text[len(text)/2:]} {
				chunk, _ := json.Marshal(map[string]any{
					"model":   body["model"],
					"choices": []map[string]any{{"delta": map[string]any{"content": part}}},
				})
				fmt.Fprintf(w, "data: %s\n\n", chunk)
			}
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": body["model"],
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *chatServer) requestCount() int {
	return len(cs.snapshot())
}

func (cs *chatServer) snapshot() []map[string]any {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]map[string]any(nil), cs.requests...)
}

func writeSuite(t *testing.T, suitesDir, name, baseURL string) {
	t.Helper()
	writeFile(t, filepath.Join(suitesDir, name, suite.ConfigFileName), fmt.Sprintf(`name: %s
description: Kubernetes basics
api:
  base_url: %s
models:
  - name: model-a
    temperature: 0.2
  - name: org/model-b
questions_file: questions.csv
prompt:
  system_message: Answer briefly.
output:
  filename_pattern: results_{model}.txt
`, name, baseURL))
	writeFile(t, filepath.Join(suitesDir, name, "questions.csv"),
		"ID,Section,Question,ExpectedAnswer\n1,Pods,What is a pod?,Smallest unit\n2,Services,What is a service?,Stable endpoint\n")
}

func TestRunSuiteWritesTranscriptsAndManifest(t *testing.T) {
	server := newChatServer(t, func(n int) string { return fmt.Sprintf("answer %d", n) })
	suitesDir := filepath.Join(t.TempDir(), "test_suites")
	outputDir := filepath.Join(t.TempDir(), "results")
	writeSuite(t, suitesDir, "k8s", server.URL)

	var out bytes.Buffer
	err := runSuite(context.Background(), &out, runOptions{suiteName: "k8s", suitesDir: suitesDir, outputDir: outputDir})
	if err != nil {
		t.Fatalf("runSuite error: %v\n%s", err, out.String())
	}
	if got := server.requestCount(); got != 4 {
		t.Fatalf("expected 4 model calls, got %d", got)
	}

	runDirs, err := filepath.Glob(filepath.Join(outputDir, "k8s_*"))
	if err != nil || len(runDirs) != 1 {
		t.Fatalf("expected one run dir, got %v (%v)", runDirs, err)
	}

	var manifest runner.Manifest
	if err := json.Unmarshal([]byte(readFile(t, filepath.Join(runDirs[0], runner.ManifestFileName))), &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(manifest.Models) != 2 {
		t.Fatalf("expected 2 models in manifest, got %d", len(manifest.Models))
	}
	if manifest.Models[1].ModelName != "org/model-b" {
		t.Fatalf("unexpected model order: %+v", manifest.Models)
	}
	if filepath.Base(manifest.Models[1].ResultsFile) != "results_org_model-b.txt" {
		t.Fatalf("unexpected sanitised file name %q", manifest.Models[1].ResultsFile)
	}

	transcript := readFile(t, manifest.Models[0].ResultsFile)
	want := "---\nNO. 1 - Pods\nQUESTION: What is a pod?\nEXPECTED ANSWER: Smallest unit\nACTUAL ANSWER: answer 1\n"
	if !strings.HasPrefix(transcript, want) {
		t.Fatalf("unexpected transcript:\n%s", transcript)
	}
	if !strings.Contains(out.String(), "Test suite completed") {
		t.Fatalf("expected summary output, got:\n%s", out.String())
	}
}

func TestRunSuiteModelOverride(t *testing.T) {
	server := newChatServer(t, func(int) string { return "ok" })
	suitesDir := filepath.Join(t.TempDir(), "test_suites")
	writeSuite(t, suitesDir, "k8s", "http://127.0.0.1:1")

	var out bytes.Buffer
	err := runSuite(context.Background(), &out, runOptions{
		suiteName:   "k8s",
		suitesDir:   suitesDir,
		outputDir:   t.TempDir(),
		model:       "override",
		temperature: 0.7,
		endpoint:    server.URL + "/",
	})
	if err != nil {
		t.Fatalf("runSuite error: %v", err)
	}
	if got := server.requestCount(); got != 2 {
		t.Fatalf("expected 2 calls for the single override model, got %d", got)
	}
	for _, req := range server.snapshot() {
		if req["model"] != "override" || req["temperature"] != 0.7 {
			t.Fatalf("unexpected request: %v", req)
		}
	}
}

func TestRunSuiteMissingArgumentListsSuites(t *testing.T) {
	suitesDir := t.TempDir()
	writeSuite(t, suitesDir, "alpha", "http://localhost")
	writeSuite(t, suitesDir, "beta", "http://localhost")

	var out bytes.Buffer
	err := runSuite(context.Background(), &out, runOptions{suitesDir: suitesDir, outputDir: t.TempDir()})
	if !errors.Is(err, errSuiteRequired) {
		t.Fatalf("expected errSuiteRequired, got %v", err)
	}
	if exitCode(err) != 1 {
		t.Fatalf("expected exit code 1")
	}
	for _, want := range []string{"Available test suites:", "  - alpha", "  - beta"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunSuiteUnknownSuite(t *testing.T) {
	err := runSuite(context.Background(), new(bytes.Buffer), runOptions{suiteName: "nope", suitesDir: t.TempDir(), outputDir: t.TempDir()})
	if !errors.Is(err, suite.ErrSuiteNotFound) {
		t.Fatalf("expected ErrSuiteNotFound, got %v", err)
	}
}

func TestRunSuiteModelFailureStopsRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	suitesDir := t.TempDir()
	outputDir := t.TempDir()
	writeSuite(t, suitesDir, "k8s", server.URL)

	err := runSuite(context.Background(), new(bytes.Buffer), runOptions{suiteName: "k8s", suitesDir: suitesDir, outputDir: outputDir})
	if err == nil {
		t.Fatal("expected error from failing model")
	}
	manifests, _ := filepath.Glob(filepath.Join(outputDir, "*", runner.ManifestFileName))
	if len(manifests) != 0 {
		t.Fatalf("no manifest expected after a failure, found %v", manifests)
	}
}

const sampleTranscript = "---\nNO. 1 - Pods\nQUESTION: q\nEXPECTED ANSWER: a\nACTUAL ANSWER: a\n" +
	"---\nNO. 2 - Pods\nQUESTION: q\nEXPECTED ANSWER: b\nACTUAL ANSWER: c\n"

func writeScoringConfig(t *testing.T, endpoint string, reps int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scoring_config.yaml")
	writeFile(t, path, fmt.Sprintf("api: local\nendpoint: %s\nmodel: judge\nrepetitions: %d\n", endpoint, reps))
	return path
}

func TestScoreResultsWritesScoreFile(t *testing.T) {
	verdicts := []string{"2 out of 2 answers are correct.", "1 out of 2 answers are correct.", "I cannot say."}
	server := newChatServer(t, func(n int) string { return verdicts[(n-1)%len(verdicts)] })
	resultsFile := filepath.Join(t.TempDir(), "results_model-a.txt")
	writeFile(t, resultsFile, sampleTranscript)

	var out bytes.Buffer
	err := scoreResults(context.Background(), &out, scoreOptions{
		resultsFile: resultsFile,
		configPath:  writeScoringConfig(t, server.URL, 3),
	})
	if err != nil {
		t.Fatalf("scoreResults error: %v\n%s", err, out.String())
	}

	for _, req := range server.snapshot() {
		if stream, _ := req["stream"].(bool); !stream {
			t.Fatalf("judge should stream first: %v", req)
		}
		msgs := req["messages"].([]any)
		if len(msgs) != 2 || msgs[1].(map[string]any)["content"] != sampleTranscript {
			t.Fatalf("judge should receive the transcript verbatim: %v", msgs)
		}
	}

	var scores scoring.ScoreOutput
	path := filepath.Join(filepath.Dir(resultsFile), "results_model-a_scores.json")
	if err := json.Unmarshal([]byte(readFile(t, path)), &scores); err != nil {
		t.Fatalf("decode scores: %v", err)
	}
	if len(scores.Runs) != 3 || scores.Metadata.Repetitions != 3 || scores.Metadata.ScoringAPI != "local" {
		t.Fatalf("unexpected scores: %+v", scores)
	}
	if scores.Summary.AllRunsParsed {
		t.Fatalf("third run should not parse")
	}
	if *scores.Summary.MeanCorrect != 1.5 || *scores.Summary.MinCorrect != 1 || *scores.Summary.MaxCorrect != 2 {
		t.Fatalf("unexpected summary: %+v", scores.Summary)
	}
	if !strings.Contains(out.String(), "Mean Score") {
		t.Fatalf("expected summary box, got:\n%s", out.String())
	}
}

func TestScoreResultsRepetitionsOverride(t *testing.T) {
	server := newChatServer(t, func(int) string { return "1 out of 2" })
	resultsFile := filepath.Join(t.TempDir(), "results_m.txt")
	writeFile(t, resultsFile, sampleTranscript)

	err := scoreResults(context.Background(), new(bytes.Buffer), scoreOptions{
		resultsFile:         resultsFile,
		configPath:          writeScoringConfig(t, server.URL, 3),
		repetitions:         1,
		overrideRepetitions: true,
		quiet:               true,
	})
	if err != nil {
		t.Fatalf("scoreResults error: %v", err)
	}
	if got := server.requestCount(); got != 1 {
		t.Fatalf("expected 1 judge call, got %d", got)
	}
}

func TestScoreResultsJudgeFailureWritesNothing(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)
	dir := t.TempDir()
	resultsFile := filepath.Join(dir, "results_m.txt")
	writeFile(t, resultsFile, sampleTranscript)

	err := scoreResults(context.Background(), new(bytes.Buffer), scoreOptions{
		resultsFile: resultsFile,
		configPath:  writeScoringConfig(t, server.URL, 3),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if exitCode(err) != 1 {
		t.Fatalf("expected generic failure, got exit code %d", exitCode(err))
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected stream attempt plus one fallback, got %d calls", got)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "results_m_scores.json")); !os.IsNotExist(statErr) {
		t.Fatalf("score file must not be written, stat err: %v", statErr)
	}
}

func TestScoreResultsCancelledReportsInterrupted(t *testing.T) {
	server := newChatServer(t, func(int) string { return "1 out of 2" })
	resultsFile := filepath.Join(t.TempDir(), "results_m.txt")
	writeFile(t, resultsFile, sampleTranscript)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := scoreResults(ctx, new(bytes.Buffer), scoreOptions{
		resultsFile: resultsFile,
		configPath:  writeScoringConfig(t, server.URL, 2),
	})
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if exitCode(err) != 130 {
		t.Fatalf("expected exit code 130, got %d", exitCode(err))
	}
}

func TestScoreResultsMissingConfig(t *testing.T) {
	resultsFile := filepath.Join(t.TempDir(), "results_m.txt")
	writeFile(t, resultsFile, sampleTranscript)

	err := scoreResults(context.Background(), new(bytes.Buffer), scoreOptions{
		resultsFile: resultsFile,
		configPath:  filepath.Join(t.TempDir(), "scoring_config.yaml"),
	})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected config not found error, got %v", err)
	}
}

func TestListSuites(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "k8s", "http://localhost")
	writeFile(t, filepath.Join(dir, "broken", suite.ConfigFileName), "models: []\n")

	var out bytes.Buffer
	if err := runListSuites(&out, dir); err != nil {
		t.Fatalf("runListSuites error: %v", err)
	}
	text := out.String()
	for _, want := range []string{"  - k8s", "Description: Kubernetes basics", "Models: 2", "Questions: 2", "  - broken (error loading:"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestListSuitesEmpty(t *testing.T) {
	var out bytes.Buffer
	if err := runListSuites(&out, filepath.Join(t.TempDir(), "none")); err != nil {
		t.Fatalf("runListSuites error: %v", err)
	}
	if !strings.Contains(out.String(), "No test suites found") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestShowConfig(t *testing.T) {
	path := writeScoringConfig(t, "http://localhost:1234/v1", 5)

	var out bytes.Buffer
	if err := runShowConfig(&out, path, true); err != nil {
		t.Fatalf("runShowConfig error: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Config file: " + path, "API:          local", "Repetitions:  5", "Model:        judge"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}
