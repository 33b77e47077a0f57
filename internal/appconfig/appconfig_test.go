package appconfig

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scoring_config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoad checks that a valid local configuration is loaded with defaults
// applied and that unknown keys are ignored.
func TestLoad(t *testing.T) {
	path := writeConfig(t, `api: local
endpoint: http://localhost:1234/v1/
model: qwen2.5-32b-instruct
unknown: ignored
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() with valid config failed: %v", err)
	}
	if cfg.API != APILocal {
		t.Fatalf("expected api local, got %q", cfg.API)
	}
	if cfg.Endpoint != "http://localhost:1234/v1" {
		t.Fatalf("expected trimmed endpoint, got %q", cfg.Endpoint)
	}
	if cfg.Repetitions != 3 {
		t.Fatalf("expected default repetitions of 3, got %d", cfg.Repetitions)
	}
	if cfg.MaxTokens != 4096 {
		t.Fatalf("expected default max tokens of 4096, got %d", cfg.MaxTokens)
	}
	if cfg.RequestTimeout() != 600*time.Second {
		t.Fatalf("expected default request timeout of 600s, got %v", cfg.RequestTimeout())
	}
	if cfg.APIKey != localAPIKey {
		t.Fatalf("expected local placeholder key, got %q", cfg.APIKey)
	}
	if cfg.ConfigPath != path {
		t.Fatalf("expected config path %q, got %q", path, cfg.ConfigPath)
	}
}

func TestLoadAnthropicResolvesKey(t *testing.T) {
	t.Setenv("LLMEVAL_JUDGE_KEY", "sk-test")
	path := writeConfig(t, `api: Anthropic
model: claude-sonnet-4-5
repetitions: 0
api_key_env: LLMEVAL_JUDGE_KEY
timeout: 30
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.API != APIAnthropic {
		t.Fatalf("expected api anthropic, got %q", cfg.API)
	}
	if cfg.Repetitions != 0 {
		t.Fatalf("expected repetitions 0 to be kept, got %d", cfg.Repetitions)
	}
	if cfg.APIKey != "sk-test" {
		t.Fatalf("expected key from environment, got %q", cfg.APIKey)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %v", cfg.RequestTimeout())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "missing api", body: "model: m\n", wantMsg: "missing required key 'api'"},
		{name: "unsupported api", body: "api: openrouter\nmodel: m\n", wantMsg: "unsupported scoring api"},
		{name: "local without endpoint", body: "api: local\nmodel: m\n", wantMsg: "'endpoint' is required"},
		{name: "missing model", body: "api: anthropic\n", wantMsg: "missing required key 'model'"},
		{name: "negative repetitions", body: "api: anthropic\nmodel: m\nrepetitions: -1\n", wantMsg: "must not be negative"},
		{name: "invalid yaml", body: "api: [local\n", wantMsg: "could not read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml")); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestShowConfigHidesKey(t *testing.T) {
	cfg := Config{
		API:         APIAnthropic,
		Model:       "claude",
		Repetitions: 3,
		MaxTokens:   4096,
		APIKeyEnv:   "ANTHROPIC_API_KEY",
		APIKey:      "sk-secret",
		ConfigPath:  "scoring_config.yaml",
	}

	var buf bytes.Buffer
	ShowConfig(&buf, cfg)
	out := buf.String()
	if strings.Contains(out, "sk-secret") {
		t.Fatalf("ShowConfig leaked the API key:\n%s", out)
	}
	for _, want := range []string{"Config file: scoring_config.yaml", "API:          anthropic", "(set: true)", "Repetitions:  3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	DumpConfig(&buf, cfg)
	if strings.Contains(buf.String(), "sk-secret") {
		t.Fatalf("DumpConfig leaked the API key:\n%s", buf.String())
	}
}
