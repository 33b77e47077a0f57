// internal/commands/root_test.go
package llmeval

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwiater/llmeval/internal/logging"
	"github.com/spf13/viper"
)

// TestRootCmd verifies running the root command with an invalid subcommand reports an error.
func TestRootCmd(t *testing.T) {
	b := new(bytes.Buffer)
	rootCmd.SetOut(b)
	rootCmd.SetErr(b)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"nonexistent"})
	_, err := rootCmd.ExecuteC()
	if err == nil {
		t.Fatal("Expected an error for a nonexistent command, but got none")
	}

	expected := "unknown command \"nonexistent\" for \"llmeval\""
	if !strings.Contains(err.Error(), expected) {
		t.Errorf("Expected error to contain '%s', but got '%s'", expected, err.Error())
	}
	if strings.Contains(b.String(), "Usage:") {
		t.Errorf("usage should be silenced, got %q", b.String())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("boom"), 1},
		{ErrInterrupted, 130},
		{fmt.Errorf("scoring: %w", ErrInterrupted), 130},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestExecutePrintsSingleErrorLine(t *testing.T) {
	b := new(bytes.Buffer)
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(b)
	rootCmd.SetArgs([]string{"score", filepath.Join(t.TempDir(), "missing.txt")})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	if code := Execute(); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	out := b.String()
	if !strings.HasPrefix(out, "Error: results file not found") {
		t.Fatalf("unexpected stderr: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected one line on stderr, got %q", out)
	}
}

func TestPersistentPreRunEInitialisesLogging(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "llmeval.log")
	viper.Set("logFile", logPath)
	t.Cleanup(func() {
		viper.Set("logFile", "")
		_ = logging.Close()
	})

	if err := rootCmd.PersistentPreRunE(rootCmd, nil); err != nil {
		t.Fatalf("PersistentPreRunE error: %v", err)
	}
	logging.LogEvent("hello")
	_ = logging.Close()

	data := readFile(t, logPath)
	if !strings.Contains(data, "hello") {
		t.Fatalf("expected log line in %s, got %q", logPath, data)
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	b := new(bytes.Buffer)
	versionCmd.SetOut(b)
	t.Cleanup(func() { versionCmd.SetOut(nil) })
	versionCmd.Run(versionCmd, nil)

	for _, want := range []string{"llmeval 1.2.3", "commit: abc123", "built:  2026-01-01"} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("version output missing %q: %q", want, b.String())
		}
	}
}

func TestListCommands(t *testing.T) {
	b := new(bytes.Buffer)
	runListCommands(b, rootCmd)

	out := b.String()
	for _, want := range []string{"Commands and Subcommands:", "  llmeval run", "  llmeval score", "  llmeval serve", "    llmeval list suites", "    llmeval show config", "  llmeval version"} {
		if !strings.Contains(out, want) {
			t.Errorf("command list missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "completion") {
		t.Errorf("completion command should be hidden:\n%s", out)
	}
}
