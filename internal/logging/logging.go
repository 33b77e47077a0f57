// Package logging routes llmeval's diagnostic log lines to a log file and,
// in debug mode, to stderr. User-facing progress output never goes through here.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Direction labels one side of a provider exchange.
type Direction string

const (
	// Outbound marks a request body sent to a model.
	Outbound Direction = "LLMEVAL->LLM"
	// Inbound marks a response body or stream chunk received from a model.
	Inbound Direction = "LLM->LLMEVAL"
)

var (
	mu     sync.Mutex
	sink   *os.File
	logger = log.New(os.Stderr, "", log.LstdFlags)
)

// Init sends log output to logPath, appending and creating parent
// directories as needed, and additionally to stderr when debug is set.
// With neither, log output is discarded. Calling Init again replaces the
// previous destination.
func Init(logPath string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()
	closeSink()
	logger.SetOutput(os.Stderr)

	var file *os.File
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		file = f
	}

	var out io.Writer = io.Discard
	switch {
	case file != nil && debug:
		out = io.MultiWriter(os.Stderr, file)
	case file != nil:
		out = file
	case debug:
		out = os.Stderr
	}
	sink = file
	logger.SetOutput(out)
	return nil
}

// Close closes the log file, if any, and points log output back at stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(os.Stderr)
	return closeSink()
}

func closeSink() error {
	if sink == nil {
		return nil
	}
	err := sink.Close()
	sink = nil
	return err
}

// LogEvent writes one formatted line describing a pipeline step.
func LogEvent(format string, args ...any) {
	logger.Printf(format, args...)
}

// LogRequest records a body exchanged with the provider named provider.
// The payload is flattened onto a single line so each exchange stays one
// log record even when a transcript or answer spans many lines.
func LogRequest(dir Direction, provider, model string, payload any) {
	logger.Print(requestLine(dir, provider, model, payload))
}

func requestLine(dir Direction, provider, model string, payload any) string {
	return fmt.Sprintf("[%s] provider=%s model=%s payload=%s",
		dir, orUnknown(provider), orUnknown(model), renderPayload(payload))
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}

// renderPayload prints strings and byte slices as they are and everything
// else as compact JSON.
func renderPayload(payload any) string {
	var s string
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		s = string(data)
	}
	if strings.TrimSpace(s) == "" {
		return `""`
	}
	return strings.NewReplacer("\r\n", `\n`, "\n", `\n`).Replace(s)
}
