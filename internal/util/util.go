// Package util holds small filesystem and string helpers shared by the
// generation and scoring stages.
package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxRunDirAttempts bounds the suffixes tried by CreateRunDir.
const maxRunDirAttempts = 100

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// WriteFile writes data to a file with 0o644 permissions.
func WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// SanitizeFilename replaces characters that are unsafe in file names with underscores.
func SanitizeFilename(name string) string {
	return filenameReplacer.Replace(strings.TrimSpace(name))
}

// CreateRunDir creates parent/name as a new directory owned by the caller.
// If that directory already exists (another invocation started in the same
// second), a numeric suffix is appended until an unused name is found.
func CreateRunDir(parent, name string) (string, error) {
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %s: %w", parent, err)
	}
	candidate := filepath.Join(parent, name)
	for attempt := 1; attempt <= maxRunDirAttempts; attempt++ {
		err := os.Mkdir(candidate, 0o755)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create run directory %s: %w", candidate, err)
		}
		candidate = filepath.Join(parent, fmt.Sprintf("%s-%d", name, attempt+1))
	}
	return "", fmt.Errorf("create run directory %s: too many existing runs with the same name", name)
}

// TruncateRunes truncates a string to a maximum number of runes,
// appending an ellipsis if truncated.
func TruncateRunes(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "…"
}
