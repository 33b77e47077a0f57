package mcp

import (
	"fmt"
	"path/filepath"
	"strings"
)

// checkPlainName rejects values that are not a single path element.
func checkPlainName(field, value string) error {
	switch {
	case strings.TrimSpace(value) == "":
		return fmt.Errorf("%s is required", field)
	case strings.ContainsAny(value, `/\`):
		return fmt.Errorf("%s must not contain path separators", field)
	case value == "." || value == "..":
		return fmt.Errorf("%s must name a directory", field)
	}
	return nil
}

// resolveRunPath returns the directory of run runID inside outputDir.
func resolveRunPath(outputDir, runID string) (string, error) {
	if err := checkPlainName("run_id", runID); err != nil {
		return "", err
	}
	return withinBase(outputDir, filepath.Join(outputDir, runID))
}

// resolveResultsFile accepts a transcript path relative to the working
// directory, as reported by run_test_suite, or relative to outputDir. Either
// way the result must lie inside outputDir.
func resolveResultsFile(outputDir, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("results_file is required")
	}
	if filepath.IsAbs(path) {
		return withinBase(outputDir, path)
	}
	if resolved, err := withinBase(outputDir, path); err == nil {
		return resolved, nil
	}
	return withinBase(outputDir, filepath.Join(outputDir, path))
}

func withinBase(base, path string) (string, error) {
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve output directory: %w", err)
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(baseAbs, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the output directory", path)
	}
	return target, nil
}
