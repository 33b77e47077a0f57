package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateManifest(t *testing.T) {
	valid := map[string]any{
		"id":                "0b6f3f0e-2d55-4d8c-9f0a-5d1f0c7f2a11",
		"suite":             "kubernetes-cka",
		"timestamp":         "2026-01-02T03:04:05Z",
		"test_suite_config": map[string]any{"name": "kubernetes-cka"},
		"models": []map[string]any{
			{"model_name": "qwen", "duration": 1.5, "results_file": "results/run/results_qwen.txt"},
		},
		"full_duration": 1.6,
	}
	require.NoError(t, Validate(Manifest, valid))

	missing := map[string]any{"models": []any{}, "full_duration": 0}
	err := Validate(Manifest, missing)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "test_suite_config")

	negative := map[string]any{
		"test_suite_config": map[string]any{},
		"models":            []map[string]any{{"model_name": "m", "duration": -1, "results_file": "f"}},
		"full_duration":     0,
	}
	assert.ErrorIs(t, Validate(Manifest, negative), ErrInvalid)
}

func TestValidateScores(t *testing.T) {
	correct := 58
	total := 100
	pct := 58.0
	doc := map[string]any{
		"metadata": map[string]any{
			"timestamp":     "2026-01-02T03:04:05Z",
			"results_file":  "results_qwen.txt",
			"scoring_api":   "local",
			"scoring_model": "judge",
			"repetitions":   2,
		},
		"runs": []map[string]any{
			{"correct": correct, "total": total, "percentage": pct, "raw_output": "58 out of 100"},
			{"correct": nil, "total": nil, "percentage": nil, "raw_output": "no idea", "parse_error": "Could not parse score from output"},
		},
		"summary": map[string]any{
			"mean_correct":    58.0,
			"mean_percentage": 58.0,
			"min_correct":     58,
			"max_correct":     58,
			"all_runs_parsed": false,
		},
	}
	require.NoError(t, Validate(Scores, doc))

	doc["metadata"].(map[string]any)["scoring_api"] = "openrouter"
	assert.ErrorIs(t, Validate(Scores, doc), ErrInvalid)
}

func TestValidateUnknownArtifact(t *testing.T) {
	err := Validate(Artifact("nope"), map[string]any{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestValidateDocument(t *testing.T) {
	schemaJSON := []byte(`{"type":"object","properties":{"repetitions":{"type":"integer","minimum":1}},"required":["repetitions"]}`)

	require.NoError(t, ValidateDocument("arguments", schemaJSON, []byte(`{"repetitions":3}`)))

	err := ValidateDocument("arguments", schemaJSON, []byte(`{"repetitions":0}`))
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "arguments")

	assert.ErrorIs(t, ValidateDocument("arguments", schemaJSON, []byte(`{}`)), ErrInvalid)
}
