package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sample.txt")
	require.NoError(t, WriteFile(path, []byte("test payload")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "test payload", string(got))
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "qwen2.5-coder-7b", want: "qwen2.5-coder-7b"},
		{in: "org/model:latest", want: "org_model_latest"},
		{in: ` a<b>c|d"e?f*g\h `, want: "a_b_c_d_e_f_g_h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestCreateRunDirAddsSuffixOnCollision(t *testing.T) {
	t.Parallel()

	parent := filepath.Join(t.TempDir(), "results")

	first, err := CreateRunDir(parent, "suite_20260101-120000")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "suite_20260101-120000"), first)

	second, err := CreateRunDir(parent, "suite_20260101-120000")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "suite_20260101-120000-2"), second)

	info, err := os.Stat(second)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "no truncation", in: "hello", max: 10, want: "hello"},
		{name: "ascii truncation", in: "helloworld", max: 5, want: "hello…"},
		{name: "multibyte truncation", in: "こんにちは世界", max: 4, want: "こんにち…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateRunes(tt.in, tt.max))
		})
	}
}
