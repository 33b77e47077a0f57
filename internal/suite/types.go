// Package suite loads test suites: the run configuration in config.yaml and
// the ordered question battery it points at.
package suite

import "errors"

const (
	// ConfigFileName is the name of the run configuration inside a suite directory.
	ConfigFileName = "config.yaml"

	defaultBaseURL         = "http://localhost:1234/v1"
	defaultAPIKeyEnv       = "OPENAI_API_KEY"
	defaultAPIKeyValue     = "not-needed"
	defaultQuestionsFile   = "questions.csv"
	defaultSystemMessage   = "You are a helpful assistant."
	defaultFilenamePattern = "results_{model}.txt"
)

var (
	ErrSuiteNotFound     = errors.New("test suite not found")
	ErrConfigNotFound    = errors.New("configuration file not found")
	ErrNoModels          = errors.New("no models configured")
	ErrQuestionsNotFound = errors.New("questions file not found")
	ErrNoQuestions       = errors.New("questions file contains no questions")
)

// Suite is a fully loaded and validated test suite. Defaults have been
// applied to every optional key and the API key has been resolved.
type Suite struct {
	Name          string
	Description   string
	Dir           string
	API           API
	Models        []Model
	QuestionsFile string
	Prompt        Prompt
	Output        Output
	Questions     []Question

	// Raw is the configuration document as decoded from config.yaml, kept as
	// the manifest's configuration snapshot. Non-string map keys are
	// converted to strings so the snapshot always encodes as JSON.
	Raw map[string]any
}

// API configures the OpenAI-compatible endpoint used for generation.
type API struct {
	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	APIKeyDefault string `yaml:"api_key_default"`

	// APIKey is resolved from APIKeyEnv, falling back to APIKeyDefault.
	APIKey string `yaml:"-"`
}

// Model is one model under test. Params carries any provider-specific keys
// from the models list (top_p, max_tokens, ...) and is forwarded verbatim.
type Model struct {
	Name        string         `mapstructure:"name"`
	Temperature float64        `mapstructure:"temperature"`
	Params      map[string]any `mapstructure:",remain"`
}

type Prompt struct {
	SystemMessage string `yaml:"system_message"`
}

type Output struct {
	FilenamePattern string `yaml:"filename_pattern"`
}

// Question is a single question record. Records keep the order of the
// questions file, which is also the order presented to the judge.
type Question struct {
	ID             string
	Section        string
	QuestionText   string
	ExpectedAnswer string
}
