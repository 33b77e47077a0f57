package suite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors config.yaml. Keys not listed here are ignored, but they
// still appear in Suite.Raw.
type fileConfig struct {
	Name          string           `yaml:"name"`
	Description   string           `yaml:"description"`
	API           API              `yaml:"api"`
	Models        []map[string]any `yaml:"models"`
	QuestionsFile string           `yaml:"questions_file"`
	Prompt        Prompt           `yaml:"prompt"`
	Output        Output           `yaml:"output"`
}

// Load reads dir/name/config.yaml and the questions file it references.
// Every failure here is a setup error: nothing has been sent to a model yet.
func Load(dir, name string) (*Suite, error) {
	suitePath := filepath.Join(dir, name)
	info, err := os.Stat(suitePath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSuiteNotFound, suitePath)
	}

	configPath := filepath.Join(suitePath, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}

	s, err := parseConfig(data, name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}
	s.Dir = suitePath

	questionsPath := filepath.Join(suitePath, s.QuestionsFile)
	if _, err := os.Stat(questionsPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrQuestionsNotFound, questionsPath)
	}
	questions, err := LoadQuestions(questionsPath)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoQuestions, questionsPath)
	}
	s.QuestionsFile = questionsPath
	s.Questions = questions

	return s, nil
}

// parseConfig decodes a config.yaml document and applies defaults.
func parseConfig(data []byte, fallbackName string) (*Suite, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	raw = stringKeys(raw).(map[string]any)

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}

	models, err := decodeModels(fc.Models)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: add at least one model to the 'models' list", ErrNoModels)
	}

	s := &Suite{
		Name:          firstNonEmpty(fc.Name, fallbackName),
		Description:   fc.Description,
		API:           fc.API,
		Models:        models,
		QuestionsFile: firstNonEmpty(fc.QuestionsFile, defaultQuestionsFile),
		Prompt:        Prompt{SystemMessage: firstNonEmpty(fc.Prompt.SystemMessage, defaultSystemMessage)},
		Output:        Output{FilenamePattern: firstNonEmpty(fc.Output.FilenamePattern, defaultFilenamePattern)},
		Raw:           raw,
	}
	s.API.BaseURL = strings.TrimRight(firstNonEmpty(s.API.BaseURL, defaultBaseURL), "/")
	s.API.APIKeyEnv = firstNonEmpty(s.API.APIKeyEnv, defaultAPIKeyEnv)
	s.API.APIKeyDefault = firstNonEmpty(s.API.APIKeyDefault, defaultAPIKeyValue)
	s.API.APIKey = s.API.APIKeyDefault
	if key, ok := os.LookupEnv(s.API.APIKeyEnv); ok {
		s.API.APIKey = key
	}

	return s, nil
}

func decodeModels(entries []map[string]any) ([]Model, error) {
	models := make([]Model, 0, len(entries))
	for i, entry := range entries {
		entry = stringKeys(entry).(map[string]any)
		var m Model
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:  &m,
			TagName: "mapstructure",
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(entry); err != nil {
			return nil, fmt.Errorf("models[%d]: %w", i, err)
		}
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			return nil, fmt.Errorf("models[%d]: missing required key 'name'", i)
		}
		models = append(models, m)
	}
	return models, nil
}

// List returns the names of the suite directories under dir, sorted.
// A missing dir yields an empty list.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read suites directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// stringKeys converts the map[interface{}]interface{} values yaml.v3 produces
// for non-string keys into map[string]any so the tree stays JSON encodable.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	default:
		return v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
