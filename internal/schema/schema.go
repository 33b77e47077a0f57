// Package schema validates the JSON artifacts llmeval writes against
// embedded JSON Schemas before they are persisted.
package schema

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.schema.json
var files embed.FS

// Artifact names an embedded schema.
type Artifact string

const (
	Manifest Artifact = "manifest"
	Scores   Artifact = "scores"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("artifact failed schema validation")

// Validate checks doc (any value that marshals to JSON) against the named
// artifact schema. A nil return means the document is valid.
func Validate(artifact Artifact, doc any) error {
	raw, err := files.ReadFile("schemas/" + string(artifact) + ".schema.json")
	if err != nil {
		return fmt.Errorf("unknown artifact schema %q: %w", artifact, err)
	}

	return check(string(artifact), gojsonschema.NewBytesLoader(raw), gojsonschema.NewGoLoader(doc))
}

// ValidateDocument checks the raw JSON document doc against schemaJSON.
// name labels the document in the returned error.
func ValidateDocument(name string, schemaJSON, doc []byte) error {
	return check(name, gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(doc))
}

func check(name string, schemaLoader, docLoader gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("validate %s: %w", name, err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalid, name, strings.Join(errs, ", "))
}
