package curriculum

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

type schemaKind string

const (
	schemaDefinitions   schemaKind = "definitions"
	schemaGuideline     schemaKind = "guideline"
	schemaDomainOutline schemaKind = "domain_outline"
	schemaTopicOutline  schemaKind = "topic_outline"
	schemaQuiz          schemaKind = "quiz"
	schemaPageContent   schemaKind = "page_content"
)

// validator holds compiled schemas for every resource kind.
type validator struct {
	schemas map[schemaKind]*gojsonschema.Schema
}

func newValidator() (*validator, error) {
	kinds := []schemaKind{
		schemaDefinitions, schemaGuideline, schemaDomainOutline,
		schemaTopicOutline, schemaQuiz, schemaPageContent,
	}
	v := &validator{schemas: make(map[schemaKind]*gojsonschema.Schema, len(kinds))}
	for _, k := range kinds {
		raw, err := schemaFS.ReadFile("schemas/" + string(k) + ".json")
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", k, err)
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compiling schema %s: %w", k, err)
		}
		v.schemas[k] = s
	}
	return v, nil
}

// decode validates data against the schema for kind and unmarshals it into out.
func (v *validator) decode(kind schemaKind, path string, data []byte, out any) error {
	if !json.Valid(data) {
		var probe any
		err := json.Unmarshal(data, &probe)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return malformed(path, err)
	}

	result, err := v.schemas[kind].Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return malformed(path, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return malformed(path, errors.New(strings.Join(msgs, "; ")))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return malformed(path, err)
	}
	return nil
}
