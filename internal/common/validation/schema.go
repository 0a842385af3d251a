package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON schema for one wire payload.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func Compile(name, raw string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: s}, nil
}

func MustCompile(name, raw string) *Schema {
	s, err := Compile(name, raw)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string {
	return s.name
}

// ValidateBytes validates a raw JSON document.
func (s *Schema) ValidateBytes(doc []byte) *ValidationResult {
	if !json.Valid(doc) {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: "document is not valid JSON",
			Code:    "invalid_json",
		}}}
	}
	return s.validate(gojsonschema.NewBytesLoader(doc))
}

// ValidateValue validates a Go value through its JSON encoding.
func (s *Schema) ValidateValue(v interface{}) *ValidationResult {
	return s.validate(gojsonschema.NewGoLoader(v))
}

func (s *Schema) validate(doc gojsonschema.JSONLoader) *ValidationResult {
	result, err := s.schema.Validate(doc)
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "unreadable",
		}}}
	}
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	out := &ValidationResult{Errors: make([]ValidationError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out
}

// Err folds a failed result into one error, nil when valid.
func (r *ValidationResult) Err(schemaName string) error {
	if r == nil || r.Valid {
		return nil
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Errorf("%s validation failed: %s", schemaName, strings.Join(parts, "; "))
}

// Fields maps each failing field to its first message.
func (r *ValidationResult) Fields() map[string]string {
	fields := make(map[string]string)
	if r == nil {
		return fields
	}
	for _, e := range r.Errors {
		if _, ok := fields[e.Field]; !ok {
			fields[e.Field] = e.Message
		}
	}
	return fields
}
