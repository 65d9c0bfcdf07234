package finding

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Sentinel errors for model payload decoding.
var (
	// ErrMalformedPayload indicates the payload is not parseable JSON.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrSchemaViolation indicates well-formed JSON that does not match the expected shape.
	ErrSchemaViolation = errors.New("payload violates schema")
)

// Schema names, matching the files under schema/.
const (
	schemaFindings       = "findings"
	schemaClassification = "classification"
	schemaSummary        = "summary"
)

//go:embed schema/*.json
var schemaFS embed.FS

var compiledSchemas = sync.OnceValues(func() (map[string]*gojsonschema.Schema, error) {
	compiled := make(map[string]*gojsonschema.Schema, 3)

	for _, name := range []string{schemaFindings, schemaClassification, schemaSummary} {
		data, readErr := schemaFS.ReadFile("schema/" + name + ".json")
		if readErr != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, readErr)
		}

		schema, compileErr := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if compileErr != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, compileErr)
		}

		compiled[name] = schema
	}

	return compiled, nil
})

// StripFences removes markdown code fences a model may wrap JSON in.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	return strings.TrimSpace(text)
}

// DecodeFindings parses a model response holding a JSON array of findings.
func DecodeFindings(raw string) ([]Finding, error) {
	payload := StripFences(raw)

	err := validate(schemaFindings, payload)
	if err != nil {
		return nil, err
	}

	var findings []Finding

	unmarshalErr := json.Unmarshal([]byte(payload), &findings)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, unmarshalErr)
	}

	for idx := range findings {
		normalizeFinding(&findings[idx])
	}

	return findings, nil
}

// DecodeClassification parses a model response holding a classification object.
func DecodeClassification(raw string) (Classification, error) {
	payload := StripFences(raw)

	err := validate(schemaClassification, payload)
	if err != nil {
		return Classification{}, err
	}

	var cls Classification

	unmarshalErr := json.Unmarshal([]byte(payload), &cls)
	if unmarshalErr != nil {
		return Classification{}, fmt.Errorf("%w: %w", ErrMalformedPayload, unmarshalErr)
	}

	cls.PaperType = strings.ToLower(cls.PaperType)
	if cls.Parties == nil {
		cls.Parties = []string{}
	}

	return cls, nil
}

// DecodeSummary parses a model response holding a risk summary object.
func DecodeSummary(raw string) (Summary, error) {
	payload := StripFences(raw)

	err := validate(schemaSummary, payload)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary

	unmarshalErr := json.Unmarshal([]byte(payload), &sum)
	if unmarshalErr != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrMalformedPayload, unmarshalErr)
	}

	sum.OverallRisk = ParseRiskLevel(string(sum.OverallRisk))

	if sum.KeyFindings == nil {
		sum.KeyFindings = []string{}
	}

	if sum.MissingClauses == nil {
		sum.MissingClauses = []string{}
	}

	return sum, nil
}

func validate(name, payload string) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}

	result, validateErr := schemas[name].Validate(gojsonschema.NewStringLoader(payload))
	if validateErr != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, validateErr)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(problems, "; "))
}

func normalizeFinding(f *Finding) {
	f.Risk = ParseRiskLevel(string(f.Risk))
	f.Type = strings.TrimSpace(f.Type)

	if f.Violations == nil {
		f.Violations = []Violation{}
	}

	for idx := range f.Violations {
		f.Violations[idx].Severity = ParseSeverity(string(f.Violations[idx].Severity))
	}
}
