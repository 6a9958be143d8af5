// Package schema validates analysis documents against the published JSON
// Schema before they are written or rendered.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mrsinham/lesiontrack/internal/analysis"
	"github.com/mrsinham/lesiontrack/internal/apperr"
)

//go:embed analysis.schema.json
var analysisSchema string

const schemaURL = "analysis.schema.json"

// Validator checks documents against the analysis schema.
type Validator struct {
	schema *jsonschema.Schema
}

// New compiles the embedded analysis schema.
func New() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(analysisSchema)); err != nil {
		return nil, fmt.Errorf("load analysis schema: %w", err)
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile analysis schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

var defaultValidator = sync.OnceValues(New)

// Validate checks doc with the embedded schema.
func Validate(doc analysis.Document) error {
	v, err := defaultValidator()
	if err != nil {
		return err
	}
	return v.Validate(doc)
}

// Validate checks doc. A violation is a SCHEMA_INVALID error whose Path is
// the JSON pointer of the first failing field.
func (v *Validator) Validate(doc analysis.Document) error {
	// Normalise through JSON so typed values nested in the map validate the
	// way they will be written.
	data, err := json.Marshal(doc)
	if err != nil {
		return apperr.Wrap(apperr.SchemaInvalid, err, "analysis is not serialisable")
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return apperr.Wrap(apperr.SchemaInvalid, err, "analysis is not serialisable")
	}

	err = v.schema.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return apperr.Wrap(apperr.SchemaInvalid, err, "schema validation failed")
	}
	leaf := leafCause(ve)
	path := leaf.InstanceLocation
	if path == "" {
		path = "/"
	}
	return apperr.New(apperr.SchemaInvalid, "field %s: %s", path, leaf.Message).WithPath(path)
}

// leafCause follows the first cause down to the most specific failure.
func leafCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
