package metadata

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed metadata.schema.json
var schemaDocument []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func ticketSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("metadata.schema.json", bytes.NewReader(schemaDocument)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("metadata.schema.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// ValidateDocument checks raw metadata.json bytes against the ticket schema.
// Callers distinguish decode errors (returned wrapped by json) from schema
// violations through errors.As with *jsonschema.ValidationError.
func ValidateDocument(data []byte) error {
	schema, err := ticketSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("metadata does not match schema: %w", err)
	}
	return nil
}

// Validate checks t against the ticket schema as it would be written.
func (t Ticket) Validate() error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return ValidateDocument(data)
}

// Load decodes a metadata.json document without validating it.
func Load(data []byte) (Ticket, error) {
	var t Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return Ticket{}, err
	}
	return t, nil
}
