package rowschema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed raw_incident.schema.json
var rawIncidentSchemaJSON string

const schemaName = "raw_incident.schema.json"

// compiled is built on first use and shared by every caller.
var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaName, strings.NewReader(rawIncidentSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add %s: %w", schemaName, err)
	}
	return compiler.Compile(schemaName)
})

// ValidateRow checks one adapted row against the raw incident schema.
// Values must be JSON-shaped: strings, bools, nil, json.Number or native
// numbers.
func ValidateRow(row map[string]any) error {
	if row == nil {
		return fmt.Errorf("row is nil")
	}

	schema, err := compiled()
	if err != nil {
		return fmt.Errorf("compile row schema: %w", err)
	}
	if err := schema.Validate(row); err != nil {
		return fmt.Errorf("row does not match schema: %w", err)
	}

	source, _ := row["source"].(string)
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	return nil
}
