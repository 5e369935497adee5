package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for finder.yml. Top-level keys
// other than the known sections are allowed and treated as extensions.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&Config{})
	schema.Title = "Finder Configuration"
	schema.Description = "Schema for finder.yml. Unknown top-level keys are extensions (e.g. logging)."
	schema.AdditionalProperties = nil
	schema.Required = nil

	return json.MarshalIndent(schema, "", "  ")
}
