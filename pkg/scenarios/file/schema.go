package file

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema for scenario files.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
		FieldNameTag:               "yaml",
	}

	s := r.Reflect(&Document{})
	s.Title = "Finder Scenarios"
	s.Description = "Saved search scenarios for finder."

	return json.MarshalIndent(s, "", "  ")
}
