package config

import (
	"sync"

	"github.com/grovetools/finder/schema"
)

var (
	schemaOnce      sync.Once
	cachedValidator *schema.Validator
	cachedErr       error
)

// NewSchemaValidator returns a validator for finder.yml built from
// GenerateSchema. The compiled schema is shared.
func NewSchemaValidator() (*schema.Validator, error) {
	schemaOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			cachedErr = err
			return
		}
		cachedValidator, cachedErr = schema.NewValidator("finder.json", data)
	})
	return cachedValidator, cachedErr
}
