package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "Finder Configuration", doc["title"])
	assert.NotContains(t, doc, "additionalProperties")

	props := doc["properties"].(map[string]interface{})
	for _, key := range []string{"version", "storage", "search", "daemon"} {
		assert.Contains(t, props, key)
	}
	assert.NotContains(t, props, "Extensions")
}

func TestSchemaValidatorAcceptsExtensions(t *testing.T) {
	v, err := NewSchemaValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]interface{}{
		"version": "1.0",
		"logging": map[string]interface{}{"level": "debug"},
	}))
	assert.Error(t, v.Validate(map[string]interface{}{
		"daemon": map[string]interface{}{"port": 80},
	}))
}
