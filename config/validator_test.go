package config

import (
	"testing"
)

func TestSchemaValidation(t *testing.T) {
	validator, err := NewSchemaValidator()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		config    map[string]interface{}
		wantError bool
	}{
		{
			name:   "empty config",
			config: map[string]interface{}{},
		},
		{
			name: "all sections",
			config: map[string]interface{}{
				"version": "1.0",
				"storage": map[string]interface{}{
					"scenarios_file": "~/finder/scenarios.toml",
					"history":        false,
				},
				"search": map[string]interface{}{
					"timeout": "10s",
					"workers": 4,
					"exclude": []interface{}{"node_modules", "**/.git"},
				},
				"daemon": map[string]interface{}{
					"socket":            "/tmp/finderd.sock",
					"watch_debounce_ms": 250,
				},
			},
		},
		{
			name: "unknown key inside a section",
			config: map[string]interface{}{
				"search": map[string]interface{}{"depth": 3},
			},
			wantError: true,
		},
		{
			name: "negative workers",
			config: map[string]interface{}{
				"search": map[string]interface{}{"workers": -1},
			},
			wantError: true,
		},
		{
			name: "timeout as a number",
			config: map[string]interface{}{
				"search": map[string]interface{}{"timeout": 30},
			},
			wantError: true,
		},
		{
			name: "exclude as a string",
			config: map[string]interface{}{
				"search": map[string]interface{}{"exclude": "node_modules"},
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.config)
			if tt.wantError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
