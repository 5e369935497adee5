// Package file reads and writes scenario lists and keeps a Collection in
// sync with a file on disk.
package file

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/pkg/models"
	"github.com/grovetools/finder/schema"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the document version written by Save.
const CurrentVersion = 1

// Document is the on-disk shape of a scenario file.
type Document struct {
	Version   int                     `json:"version" yaml:"version" toml:"version" jsonschema:"required,minimum=1,description=File format version"`
	Scenarios []models.SearchScenario `json:"scenarios" yaml:"scenarios" toml:"scenarios" jsonschema:"description=Saved search scenarios in display order"`
}

// Format is a serialization format for scenario files.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatFor picks the format from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput,
		fmt.Sprintf("unsupported scenario file extension %q (use .yml, .yaml, .toml or .json)", filepath.Ext(path))).
		WithDetail("path", path)
}

var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

func getValidator() (*schema.Validator, error) {
	validatorOnce.Do(func() {
		data, err := Schema()
		if err != nil {
			validatorErr = err
			return
		}
		validator, validatorErr = schema.NewValidator("scenarios.json", data)
	})
	return validator, validatorErr
}

// Load reads scenarios from path. A missing file yields an empty list.
func Load(path string) ([]models.SearchScenario, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.SearchScenario{}, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read scenario file").
			WithDetail("path", path)
	}

	return Decode(data, format, path)
}

// Decode parses and validates a scenario document. name is used in error
// messages only.
func Decode(data []byte, format Format, name string) ([]models.SearchScenario, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.SearchScenario{}, nil
	}

	var raw interface{}
	if err := unmarshal(data, format, &raw); err != nil {
		return nil, errors.ScenarioFileInvalid(name, err.Error())
	}

	v, err := getValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build scenario schema")
	}
	if err := v.Validate(raw); err != nil {
		return nil, errors.ScenarioFileInvalid(name, err.Error())
	}

	var doc Document
	if err := unmarshal(data, format, &doc); err != nil {
		return nil, errors.ScenarioFileInvalid(name, err.Error())
	}
	if doc.Scenarios == nil {
		doc.Scenarios = []models.SearchScenario{}
	}
	return doc.Scenarios, nil
}

// Encode serializes scenarios as a versioned document.
func Encode(scenarios []models.SearchScenario, format Format) ([]byte, error) {
	if scenarios == nil {
		scenarios = []models.SearchScenario{}
	}
	doc := Document{Version: CurrentVersion, Scenarios: scenarios}

	switch format {
	case FormatYAML:
		return yaml.Marshal(&doc)
	case FormatTOML:
		return toml.Marshal(&doc)
	case FormatJSON:
		data, err := json.MarshalIndent(&doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// Save writes scenarios to path atomically, creating parent directories.
func Save(path string, scenarios []models.SearchScenario) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Encode(scenarios, format)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode scenarios")
	}
	if err := writeAtomic(path, data); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write scenario file").
			WithDetail("path", path)
	}
	return nil
}

func unmarshal(data []byte, format Format, v interface{}) error {
	switch format {
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	case FormatTOML:
		return toml.Unmarshal(data, v)
	case FormatJSON:
		return json.Unmarshal(data, v)
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpName, path)
}
