package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// configNames are searched in each directory, in order.
var configNames = []string{
	"finder.yml",
	"finder.yaml",
	".finder.yml",
	".finder.yaml",
	"finder.toml",
}

// overrideNames are applied after the project file, from the same directory.
var overrideNames = []string{
	"finder.override.yml",
	"finder.override.yaml",
	".finder.override.yml",
	".finder.override.yaml",
	"finder.override.toml",
}

// Load reads and parses a single configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, isTOML(path))
	if err != nil {
		if groveErr, ok := errors.As(err); ok {
			groveErr.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads the configuration with hierarchical merging starting
// from the current directory:
// 1. Global config (~/.config/finder/finder.yml) - base layer
// 2. Project config (finder.yml, searched upward) - overrides global
// 3. Local override (finder.override.yml) - overrides all
//
// Every layer is optional; with none present the defaults are returned.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the given directory
func LoadFrom(startDir string) (*Config, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	cfg, _, err := LoadFromWithLogger(startDir, logger)
	return cfg, err
}

// LoadFromWithLogger loads configuration with hierarchical merging and
// logging. It also returns the files that were applied, in order.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, []Layer, error) {
	finalConfig := &Config{}
	var layers []Layer

	apply := func(source ConfigSource, path string, required bool) error {
		layer, err := readLayer(path)
		if err != nil {
			if required {
				return err
			}
			logger.WithError(err).WithField("path", path).Warn("Failed to read configuration layer, continuing without it")
			return nil
		}
		logger.WithField("path", path).Debugf("Merging %s configuration", source)
		finalConfig = mergeConfigs(finalConfig, layer)
		layers = append(layers, Layer{Source: source, Path: path})
		return nil
	}

	// 1. Global config (optional)
	if globalPath := findIn(paths.ConfigDir(), configNames); globalPath != "" {
		if err := apply(SourceGlobal, globalPath, false); err != nil {
			return nil, nil, err
		}
	}

	// 2. Project config (optional, but must parse if present)
	projectPath, err := FindConfigFile(startDir)
	if err == nil && !isGlobal(projectPath) {
		if err := apply(SourceProject, projectPath, true); err != nil {
			return nil, nil, err
		}

		// 3. Override files next to the project config
		projectDir := filepath.Dir(projectPath)
		for _, name := range overrideNames {
			overridePath := filepath.Join(projectDir, name)
			if _, err := os.Stat(overridePath); err == nil {
				if err := apply(SourceOverride, overridePath, false); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	finalConfig.SetDefaults()

	if err := finalConfig.Validate(); err != nil {
		return nil, nil, err
	}

	logger.Debug("Configuration loaded and validated successfully")

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		configData, err := yaml.Marshal(finalConfig)
		if err == nil {
			logger.Debugf("Merged configuration:\n%s", string(configData))
		}
	}

	return finalConfig, layers, nil
}

// LoadFromBytes parses configuration from a byte slice, validates it
// against the schema and applies defaults.
func LoadFromBytes(data []byte, asTOML bool) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	var raw map[string]interface{}
	var err error
	if asTOML {
		err = toml.Unmarshal(expanded, &raw)
	} else {
		err = yaml.Unmarshal(expanded, &raw)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse configuration")
	}

	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if raw != nil {
		if err := validator.Validate(raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
		}
	}

	config, err := decode(expanded, asTOML)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse configuration")
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// FindConfigFile searches for a finder configuration file from startDir up
// to the filesystem root, then in the global config directory.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		if path := findIn(dir, configNames); path != "" {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if path := findIn(paths.ConfigDir(), configNames); path != "" {
		return path, nil
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

func findIn(dir string, names []string) string {
	if dir == "" {
		return ""
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func isGlobal(path string) bool {
	return filepath.Dir(path) == filepath.Clean(paths.ConfigDir())
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// readLayer reads one configuration file without defaults or validation.
func readLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config").
			WithDetail("path", path)
	}
	cfg, err := decode([]byte(expandEnvVars(string(data))), isTOML(path))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config").
			WithDetail("path", path)
	}
	return cfg, nil
}

// decode unmarshals YAML or TOML into a Config, collecting unknown
// top-level keys into Extensions.
func decode(data []byte, asTOML bool) (*Config, error) {
	var cfg Config
	if !asTOML {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for key, value := range raw {
		if knownKeys[key] {
			continue
		}
		if cfg.Extensions == nil {
			cfg.Extensions = make(map[string]interface{})
		}
		cfg.Extensions[key] = value
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

func defaultScenariosFile() string {
	return filepath.Join(paths.ConfigDir(), "scenarios.yml")
}

func defaultHistoryDB() string {
	return filepath.Join(paths.StateDir(), "history.db")
}

func defaultSocket() string {
	return paths.SocketPath()
}
