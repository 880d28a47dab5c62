package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/hargabyte/phpimpact/internal/factory"
)

// ConfigFileName is the name of the phpimpact configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the phpimpact configuration directory
const ConfigDirName = ".phpimpact"

// Config holds all phpimpact configuration
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Parse    ParseConfig    `yaml:"parse"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Output   OutputConfig   `yaml:"output"`

	// Dir is the project directory relative paths are resolved against.
	Dir string `yaml:"-"`
}

// SourceConfig selects the files to analyse
type SourceConfig struct {
	Root    string   `yaml:"root"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
	// AutoExclude adds detected dependency directories (vendor/,
	// node_modules/) to Exclude. Defaults to true.
	AutoExclude *bool `yaml:"auto_exclude,omitempty"`
}

// ParseConfig holds parser settings
type ParseConfig struct {
	Workers  int  `yaml:"workers"`
	Tolerant bool `yaml:"tolerant"`
}

// AnalysisConfig holds call graph and impact settings
type AnalysisConfig struct {
	EntrypointPattern  string             `yaml:"entrypoint_pattern"`
	SkipInterfaceLinks bool               `yaml:"skip_interface_links"`
	FactoryConventions []ConventionConfig `yaml:"factory_conventions,omitempty"`
}

// ConventionConfig is an extra owner-to-factory naming rule. Template
// uses ${n} references to the pattern's groups.
type ConventionConfig struct {
	Pattern  string `yaml:"pattern"`
	Template string `yaml:"template"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	Format string `yaml:"format"`
}

// ErrConfigNotFound is returned when no config file can be found
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .phpimpact/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and walking up
// the directory tree. If no config is found, returns defaults rooted at
// workDir.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		cfg := DefaultConfig()
		abs, absErr := filepath.Abs(workDir)
		if absErr != nil {
			return nil, fmt.Errorf("resolving path: %w", absErr)
		}
		cfg.Dir = abs
		return cfg, nil
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	return LoadFromPath(configPath)
}

// LoadFromPath reads config from a specific path.
// Merges loaded config with defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	dir := filepath.Dir(abs)
	if filepath.Base(dir) == ConfigDirName {
		dir = filepath.Dir(dir)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.Dir = dir
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	merged := Merge(loaded, DefaultConfig())
	merged.Dir = dir

	if err := Validate(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// FindConfigDir locates the .phpimpact directory by walking up from
// startDir.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .phpimpact directory if it doesn't exist.
// Returns the path to the .phpimpact directory.
func EnsureConfigDir(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDirName)

	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", fmt.Errorf("%s exists but is not a directory", configDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	return configDir, nil
}

// Validate checks that config values are valid.
func Validate(cfg *Config) error {
	if !IsValidFormat(cfg.Output.Format) {
		return fmt.Errorf("%w: output.format must be one of %v, got %q",
			ErrInvalidConfig, ValidFormats, cfg.Output.Format)
	}

	if cfg.Parse.Workers < 0 {
		return fmt.Errorf("%w: parse.workers must be non-negative, got %d",
			ErrInvalidConfig, cfg.Parse.Workers)
	}

	if len(cfg.Source.Include) == 0 {
		return fmt.Errorf("%w: source.include must not be empty", ErrInvalidConfig)
	}

	if _, err := regexp.Compile(cfg.Analysis.EntrypointPattern); err != nil {
		return fmt.Errorf("%w: analysis.entrypoint_pattern: %v", ErrInvalidConfig, err)
	}

	if _, err := cfg.Conventions(); err != nil {
		return err
	}

	return nil
}

// Conventions compiles the configured factory conventions.
func (cfg *Config) Conventions() ([]factory.Convention, error) {
	out := make([]factory.Convention, 0, len(cfg.Analysis.FactoryConventions))
	for i, c := range cfg.Analysis.FactoryConventions {
		conv, err := factory.NewConvention(c.Pattern, c.Template)
		if err != nil {
			return nil, fmt.Errorf("%w: analysis.factory_conventions[%d]: %w", ErrInvalidConfig, i, err)
		}
		out = append(out, conv)
	}
	return out, nil
}

// SourceRoot returns the absolute source root.
func (cfg *Config) SourceRoot() string {
	if filepath.IsAbs(cfg.Source.Root) {
		return cfg.Source.Root
	}
	return filepath.Join(cfg.Dir, cfg.Source.Root)
}

// AutoExclude reports whether dependency directories are detected and
// excluded.
func (cfg *Config) AutoExclude() bool {
	return cfg.Source.AutoExclude == nil || *cfg.Source.AutoExclude
}

// SaveDefault writes the default configuration to .phpimpact/config.yaml in
// workDir. Creates the .phpimpact directory if it doesn't exist.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)

	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	header := "# phpimpact configuration\n# Paths are relative to the directory containing .phpimpact/\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return configPath, nil
}
