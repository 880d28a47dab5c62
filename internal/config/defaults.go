package config

import (
	"slices"

	"github.com/hargabyte/phpimpact/internal/discover"
	"github.com/hargabyte/phpimpact/internal/impact"
)

// DefaultConfig returns configuration with sensible defaults.
// These defaults are used when no config file exists or when
// config file is missing specific fields.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Root:    ".",
			Include: slices.Clone(discover.DefaultInclude),
			Exclude: slices.Clone(discover.DefaultExclude),
		},
		Parse: ParseConfig{
			Workers:  0,
			Tolerant: false,
		},
		Analysis: AnalysisConfig{
			EntrypointPattern: impact.DefaultPattern,
		},
		Output: OutputConfig{
			Format: "yaml",
		},
	}
}

// Merge merges loaded config with defaults.
// Values from loaded config take precedence over defaults.
// Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	result := &Config{Dir: loaded.Dir}

	result.Source = mergeSourceConfig(loaded.Source, defaults.Source)
	result.Parse = mergeParseConfig(loaded.Parse, defaults.Parse)
	result.Analysis = mergeAnalysisConfig(loaded.Analysis, defaults.Analysis)
	result.Output = mergeOutputConfig(loaded.Output, defaults.Output)

	return result
}

func mergeSourceConfig(loaded, defaults SourceConfig) SourceConfig {
	result := SourceConfig{}

	if loaded.Root != "" {
		result.Root = loaded.Root
	} else {
		result.Root = defaults.Root
	}

	if len(loaded.Include) > 0 {
		result.Include = loaded.Include
	} else {
		result.Include = defaults.Include
	}

	// An explicit empty list disables the default excludes.
	if loaded.Exclude != nil {
		result.Exclude = loaded.Exclude
	} else {
		result.Exclude = defaults.Exclude
	}

	if loaded.AutoExclude != nil {
		result.AutoExclude = loaded.AutoExclude
	} else {
		result.AutoExclude = defaults.AutoExclude
	}

	return result
}

func mergeParseConfig(loaded, defaults ParseConfig) ParseConfig {
	result := ParseConfig{}

	if loaded.Workers != 0 {
		result.Workers = loaded.Workers
	} else {
		result.Workers = defaults.Workers
	}

	// Booleans default to false, so the loaded value always wins.
	result.Tolerant = loaded.Tolerant

	return result
}

func mergeAnalysisConfig(loaded, defaults AnalysisConfig) AnalysisConfig {
	result := AnalysisConfig{}

	if loaded.EntrypointPattern != "" {
		result.EntrypointPattern = loaded.EntrypointPattern
	} else {
		result.EntrypointPattern = defaults.EntrypointPattern
	}

	result.SkipInterfaceLinks = loaded.SkipInterfaceLinks

	result.FactoryConventions = append(slices.Clone(defaults.FactoryConventions), loaded.FactoryConventions...)

	return result
}

func mergeOutputConfig(loaded, defaults OutputConfig) OutputConfig {
	result := OutputConfig{}

	if loaded.Format != "" {
		result.Format = loaded.Format
	} else {
		result.Format = defaults.Format
	}

	return result
}

// ValidFormats lists the valid values for output format
var ValidFormats = []string{"yaml", "json", "text"}

// IsValidFormat checks if the given format value is valid
func IsValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
