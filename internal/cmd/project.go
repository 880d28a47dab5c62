package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hargabyte/phpimpact/internal/analysis"
	"github.com/hargabyte/phpimpact/internal/config"
	"github.com/hargabyte/phpimpact/internal/discover"
	"github.com/hargabyte/phpimpact/internal/output"
)

// Source selection flags shared by every command that builds an index.
var (
	sourceRoot    string
	sourceInclude []string
	sourceExclude []string
	entrypoints   string
	noInterfaces  bool
	workers       int
)

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sourceRoot, "root", "", "Source root (default from config)")
	cmd.Flags().StringSliceVar(&sourceInclude, "include", nil, "Include glob, repeatable (default src/**/*.php)")
	cmd.Flags().StringSliceVar(&sourceExclude, "exclude", nil, "Exclude glob, repeatable (default vendor/**)")
	cmd.Flags().StringVar(&entrypoints, "entrypoints", "", "Entrypoint class regexp (default (Facade|Client|Service|Plugin)$)")
	cmd.Flags().BoolVar(&noInterfaces, "no-interfaces", false, "Do not link interface methods to their implementations")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel parse workers (0 = number of CPUs)")
}

// loadProject loads the configuration and applies command-line overrides.
func loadProject(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		abs, err := filepath.Abs(sourceRoot)
		if err != nil {
			return nil, fmt.Errorf("resolve root: %w", err)
		}
		cfg.Source.Root = abs
	}
	if flags.Changed("include") {
		cfg.Source.Include = slices.Clone(sourceInclude)
	}
	if flags.Changed("exclude") {
		cfg.Source.Exclude = slices.Clone(sourceExclude)
	}
	if flags.Changed("entrypoints") {
		cfg.Analysis.EntrypointPattern = entrypoints
	}
	if flags.Changed("no-interfaces") {
		cfg.Analysis.SkipInterfaceLinks = noInterfaces
	}
	if flags.Changed("workers") {
		cfg.Parse.Workers = workers
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveFormat returns the effective output format.
func resolveFormat(cfg *config.Config) (output.Format, error) {
	return output.ParseFormat(cfg.Output.Format)
}

// sourceFiles resolves the file set of cfg.
func sourceFiles(cfg *config.Config) ([]string, error) {
	root := cfg.SourceRoot()
	exclude := slices.Clone(cfg.Source.Exclude)
	if cfg.AutoExclude() {
		auto := discover.DetectAutoExcludes(root)
		for _, dir := range auto.Directories {
			logger.Debug("index.auto_exclude", "dir", dir, "reason", auto.Reasons[dir])
		}
		exclude = append(exclude, auto.Globs()...)
	}
	files, err := discover.Files(root, cfg.Source.Include, exclude)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	logger.Info("index.discover", "root", root, "files", len(files))
	return files, nil
}

// buildIndex discovers the sources of cfg and builds the index.
func buildIndex(ctx context.Context, cfg *config.Config) (*analysis.Index, error) {
	files, err := sourceFiles(cfg)
	if err != nil {
		return nil, err
	}
	conventions, err := cfg.Conventions()
	if err != nil {
		return nil, err
	}
	idx, err := analysis.Build(ctx, files, analysis.Options{
		Workers:            cfg.Parse.Workers,
		Tolerant:           cfg.Parse.Tolerant,
		SkipInterfaceLinks: cfg.Analysis.SkipInterfaceLinks,
		Conventions:        conventions,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build index under %s: %w", cfg.SourceRoot(), err)
	}
	return idx, nil
}
