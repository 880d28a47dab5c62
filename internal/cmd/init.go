package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hargabyte/phpimpact/internal/config"
	"github.com/hargabyte/phpimpact/internal/discover"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .phpimpact/config.yaml",
	Long: `Create the .phpimpact directory in the current directory and write the
default configuration: source globs, parser workers, the entrypoint pattern
and the output format. Dependency directories that would be excluded
automatically are listed.`,
	Example: `  phpimpact init          # Write the default config
  phpimpact init --force  # Overwrite an existing config`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	configFile := filepath.Join(cwd, config.ConfigDirName, config.ConfigFileName)
	_, err = os.Stat(configFile)
	switch {
	case err == nil && !initForce:
		rel, _ := filepath.Rel(cwd, configFile)
		fmt.Fprintf(out, "Already initialized at %s\n", rel)
		return nil
	case err == nil:
		if err := os.Remove(configFile); err != nil {
			return fmt.Errorf("removing existing config: %w", err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("checking config path: %w", err)
	}

	path, err := config.SaveDefault(cwd)
	if err != nil {
		return err
	}
	rel, _ := filepath.Rel(cwd, path)
	fmt.Fprintf(out, "Wrote %s\n", rel)

	auto := discover.DetectAutoExcludes(cwd)
	for _, dir := range auto.Directories {
		fmt.Fprintf(out, "  auto-excluded %s/ (%s)\n", dir, auto.Reasons[dir])
	}
	return nil
}
