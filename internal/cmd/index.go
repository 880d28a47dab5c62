package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hargabyte/phpimpact/internal/analysis"
	"github.com/hargabyte/phpimpact/internal/output"
	"github.com/hargabyte/phpimpact/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the index and print its statistics",
	Long: `Parse the project, build the symbol table and call graph, and print their
size along with the files that were skipped.

With --export the index is also written to a SQLite database as a new run,
so the symbol table, call edges and reverse index can be queried with SQL.
A database can hold several runs.`,
	Example: `  phpimpact index
  phpimpact index --format text
  phpimpact index --export .phpimpact/index.db`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

var indexExport string

func init() {
	rootCmd.AddCommand(indexCmd)
	addSourceFlags(indexCmd)
	indexCmd.Flags().StringVar(&indexExport, "export", "", "Write the index to this SQLite database")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject(cmd)
	if err != nil {
		return err
	}
	format, err := resolveFormat(cfg)
	if err != nil {
		return err
	}

	idx, err := buildIndex(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	out := newIndexOutput(idx)

	if indexExport != "" {
		path, err := filepath.Abs(indexExport)
		if err != nil {
			return fmt.Errorf("resolve export path: %w", err)
		}
		st, err := store.Open(path)
		if err != nil {
			return err
		}
		defer st.Close()

		runID, err := st.Export(cmd.Context(), idx)
		if err != nil {
			return fmt.Errorf("export index: %w", err)
		}
		logger.Info("index.export", "path", path, "run", runID)
		out.Export = &output.ExportInfo{Path: path, RunID: runID}
	}

	return output.Write(cmd.OutOrStdout(), format, out)
}

func newIndexOutput(idx *analysis.Index) *output.IndexOutput {
	return &output.IndexOutput{
		Counts:         idx.Counts(),
		Interfaces:     idx.Table.Stats().Interfaces,
		Factories:      idx.Factories.Len(),
		InterfaceLinks: idx.Links,
		Fingerprint:    store.FormatFingerprint(idx.Fingerprint()),
		Skipped:        idx.Skipped,
	}
}
