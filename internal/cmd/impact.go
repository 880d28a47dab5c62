package cmd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hargabyte/phpimpact/internal/analysis"
	"github.com/hargabyte/phpimpact/internal/diffmap"
	"github.com/hargabyte/phpimpact/internal/output"
)

var impactCmd = &cobra.Command{
	Use:   "impact [Class::method ...]",
	Short: "List the entrypoints affected by changing the given methods",
	Long: `Build the call graph of the project and walk callers backwards from each
target method until classes matching the entrypoint pattern are reached.

Targets come from the arguments, a targets file (one Class::method per
line, # starts a comment) and/or a unified diff whose changed lines are
mapped to the methods that contain them. Malformed targets are reported
and skipped.

Each entrypoint carries its distance in hops, the module it belongs to,
its one-line description and the @api / @deprecated markers of its
doc-comment. With --explain the call chain is included.`,
	Example: `  phpimpact impact '\App\Zed\Sales\Business\Model\Writer::write'
  phpimpact impact --targets-file changed.txt --format json
  git diff origin/main | phpimpact impact --diff -
  phpimpact impact --entrypoints 'Controller$' --explain 'App\Repo::save'`,
	RunE: runImpact,
}

var (
	impactTargetsFile string
	impactDiff        string
	impactDiffRoot    string
	impactExplain     bool
)

func init() {
	rootCmd.AddCommand(impactCmd)
	addSourceFlags(impactCmd)
	impactCmd.Flags().StringVar(&impactTargetsFile, "targets-file", "", "File with one Class::method per line (- for stdin)")
	impactCmd.Flags().StringVar(&impactDiff, "diff", "", "Unified diff whose changed methods become targets (- for stdin)")
	impactCmd.Flags().StringVar(&impactDiffRoot, "diff-root", "", "Directory diff paths are relative to (default: project directory)")
	impactCmd.Flags().BoolVar(&impactExplain, "explain", false, "Include the call chain from each entrypoint")
}

func runImpact(cmd *cobra.Command, args []string) error {
	if impactTargetsFile == "-" && impactDiff == "-" {
		return errors.New("--targets-file and --diff cannot both read stdin")
	}

	cfg, err := loadProject(cmd)
	if err != nil {
		return err
	}
	format, err := resolveFormat(cfg)
	if err != nil {
		return err
	}

	targets := append([]string(nil), args...)
	if impactTargetsFile != "" {
		data, err := readInput(cmd.InOrStdin(), impactTargetsFile)
		if err != nil {
			return fmt.Errorf("read targets file: %w", err)
		}
		targets = append(targets, parseTargetLines(data)...)
	}

	var changes []diffmap.ChangedFile
	if impactDiff != "" {
		data, err := readInput(cmd.InOrStdin(), impactDiff)
		if err != nil {
			return fmt.Errorf("read diff: %w", err)
		}
		if changes, err = diffmap.Parse(data); err != nil {
			return err
		}
	}
	if len(targets) == 0 && impactDiff == "" {
		return errors.New("no targets: pass Class::method arguments, --targets-file or --diff")
	}

	idx, err := buildIndex(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if len(changes) > 0 {
		root := impactDiffRoot
		if root == "" {
			root = cfg.Dir
		}
		for _, key := range diffmap.Targets(changes, idx.Table, root) {
			targets = append(targets, string(key))
		}
	}

	report, err := idx.Query(targets, analysis.QueryOptions{
		Pattern: cfg.Analysis.EntrypointPattern,
		Explain: impactExplain,
	})
	if err != nil {
		return err
	}
	return output.Write(cmd.OutOrStdout(), format, report)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// parseTargetLines returns the non-empty, non-comment lines of data.
func parseTargetLines(data []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
