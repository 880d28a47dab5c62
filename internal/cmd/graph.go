package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hargabyte/phpimpact/internal/callgraph"
	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/output"
)

var graphCmd = &cobra.Command{
	Use:   "graph <Class::method>",
	Short: "Show the callers and callees of a method",
	Long: `Show the direct neighbours of one method in the call graph together with
the kind of each edge:

  static          Class::method() calls
  intra           $this->method() within a class
  this-prop       calls on typed $this->property values
  method          calls on typed locals and parameters
  factory-return  $this->getFactory()->createX()->method() chains
  iface-impl      calls resolved through an implemented interface
  iface-link      interface method to implementation (reverse only)

With --mermaid a flowchart of the neighbourhood is added to the output.`,
	Example: `  phpimpact graph '\Pyz\Zed\Checkout\Business\CheckoutFacade::checkout'
  phpimpact graph 'App\Repo::save' --format text --mermaid`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

var (
	graphMermaid   bool
	graphDirection string
)

func init() {
	rootCmd.AddCommand(graphCmd)
	addSourceFlags(graphCmd)
	graphCmd.Flags().BoolVar(&graphMermaid, "mermaid", false, "Include a Mermaid flowchart")
	graphCmd.Flags().StringVar(&graphDirection, "direction", "LR", "Mermaid direction (LR|TD)")
}

func runGraph(cmd *cobra.Command, args []string) error {
	key, err := naming.ParseTarget(args[0])
	if err != nil {
		return err
	}
	if graphDirection != "LR" && graphDirection != "TD" {
		return fmt.Errorf("invalid direction %q (expected LR or TD)", graphDirection)
	}

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

	out := output.NewGraphOutput(key, idx.Graph, idx.Table)
	if !out.Known {
		logger.Warn("graph.unknown_method", "key", key)
	}
	if graphMermaid {
		var edges []callgraph.Edge
		edges = append(edges, idx.Graph.CallerEdges(key)...)
		edges = append(edges, idx.Graph.Callees(key)...)
		opts := callgraph.DefaultMermaidOptions()
		opts.Direction = graphDirection
		out.Mermaid = callgraph.GenerateMermaid(idx.Graph, edges, opts)
	}
	return output.Write(cmd.OutOrStdout(), format, out)
}
