package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// helpAgentsCmd represents the help-agents command
var helpAgentsCmd = &cobra.Command{
	Use:   "help-agents",
	Short: "Output agent-optimized command reference",
	Long: `Output a concise, token-efficient command reference for AI agents.

Examples:
  phpimpact help-agents                 # Markdown output (default)
  phpimpact help-agents --format json   # JSON output for parsing`,
	Args: cobra.NoArgs,
	RunE: runHelpAgents,
}

func init() {
	rootCmd.AddCommand(helpAgentsCmd)
}

func runHelpAgents(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		data, err := json.MarshalIndent(agentReference, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err := fmt.Fprint(out, agentReferenceMarkdown)
	return err
}

type agentCommand struct {
	Purpose string   `json:"purpose"`
	Usage   string   `json:"usage"`
	Flags   []string `json:"flags,omitempty"`
}

var agentReference = struct {
	Commands    map[string]agentCommand `json:"commands"`
	MCPTools    []string                `json:"mcp_tools"`
	GlobalFlags map[string]string       `json:"global_flags"`
	TargetForm  string                  `json:"target_form"`
}{
	Commands: map[string]agentCommand{
		"impact": {
			Purpose: "Entrypoints affected by changing methods",
			Usage:   "phpimpact impact <Class::method>... | --targets-file f | --diff patch",
			Flags:   []string{"--targets-file", "--diff", "--diff-root", "--explain", "--entrypoints", "--no-interfaces", "--root", "--include", "--exclude"},
		},
		"graph": {
			Purpose: "Direct callers and callees of one method with edge kinds",
			Usage:   "phpimpact graph <Class::method>",
			Flags:   []string{"--mermaid", "--direction"},
		},
		"index": {
			Purpose: "Build the index, print counts, optionally export to SQLite",
			Usage:   "phpimpact index [--export db]",
			Flags:   []string{"--export"},
		},
		"serve": {
			Purpose: "MCP stdio server keeping the index in memory",
			Usage:   "phpimpact serve [--watch]",
			Flags:   []string{"--watch", "--debounce", "--tools", "--timeout", "--status", "--stop", "--list-tools"},
		},
		"init": {
			Purpose: "Write .phpimpact/config.yaml",
			Usage:   "phpimpact init [--force]",
		},
	},
	MCPTools: []string{"impact", "callers", "stats"},
	GlobalFlags: map[string]string{
		"--format":   "yaml|json|text (default: yaml)",
		"--config":   "path to config.yaml",
		"--verbose":  "debug logging on stderr",
		"--log-file": "write logs to a file",
	},
	TargetForm: `\Namespace\Class::method (leading backslash optional, case-insensitive)`,
}

const agentReferenceMarkdown = `# phpimpact Command Reference for AI Agents

## Before changing PHP methods

` + "```bash" + `
# Which facades/clients/services/plugins does this change reach?
phpimpact impact '\App\Zed\Sales\Business\Model\Writer::write' --format json

# Same question for uncommitted work
git diff | phpimpact impact --diff - --format json

# Why is an entrypoint affected?
phpimpact impact --explain 'App\Repo::save'
` + "```" + `

## Exploring the call graph

` + "```bash" + `
phpimpact graph 'App\Repo::save' --format text
phpimpact graph 'App\Repo::save' --mermaid
` + "```" + `

## Long sessions

` + "```bash" + `
phpimpact serve --watch     # MCP tools: impact, callers, stats
` + "```" + `

Targets are written Class::method. Results list each entrypoint with its
hop distance, module, description and @api/@deprecated flags.
`
