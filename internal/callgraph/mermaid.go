package callgraph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/symbols"
)

// MermaidOptions configures Mermaid diagram generation.
type MermaidOptions struct {
	MaxNodes  int    // Collapse to modules above this many nodes (default: 30)
	Direction string // "TD" or "LR"
	Collapse  bool
}

// DefaultMermaidOptions returns the options used by the graph command.
func DefaultMermaidOptions() *MermaidOptions {
	return &MermaidOptions{MaxNodes: 30, Direction: "LR", Collapse: true}
}

var edgeArrows = map[EdgeKind]string{
	EdgeStatic:        "==>",
	EdgeIntra:         "-->",
	EdgeThisProp:      "-->",
	EdgeMethod:        "-->",
	EdgeFactoryReturn: "-->",
	EdgeIfaceImpl:     "-.->",
	EdgeInterfaceLink: "-.->",
}

// GenerateMermaid renders edges as a flowchart. Nodes come from g so that
// labels use display names; edges whose endpoints are missing from g are
// still drawn with their keys as labels.
func GenerateMermaid(g *Graph, edges []Edge, opts *MermaidOptions) string {
	if opts == nil {
		opts = DefaultMermaidOptions()
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = 30
	}
	if opts.Direction != "TD" && opts.Direction != "LR" {
		opts.Direction = "LR"
	}

	keys := make(map[naming.Key]struct{})
	for _, e := range edges {
		keys[e.From] = struct{}{}
		keys[e.To] = struct{}{}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "flowchart %s\n", opts.Direction)

	if opts.Collapse && len(keys) > opts.MaxNodes {
		writeCollapsed(&sb, g, edges)
		return sb.String()
	}

	sorted := make([]naming.Key, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, k := range sorted {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", sanitizeMermaidID(string(k)), escapeMermaidString(nodeLabel(g, k)))
	}
	for _, e := range edges {
		fmt.Fprintf(&sb, "    %s %s|%s| %s\n",
			sanitizeMermaidID(string(e.From)), arrow(e.Kind), e.Kind, sanitizeMermaidID(string(e.To)))
	}
	return sb.String()
}

// writeCollapsed draws one node per module with deduplicated module edges.
func writeCollapsed(sb *strings.Builder, g *Graph, edges []Edge) {
	moduleOf := func(k naming.Key) string {
		if n, ok := g.Node(k); ok {
			if m := symbols.ModuleName(n.Class); m != "" {
				return m
			}
		}
		return "root"
	}

	counts := make(map[string]map[naming.Key]struct{})
	for _, e := range edges {
		for _, k := range []naming.Key{e.From, e.To} {
			m := moduleOf(k)
			if counts[m] == nil {
				counts[m] = make(map[naming.Key]struct{})
			}
			counts[m][k] = struct{}{}
		}
	}

	modules := make([]string, 0, len(counts))
	for m := range counts {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		fmt.Fprintf(sb, "    %s[\"%s (%d)\"]\n", sanitizeMermaidID(m), escapeMermaidString(m), len(counts[m]))
	}

	seen := make(map[string]bool)
	for _, e := range edges {
		from, to := moduleOf(e.From), moduleOf(e.To)
		if from == to || seen[from+"->"+to] {
			continue
		}
		seen[from+"->"+to] = true
		fmt.Fprintf(sb, "    %s --> %s\n", sanitizeMermaidID(from), sanitizeMermaidID(to))
	}
}

func nodeLabel(g *Graph, k naming.Key) string {
	if n, ok := g.Node(k); ok {
		return n.Class.Short() + "::" + n.Method
	}
	return string(k)
}

func arrow(kind EdgeKind) string {
	if a, ok := edgeArrows[kind]; ok {
		return a
	}
	return "-->"
}

var mermaidIDRegex = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func sanitizeMermaidID(id string) string {
	sanitized := mermaidIDRegex.ReplaceAllString(id, "_")
	if len(sanitized) > 0 && sanitized[0] >= '0' && sanitized[0] <= '9' {
		sanitized = "_" + sanitized
	}
	if sanitized == "" {
		sanitized = "_empty"
	}
	return sanitized
}

func escapeMermaidString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "#quot;")
	s = strings.ReplaceAll(s, "<", "#lt;")
	s = strings.ReplaceAll(s, ">", "#gt;")
	return s
}
