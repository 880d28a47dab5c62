package output

import (
	"github.com/hargabyte/phpimpact/internal/analysis"
	"github.com/hargabyte/phpimpact/internal/callgraph"
	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/symbols"
)

// IndexOutput describes a finished build for the index command.
type IndexOutput struct {
	Counts         analysis.Counts        `yaml:"counts" json:"counts"`
	Interfaces     int                    `yaml:"interfaces" json:"interfaces"`
	Factories      int                    `yaml:"factory_methods" json:"factory_methods"`
	InterfaceLinks int                    `yaml:"interface_links" json:"interface_links"`
	Fingerprint    string                 `yaml:"fingerprint" json:"fingerprint"`
	Skipped        []analysis.SkippedFile `yaml:"skipped,omitempty" json:"skipped,omitempty"`

	// Export is set when the index was written to a database.
	Export *ExportInfo `yaml:"export,omitempty" json:"export,omitempty"`
}

// ExportInfo identifies a database export.
type ExportInfo struct {
	Path  string `yaml:"path" json:"path"`
	RunID string `yaml:"run_id" json:"run_id"`
}

// GraphOutput is the neighbourhood of one method for the graph command.
type GraphOutput struct {
	Key        naming.Key         `yaml:"key" json:"key"`
	Known      bool               `yaml:"known" json:"known"`
	Visibility symbols.Visibility `yaml:"visibility,omitempty" json:"visibility,omitempty"`
	File       string             `yaml:"file,omitempty" json:"file,omitempty"`
	Line       int                `yaml:"line,omitempty" json:"line,omitempty"`
	Callers    []EdgeOutput       `yaml:"callers" json:"callers"`
	Callees    []EdgeOutput       `yaml:"callees" json:"callees"`
	Mermaid    string             `yaml:"mermaid,omitempty" json:"mermaid,omitempty"`
}

// EdgeOutput is one neighbour of a method.
type EdgeOutput struct {
	Key  naming.Key         `yaml:"key" json:"key"`
	Kind callgraph.EdgeKind `yaml:"kind" json:"kind"`
}

// NewGraphOutput collects the callers and callees of key.
func NewGraphOutput(key naming.Key, g *callgraph.Graph, t *symbols.Table) *GraphOutput {
	out := &GraphOutput{Key: key, Callers: []EdgeOutput{}, Callees: []EdgeOutput{}}
	if n, ok := g.Node(key); ok {
		out.Known = true
		out.Visibility = n.Visibility
	}
	if m, ok := t.Method(key); ok {
		out.File = m.File
		out.Line = m.StartLine
	}
	for _, e := range g.CallerEdges(key) {
		out.Callers = append(out.Callers, EdgeOutput{Key: e.From, Kind: e.Kind})
	}
	for _, e := range g.Callees(key) {
		out.Callees = append(out.Callees, EdgeOutput{Key: e.To, Kind: e.Kind})
	}
	return out
}
