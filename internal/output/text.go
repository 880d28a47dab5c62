package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/hargabyte/phpimpact/internal/analysis"
)

const (
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
	ansiReset = "\x1b[0m"
)

// TextFormatter writes a compact line oriented rendering of command
// results.
type TextFormatter struct {
	color bool
}

// NewTextFormatter creates a text formatter, optionally with ANSI
// highlighting.
func NewTextFormatter(color bool) *TextFormatter {
	return &TextFormatter{color: color}
}

// Format formats a value as text.
func (f *TextFormatter) Format(v any) (string, error) {
	return formatString(f, v)
}

// FormatToWriter writes text output to a writer.
func (f *TextFormatter) FormatToWriter(w io.Writer, v any) error {
	switch v := v.(type) {
	case *analysis.Report:
		return f.writeReport(w, v)
	case *IndexOutput:
		return f.writeIndex(w, v)
	case *GraphOutput:
		return f.writeGraph(w, v)
	default:
		return fmt.Errorf("text formatter does not support type %T", v)
	}
}

func (f *TextFormatter) bold(s string) string {
	if !f.color {
		return s
	}
	return ansiBold + s + ansiReset
}

func (f *TextFormatter) dim(s string) string {
	if !f.color {
		return s
	}
	return ansiDim + s + ansiReset
}

func (f *TextFormatter) writeReport(w io.Writer, r *analysis.Report) error {
	ew := &errWriter{w: w}
	for _, target := range r.Targets {
		eps := r.Impacted[target]
		ew.printf("%s (%d entrypoints)\n", f.bold(string(target)), len(eps))
		for _, ep := range eps {
			var flags []string
			if ep.IsAPIMethod {
				flags = append(flags, "api")
			}
			if ep.IsDeprecated {
				flags = append(flags, "deprecated")
			}
			line := fmt.Sprintf("  %d  %s", ep.Hops, ep.Key)
			if len(flags) > 0 {
				line += " [" + strings.Join(flags, ",") + "]"
			}
			if ep.File != "" {
				line += "  " + f.dim(fmt.Sprintf("%s:%d", ep.File, ep.Line))
			}
			ew.printf("%s\n", line)
			if len(ep.Path) > 0 {
				parts := make([]string, len(ep.Path))
				for i, k := range ep.Path {
					parts[i] = string(k)
				}
				ew.printf("     %s\n", f.dim(strings.Join(parts, " -> ")))
			}
		}
	}
	for _, s := range r.Skipped {
		ew.printf("skipped invalid target %q\n", s)
	}
	c := r.Counts
	ew.printf("%s\n", f.dim(fmt.Sprintf("files=%d skipped=%d classes=%d methods=%d nodes=%d edges=%d pattern=%s",
		c.Files, c.Skipped, c.Classes, c.Methods, c.Nodes, c.Edges, r.EntrypointPattern)))
	return ew.err
}

func (f *TextFormatter) writeIndex(w io.Writer, o *IndexOutput) error {
	ew := &errWriter{w: w}
	c := o.Counts
	ew.printf("files:           %d\n", c.Files)
	ew.printf("skipped:         %d\n", c.Skipped)
	ew.printf("classes:         %d (%d interfaces)\n", c.Classes, o.Interfaces)
	ew.printf("methods:         %d\n", c.Methods)
	ew.printf("factory methods: %d\n", o.Factories)
	ew.printf("nodes:           %d\n", c.Nodes)
	ew.printf("edges:           %d\n", c.Edges)
	ew.printf("interface links: %d\n", o.InterfaceLinks)
	ew.printf("fingerprint:     %s\n", o.Fingerprint)
	for _, s := range o.Skipped {
		ew.printf("  %s %s: %s\n", f.dim("skip"), s.Path, s.Error)
	}
	if o.Export != nil {
		ew.printf("exported to %s (run %s)\n", o.Export.Path, o.Export.RunID)
	}
	return ew.err
}

func (f *TextFormatter) writeGraph(w io.Writer, g *GraphOutput) error {
	ew := &errWriter{w: w}
	header := string(g.Key)
	switch {
	case !g.Known:
		header += " (not in graph)"
	case g.File != "":
		header += "  " + f.dim(fmt.Sprintf("%s:%d", g.File, g.Line))
	}
	ew.printf("%s\n", f.bold(header))
	ew.printf("callers:\n")
	for _, e := range g.Callers {
		ew.printf("  <- %-14s %s\n", e.Kind, e.Key)
	}
	ew.printf("callees:\n")
	for _, e := range g.Callees {
		ew.printf("  -> %-14s %s\n", e.Kind, e.Key)
	}
	if g.Mermaid != "" {
		ew.printf("\n%s", g.Mermaid)
	}
	return ew.err
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
