package analysis

import (
	"fmt"

	"github.com/hargabyte/phpimpact/internal/impact"
	"github.com/hargabyte/phpimpact/internal/naming"
)

// QueryOptions controls an impact query.
type QueryOptions struct {
	// Pattern selects entrypoint classes; "" means impact.DefaultPattern.
	Pattern string
	Explain bool
}

// Report is the result of an impact query.
type Report struct {
	EntrypointPattern string                             `json:"entrypoint_pattern" yaml:"entrypoint_pattern"`
	Targets           []naming.Key                       `json:"targets" yaml:"targets"`
	Impacted          map[naming.Key][]impact.Entrypoint `json:"impacted" yaml:"impacted"`
	Skipped           []string                           `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Counts            Counts                             `json:"counts" yaml:"counts"`
}

// Finder returns an impact finder over the index.
func (ix *Index) Finder(opts QueryOptions) (*impact.Finder, error) {
	var fopts []impact.Option
	if opts.Explain {
		fopts = append(fopts, impact.WithExplain())
	}
	return impact.NewFinder(ix.Graph, ix.Table, opts.Pattern, fopts...)
}

// Query finds the entrypoints of every target. Targets that are not of the
// form Class::method are logged and listed in Report.Skipped. Repeated
// targets are answered once.
func (ix *Index) Query(targets []string, opts QueryOptions) (*Report, error) {
	finder, err := ix.Finder(opts)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	report := &Report{
		EntrypointPattern: finder.Pattern(),
		Targets:           make([]naming.Key, 0, len(targets)),
		Impacted:          make(map[naming.Key][]impact.Entrypoint, len(targets)),
		Counts:            ix.Counts(),
	}
	for _, raw := range targets {
		key, err := naming.ParseTarget(raw)
		if err != nil {
			ix.logger.Warn("impact.invalid_target", "target", raw, "error", err)
			report.Skipped = append(report.Skipped, raw)
			continue
		}
		if _, done := report.Impacted[key]; done {
			continue
		}
		report.Targets = append(report.Targets, key)
		report.Impacted[key] = finder.Find(key)
	}
	return report, nil
}
