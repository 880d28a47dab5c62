package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hargabyte/phpimpact/internal/analysis"
	"github.com/hargabyte/phpimpact/internal/naming"
)

var project = map[string]string{
	"SalesFacade.php": `<?php

namespace App\Zed\Sales\Business;

class SalesFacade
{
    /**
     * @api
     */
    public function placeOrder()
    {
        $writer = new OrderWriter();
        $writer->write();
    }
}
`,
	"OrderWriter.php": `<?php

namespace App\Zed\Sales\Business;

class OrderWriter
{
    public function write()
    {
    }
}
`,
}

const writeTarget = `\App\Zed\Sales\Business\OrderWriter::write`

func buildIndex(t *testing.T, files map[string]string) *analysis.Index {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, src := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(src), 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	idx, err := analysis.Build(context.Background(), paths, analysis.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func TestToolSchemaRegistry(t *testing.T) {
	for _, name := range AllTools {
		schema, ok := toolSchemaRegistry[name]
		if !ok {
			t.Errorf("toolSchemaRegistry missing tool: %s", name)
			continue
		}
		if schema.Name != name {
			t.Errorf("schema name mismatch: got %q, want %q", schema.Name, name)
		}
		if schema.Description == "" {
			t.Errorf("tool %s has empty description", name)
		}
	}
	if len(toolSchemaRegistry) != len(AllTools) {
		t.Errorf("toolSchemaRegistry has %d tools, want %d", len(toolSchemaRegistry), len(AllTools))
	}

	tests := []struct {
		tool          string
		requiredParam string
	}{
		{"impact", "targets"},
		{"callers", "method"},
	}
	for _, tt := range tests {
		found := false
		for _, p := range toolSchemaRegistry[tt.tool].Parameters {
			if p.Name == tt.requiredParam {
				found = true
				if !p.Required {
					t.Errorf("%s.%s should be required", tt.tool, tt.requiredParam)
				}
			}
		}
		if !found {
			t.Errorf("%s has no parameter %s", tt.tool, tt.requiredParam)
		}
	}
}

func TestNewToolSelection(t *testing.T) {
	s, err := New(nil, Config{Tools: []string{"stats", "impact"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, want := s.ListTools(), []string{"impact", "stats"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListTools() = %v, want %v", got, want)
	}
	if got := len(s.GetToolSchemas()); got != 2 {
		t.Errorf("GetToolSchemas() returned %d schemas", got)
	}
	if _, err := s.CallTool("callers", map[string]any{"method": writeTarget}); err == nil {
		t.Error("unregistered tool was callable")
	}
	if _, err := s.CallTool("stats", nil); !errors.Is(err, ErrNoIndex) {
		t.Errorf("stats without index err = %v", err)
	}

	if _, err := New(nil, Config{Tools: []string{"cx_show"}}); err == nil {
		t.Error("unknown tool accepted")
	}
}

func TestCallToolImpact(t *testing.T) {
	s, err := New(buildIndex(t, project), Config{})
	if err != nil {
		t.Fatal(err)
	}

	out, err := s.CallTool("impact", map[string]any{
		"targets": writeTarget + ", nonsense",
		"explain": true,
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	var report analysis.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	key, _ := naming.ParseTarget(writeTarget)
	eps := report.Impacted[key]
	if len(eps) != 1 || eps[0].Method != "placeOrder" || eps[0].Hops != 1 || !eps[0].IsAPIMethod {
		t.Fatalf("entrypoints = %+v", eps)
	}
	if len(eps[0].Path) != 2 {
		t.Errorf("explain path = %v", eps[0].Path)
	}
	if !reflect.DeepEqual(report.Skipped, []string{"nonsense"}) {
		t.Errorf("skipped = %v", report.Skipped)
	}

	// A pattern that matches nothing yields no entrypoints.
	out, err = s.CallTool("impact", map[string]any{"targets": writeTarget, "entrypoints": "Client$"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "placeOrder") {
		t.Errorf("Client$ pattern matched a facade:\n%s", out)
	}

	if _, err := s.CallTool("impact", map[string]any{"targets": " , "}); err == nil {
		t.Error("empty targets accepted")
	}
	if _, err := s.CallTool("impact", map[string]any{"targets": writeTarget, "entrypoints": "("}); err == nil {
		t.Error("invalid pattern accepted")
	}
}

func TestCallToolCallersAndStats(t *testing.T) {
	s, err := New(buildIndex(t, project), Config{})
	if err != nil {
		t.Fatal(err)
	}

	out, err := s.CallTool("callers", map[string]any{"method": writeTarget})
	if err != nil {
		t.Fatalf("callers: %v", err)
	}
	if !strings.Contains(out, "placeorder") && !strings.Contains(out, "placeOrder") {
		t.Errorf("callers output lacks the facade:\n%s", out)
	}
	if _, err := s.CallTool("callers", map[string]any{"method": "Foo::"}); err == nil {
		t.Error("malformed method accepted")
	}

	out, err = s.CallTool("stats", nil)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var stats struct {
		Counts      analysis.Counts `json:"counts"`
		Fingerprint string          `json:"fingerprint"`
	}
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Counts.Files != 2 || stats.Counts.Methods != 2 || len(stats.Fingerprint) != 16 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSetIndexSwaps(t *testing.T) {
	first := buildIndex(t, project)
	s, err := New(first, Config{})
	if err != nil {
		t.Fatal(err)
	}

	changed := map[string]string{"OrderWriter.php": project["OrderWriter.php"]}
	second := buildIndex(t, changed)
	s.SetIndex(second)
	if s.Index() != second {
		t.Fatal("index not swapped")
	}

	key, _ := naming.ParseTarget(writeTarget)
	out, err := s.CallTool("impact", map[string]any{"targets": writeTarget})
	if err != nil {
		t.Fatal(err)
	}
	var report analysis.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Impacted[key]) != 0 {
		t.Errorf("swapped index still reports %v", report.Impacted[key])
	}
}
