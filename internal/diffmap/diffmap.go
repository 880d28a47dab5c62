// Package diffmap turns a unified diff into impact targets: the declared
// methods whose bodies contain changed lines.
package diffmap

import (
	"fmt"
	"path/filepath"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/symbols"
)

// LineRange is an inclusive span of new-file lines.
type LineRange struct {
	Start int
	End   int
}

// ChangedFile is one file of a diff with the new-file lines it touches.
type ChangedFile struct {
	// Path is the new path with any a/ or b/ prefix removed.
	Path    string
	Deleted bool
	Ranges  []LineRange
}

// Parse reads a unified (multi-file) diff. Removed lines are mapped to the
// position they were removed at, so a deletion inside a method still
// touches that method.
func Parse(patch []byte) ([]ChangedFile, error) {
	if len(strings.TrimSpace(string(patch))) == 0 {
		return nil, nil
	}
	fileDiffs, err := godiff.ParseMultiFileDiff(patch)
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}

	out := make([]ChangedFile, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		cf := ChangedFile{Path: cleanPath(fd.NewName)}
		if fd.NewName == "/dev/null" || fd.NewName == "" {
			cf.Deleted = true
			cf.Path = cleanPath(fd.OrigName)
		}
		if !cf.Deleted {
			for _, h := range fd.Hunks {
				cf.Ranges = append(cf.Ranges, hunkRanges(h)...)
			}
		}
		out = append(out, cf)
	}
	return out, nil
}

// hunkRanges walks the hunk body and groups touched new-file lines into
// contiguous ranges.
func hunkRanges(h *godiff.Hunk) []LineRange {
	var (
		out     []LineRange
		newLine = int(h.NewStartLine)
		cur     *LineRange
	)
	touch := func(start, end int) {
		if start < 1 {
			start = 1
		}
		if cur != nil && start <= cur.End+1 {
			if end > cur.End {
				cur.End = end
			}
			return
		}
		out = append(out, LineRange{Start: start, End: end})
		cur = &out[len(out)-1]
	}

	body := strings.TrimSuffix(string(h.Body), "\n")
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			newLine++
			continue
		}
		switch line[0] {
		case '+':
			touch(newLine, newLine)
			newLine++
		case '-':
			// The removal sits between newLine-1 and newLine.
			touch(newLine-1, newLine)
		case '\\':
		default:
			newLine++
		}
	}
	return out
}

func cleanPath(p string) string {
	if p == "" || p == "/dev/null" {
		return p
	}
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		return p[2:]
	}
	return p
}

// MethodIndex finds declared methods by source position.
type MethodIndex interface {
	MethodsAt(file string, start, end int) []*symbols.Method
}

// Targets maps changed PHP files, resolved against root, to the keys of
// the methods they touch, in diff order without duplicates. Deleted files
// contribute nothing.
func Targets(changes []ChangedFile, methods MethodIndex, root string) []naming.Key {
	seen := make(map[naming.Key]struct{})
	var out []naming.Key
	for _, cf := range changes {
		if cf.Deleted || !strings.HasSuffix(strings.ToLower(cf.Path), ".php") {
			continue
		}
		path := filepath.FromSlash(cf.Path)
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		for _, r := range cf.Ranges {
			for _, m := range methods.MethodsAt(path, r.Start, r.End) {
				if _, ok := seen[m.Key]; ok {
					continue
				}
				seen[m.Key] = struct{}{}
				out = append(out, m.Key)
			}
		}
	}
	return out
}
