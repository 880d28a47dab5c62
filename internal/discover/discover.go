// Package discover resolves the file set of an analysis run from include
// and exclude globs.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Default globs, relative to the source root.
var (
	DefaultInclude = []string{"src/**/*.php"}
	DefaultExclude = []string{"vendor/**"}
)

// ErrNotDirectory is returned when the root is not a directory.
var ErrNotDirectory = errors.New("source root is not a directory")

// Files returns the absolute paths of files under root matching any
// include glob and no exclude glob, in lexical order. Globs use forward
// slashes; "**" matches any number of path segments. Hidden directories
// are not entered.
func Files(root string, include, exclude []string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if _, err := path.Match(strings.ReplaceAll(p, "**", "*"), ""); err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", p, err)
		}
	}

	var files []string
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p == abs {
			return nil
		}
		rel, err := filepath.Rel(abs, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || excludesDir(exclude, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if matchAny(include, rel) && !matchAny(exclude, rel) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", abs, err)
	}
	return files, nil
}

// Match reports whether the slash-separated relative path name matches
// pattern.
func Match(pattern, name string) bool {
	return matchSegments(splitPath(pattern), splitPath(name))
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if Match(p, rel) {
			return true
		}
	}
	return false
}

// excludesDir reports whether everything below dir is excluded, either by
// a pattern naming the directory itself or one ending in "/**".
func excludesDir(patterns []string, dir string) bool {
	for _, p := range patterns {
		if Match(p, dir) {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, "/**"); ok && Match(prefix, dir) {
			return true
		}
	}
	return false
}

func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(name); i++ {
				if matchSegments(rest, name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, _ := path.Match(pattern[0], name[0]); !ok {
			return false
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0
}

func splitPath(p string) []string {
	p = strings.Trim(filepath.ToSlash(p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
