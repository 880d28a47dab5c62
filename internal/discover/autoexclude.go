package discover

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// AutoExcludeResult lists dependency directories found under a project
// root and why each was excluded.
type AutoExcludeResult struct {
	// Directories relative to the root, slash separated.
	Directories []string
	Reasons     map[string]string
}

// Globs returns the directories as "dir/**" exclude patterns.
func (r *AutoExcludeResult) Globs() []string {
	out := make([]string, 0, len(r.Directories))
	for _, d := range r.Directories {
		out = append(out, d+"/**")
	}
	return out
}

// DetectAutoExcludes finds installed dependency trees by their marker
// files: a Composer vendor/ next to composer.json once vendor/autoload.php
// exists, and node_modules/ next to package.json. Nested projects are
// detected too.
func DetectAutoExcludes(root string) *AutoExcludeResult {
	result := &AutoExcludeResult{Reasons: make(map[string]string)}

	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			for _, excluded := range result.Directories {
				if rel == excluded || strings.HasPrefix(rel, excluded+"/") {
					return filepath.SkipDir
				}
			}
			switch d.Name() {
			case "vendor", "node_modules":
				return filepath.SkipDir
			}
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		dir := filepath.ToSlash(filepath.Dir(rel))
		switch d.Name() {
		case "composer.json":
			result.add(root, dir, "vendor", "autoload.php", "PHP Composer dependencies (vendor/autoload.php detected)")
		case "package.json":
			result.add(root, dir, "node_modules", "", "Node.js dependencies (package.json detected)")
		}
		return nil
	})

	return result
}

// add records dir/name when it exists and, if marker is set, contains
// marker.
func (r *AutoExcludeResult) add(root, dir, name, marker, reason string) {
	target := name
	if dir != "." {
		target = dir + "/" + name
	}
	if slices.Contains(r.Directories, target) {
		return
	}
	abs := filepath.Join(root, filepath.FromSlash(target))
	check := abs
	if marker != "" {
		check = filepath.Join(abs, marker)
	}
	if _, err := os.Stat(check); err != nil {
		return
	}
	r.Directories = append(r.Directories, target)
	r.Reasons[target] = reason
}
