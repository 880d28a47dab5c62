package discover

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("<?php\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func rel(t *testing.T, root string, files []string) []string {
	t.Helper()
	abs, err := filepath.Abs(root)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		r, err := filepath.Rel(abs, f)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, filepath.ToSlash(r))
	}
	return out
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, name string
		want          bool
	}{
		{"src/**/*.php", "src/A.php", true},
		{"src/**/*.php", "src/Zed/Checkout/Business/CheckoutFacade.php", true},
		{"src/**/*.php", "src/readme.md", false},
		{"src/**/*.php", "lib/A.php", false},
		{"vendor/**", "vendor/spryker/x.php", true},
		{"vendor/**", "vendor", true},
		{"**/Tests/**", "src/Zed/Tests/FooTest.php", true},
		{"*.php", "A.php", true},
		{"*.php", "src/A.php", false},
		{"**", "anything/at/all", true},
	}
	for _, tt := range tests {
		if got := Match(tt.pattern, tt.name); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
		}
	}
}

func TestFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"src/Zed/Checkout/CheckoutFacade.php",
		"src/Client/Cart/CartClient.php",
		"src/Zed/Checkout/notes.txt",
		"src/.hidden/Secret.php",
		"src/Zed/Tests/CheckoutTest.php",
		"vendor/spryker/Lib.php",
		"lib/Other.php",
	)

	files, err := Files(root, nil, []string{"vendor/**", "**/Tests/**"})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	got := rel(t, root, files)
	want := []string{"src/Client/Cart/CartClient.php", "src/Zed/Checkout/CheckoutFacade.php"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Files() = %v, want %v", got, want)
	}
	for _, f := range files {
		if !filepath.IsAbs(f) {
			t.Errorf("path %q is not absolute", f)
		}
	}

	files, err = Files(root, []string{"**/*.php"}, DefaultExclude)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	got = rel(t, root, files)
	want = []string{"lib/Other.php", "src/Client/Cart/CartClient.php", "src/Zed/Checkout/CheckoutFacade.php", "src/Zed/Tests/CheckoutTest.php"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Files(**/*.php) = %v, want %v", got, want)
	}
}

func TestFilesEmptyAndInvalidRoot(t *testing.T) {
	root := t.TempDir()
	files, err := Files(root, nil, nil)
	if err != nil || len(files) != 0 {
		t.Errorf("empty root = %v, %v", files, err)
	}

	file := filepath.Join(root, "x.php")
	writeFiles(t, root, "x.php")
	if _, err := Files(file, nil, nil); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("file root err = %v", err)
	}
	if _, err := Files(filepath.Join(root, "missing"), nil, nil); err == nil {
		t.Error("missing root should fail")
	}
}

func TestDetectAutoExcludes(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"composer.json",
		"vendor/autoload.php",
		"tools/composer.json",
		"tools/vendor/lib.php",
		"frontend/package.json",
		"frontend/node_modules/x/index.js",
	)

	result := DetectAutoExcludes(root)

	want := []string{"vendor", "frontend/node_modules"}
	if !reflect.DeepEqual(result.Directories, want) {
		t.Errorf("Directories = %v, want %v", result.Directories, want)
	}
	if result.Reasons["vendor"] == "" {
		t.Error("missing reason for vendor")
	}
	if got := result.Globs(); !reflect.DeepEqual(got, []string{"vendor/**", "frontend/node_modules/**"}) {
		t.Errorf("Globs() = %v", got)
	}
}
