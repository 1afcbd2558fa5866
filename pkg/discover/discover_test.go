package discover

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func relPaths(t *testing.T, root string, opts Options) []string {
	t.Helper()
	files, err := Discover([]string{root}, opts)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	var out []string
	for i, f := range files {
		if f.ID != i {
			t.Errorf("file %s has id %d; want %d", f.Path, f.ID, i)
		}
		rel, err := filepath.Rel(root, f.Path)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestDiscoverSkipsBuiltinDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"alice/main.go":           "package main",
		"bob/main.go":             "package main",
		"bob/vendor/lib/lib.go":   "package lib",
		"node_modules/x/index.js": "module.exports = 1",
		".git/HEAD":               "ref: refs/heads/main",
		"carol/api.pb.go":         "package api",
		"carol/solution.py":       "print(1)",
		"dave/image.bin":          "\x00\x01\x02",
	})

	got := relPaths(t, root, Options{})
	want := []string{"alice/main.go", "bob/main.go", "carol/solution.py"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("files = %v; want %v", got, want)
	}
}

func TestDiscoverIncludeExclude(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a/one.go":       "package a",
		"a/one_test.go":  "package a",
		"b/two.py":       "x = 1",
		"b/deep/tree.go": "package deep",
	})

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"include go", Options{Include: []string{"**/*.go"}}, []string{"a/one.go", "a/one_test.go", "b/deep/tree.go"}},
		{"exclude tests", Options{Include: []string{"**/*.go"}, Exclude: []string{"**/*_test.go"}}, []string{"a/one.go", "b/deep/tree.go"}},
		{"exclude dir", Options{Exclude: []string{"b/**"}}, []string{"a/one.go", "a/one_test.go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relPaths(t, root, tt.opts); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("files = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestDiscoverIgnoreFileAndSize(t *testing.T) {
	root := writeTree(t, map[string]string{
		IgnoreFileName:     "# starter code\nstarter/*\n!starter/keep.go\n",
		"starter/skel.go":  "package starter",
		"starter/keep.go":  "package starter",
		"student/big.go":   "package student // padded to exceed the limit",
		"student/small.go": "package s",
	})

	got := relPaths(t, root, Options{Include: []string{"**/*.go"}, MaxFileSize: 20})
	want := []string{"starter/keep.go", "student/small.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("files = %v; want %v", got, want)
	}
}

func TestDiscoverExplicitFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"vendor/x.go": "package x",
		"y.go":        "package y",
	})
	explicit := filepath.Join(root, "vendor", "x.go")

	files, err := Discover([]string{filepath.Join(root, "y.go"), explicit, explicit}, Options{Exclude: []string{"**"}})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %d; want 2 (explicit files bypass filters, duplicates collapse)", len(files))
	}
	if files[0].Path != explicit || files[0].Content != "package x" {
		t.Errorf("files[0] = %+v", files[0])
	}
}

func TestDiscoverErrors(t *testing.T) {
	if _, err := Discover([]string{filepath.Join(t.TempDir(), "missing")}, Options{}); err == nil {
		t.Error("missing root should fail")
	}
	if _, err := Discover([]string{t.TempDir()}, Options{Include: []string{"[unclosed"}}); err == nil {
		t.Error("invalid glob should fail")
	}
}

func TestMatcherRules(t *testing.T) {
	m := &Matcher{}
	m.Add("*.pb.go", "!important.pb.go", "/rootonly", "docs/*.md", "build/")

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"foo.pb.go", false, true},
		{"a/b/foo.pb.go", false, true},
		{"a/important.pb.go", false, false},
		{"rootonly", false, true},
		{"sub/rootonly", false, false},
		{"docs/readme.md", false, true},
		{"x/docs/readme.md", false, false},
		{"build", true, true},
		{"build", false, false},
		{"a/build/out.go", false, true},
	}
	for _, tt := range tests {
		if got := m.Ignored(tt.path, tt.isDir); got != tt.want {
			t.Errorf("Ignored(%q, %v) = %v; want %v", tt.path, tt.isDir, got, tt.want)
		}
	}
}
