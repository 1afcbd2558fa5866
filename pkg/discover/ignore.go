package discover

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFileName is read from each root directory when present.
const IgnoreFileName = ".winnowignore"

// BuiltinIgnores are applied even when no ignore file exists. They skip
// version control, dependency and build output directories, plus generated
// code and lock files.
var BuiltinIgnores = []string{
	// Version control
	".git/",
	".svn/",
	".hg/",

	// Dependencies and caches
	"node_modules/",
	"vendor/",
	"__pycache__/",
	".venv/",
	"venv/",
	".tox/",
	".mypy_cache/",
	".pytest_cache/",
	"*.egg-info/",
	"site-packages/",
	".cache/",
	".gradle/",
	".bundle/",

	// Build output
	"dist/",
	"build/",
	"target/",
	"out/",
	"bin/",
	"obj/",
	"coverage/",
	".next/",
	".nuxt/",

	// Editors
	".idea/",
	".vscode/",
	".DS_Store",

	// Generated code
	"*.pb.go",
	"*_generated.go",
	"*.gen.go",
	"*.min.js",

	"*.lock",
}

// Matcher applies gitignore-style rules to slash-separated paths relative
// to a root. The last matching rule wins; "!" negates.
type Matcher struct {
	rules []rule
}

type rule struct {
	// glob is a doublestar pattern matched against the relative path.
	glob     string
	negation bool
	dirOnly  bool
}

// NewMatcher creates a Matcher from the built-in rules followed by the
// root's ignore file, if any.
func NewMatcher(root string) (*Matcher, error) {
	m := NewDefaultMatcher()
	if err := m.LoadFile(filepath.Join(root, IgnoreFileName)); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return m, nil
}

// NewDefaultMatcher creates a Matcher with only the built-in rules.
func NewDefaultMatcher() *Matcher {
	m := &Matcher{}
	m.Add(BuiltinIgnores...)
	return m
}

// Add appends gitignore-style patterns. Later patterns take precedence.
func (m *Matcher) Add(patterns ...string) {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		m.rules = append(m.rules, parseRule(p))
	}
}

// LoadFile appends the patterns of an ignore file.
func (m *Matcher) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.Add(scanner.Text())
	}
	return scanner.Err()
}

// Ignored reports whether a relative path is ignored. A file inside an
// ignored directory is ignored unless a negation names it.
func (m *Matcher) Ignored(path string, isDir bool) bool {
	path = strings.TrimSuffix(filepath.ToSlash(path), "/")
	if path == "" || path == "." {
		return false
	}

	ignored, matched := false, false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if ok, _ := doublestar.Match(r.glob, path); ok {
			ignored = !r.negation
			matched = true
		}
	}
	if ignored || matched {
		return ignored
	}

	if !isDir {
		for dir := parentDir(path); dir != ""; dir = parentDir(dir) {
			if m.Ignored(dir, true) {
				return true
			}
		}
	}
	return false
}

// parseRule turns a gitignore pattern into a doublestar glob. Patterns
// without an inner slash match at any depth; a leading slash anchors to
// the root.
func parseRule(pattern string) rule {
	var r rule
	if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	switch {
	case strings.HasPrefix(pattern, "/"):
		pattern = strings.TrimPrefix(pattern, "/")
	case strings.HasPrefix(pattern, "**/"):
	case !strings.Contains(pattern, "/"):
		pattern = "**/" + pattern
	}
	r.glob = pattern
	return r
}

func parentDir(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}
