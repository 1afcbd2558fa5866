// Package grammar provides the tree-sitter languages compiled into winnow.
//
// Grammars are linked via CGO at build time and loaded lazily on first use.
// Languages are looked up by name ("go", "python", ...) or by file extension.
package grammar

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Provider returns an unsafe.Pointer to a TSLanguage.
// This is the signature exposed by tree-sitter grammar Go bindings.
type Provider func() unsafe.Pointer

// ErrGrammarNotFound is returned when a grammar is not compiled in.
type ErrGrammarNotFound struct {
	Name string
}

func (e *ErrGrammarNotFound) Error() string {
	return fmt.Sprintf("grammar %q not found", e.Name)
}

// Registry manages the compiled-in grammars.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	loaded    map[string]*tree_sitter.Language
	exts      map[string]string
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry with all compiled-in grammars.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with all compiled-in grammars.
func NewRegistry() *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		loaded:    make(map[string]*tree_sitter.Language),
		exts:      make(map[string]string),
	}
	registerBuiltins(r)
	return r
}

// Register adds a grammar and the file extensions it handles.
func (r *Registry) Register(name string, provider Provider, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
	for _, ext := range exts {
		r.exts[strings.ToLower(ext)] = name
	}
}

// Load returns the Language for a grammar, creating it on first access.
func (r *Registry) Load(name string) (*tree_sitter.Language, error) {
	r.mu.RLock()
	if lang, ok := r.loaded[name]; ok {
		r.mu.RUnlock()
		return lang, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if lang, ok := r.loaded[name]; ok {
		return lang, nil
	}

	provider, ok := r.providers[name]
	if !ok {
		return nil, &ErrGrammarNotFound{Name: name}
	}
	lang := tree_sitter.NewLanguage(provider())
	if lang == nil {
		return nil, &ErrGrammarNotFound{Name: name}
	}
	r.loaded[name] = lang
	return lang, nil
}

// Has returns true if the grammar is compiled in.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Names returns the sorted names of all compiled-in grammars.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LangForPath returns the grammar name for a file path based on its
// extension, or "" if no grammar handles it.
func (r *Registry) LangForPath(path string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exts[strings.ToLower(filepath.Ext(path))]
}

func registerBuiltins(r *Registry) {
	r.Register("go", tree_sitter_go.Language, ".go")
	// TypeScript exposes LanguageTypescript and LanguageTSX, not Language.
	r.Register("typescript", func() unsafe.Pointer {
		return tree_sitter_typescript.LanguageTypescript()
	}, ".ts", ".mts", ".cts")
	r.Register("tsx", func() unsafe.Pointer {
		return tree_sitter_typescript.LanguageTSX()
	}, ".tsx")
	r.Register("javascript", tree_sitter_javascript.Language, ".js", ".jsx", ".mjs", ".cjs")
	r.Register("python", tree_sitter_python.Language, ".py", ".pyw")
	r.Register("rust", tree_sitter_rust.Language, ".rs")
	r.Register("java", tree_sitter_java.Language, ".java")
	r.Register("c", tree_sitter_c.Language, ".c", ".h")
	r.Register("cpp", tree_sitter_cpp.Language, ".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx")
	r.Register("zig", tree_sitter_zig.Language, ".zig")
}
