package tokenizer

import (
	"fmt"

	"github.com/jmylchreest/winnow/pkg/grammar"
)

// Options configures New.
type Options struct {
	// IncludeComments keeps comment nodes in syntax-tree token streams.
	IncludeComments bool
	// Registry supplies grammars. Defaults to grammar.Default().
	Registry *grammar.Registry
}

// New returns the tokenizer for a language: the character tokenizer for
// LanguageChars, a CodeTokenizer for any compiled-in grammar.
func New(language string, opts Options) (Tokenizer, error) {
	if language == LanguageChars {
		return NewCharTokenizer(), nil
	}
	ct, err := NewCodeTokenizer(language, opts.Registry)
	if err != nil {
		return nil, fmt.Errorf("no tokenizer for language %q: %w", language, err)
	}
	ct.IncludeComments = opts.IncludeComments
	return ct, nil
}

// LanguageForPath returns the grammar name for a path, falling back to
// LanguageChars for files no grammar handles.
func LanguageForPath(path string) string {
	if lang := grammar.Default().LangForPath(path); lang != "" {
		return lang
	}
	return LanguageChars
}

// Languages returns every accepted language name.
func Languages() []string {
	return append([]string{LanguageChars}, grammar.Default().Names()...)
}
