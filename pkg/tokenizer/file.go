// Package tokenizer turns source files into token streams for fingerprinting.
//
// A token stream is an ordered list of strings paired 1:1 with the source
// Region each token came from. Two tokenizers are provided:
//   - CharTokenizer: one token per character, for plain text.
//   - CodeTokenizer: a linearized tree-sitter syntax tree. Every named node
//     contributes "(", its kind, its children, and ")". Identifier and
//     literal text is dropped, so consistent renames do not change the stream.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvariant is wrapped by errors reporting a malformed token stream.
var ErrInvariant = errors.New("invariant violation")

// File is one input document.
type File struct {
	// ID is a stable caller-assigned identifier, unique within a run.
	ID      int               `json:"id" yaml:"id"`
	Path    string            `json:"path" yaml:"path"`
	Content string            `json:"-" yaml:"-"`
	Extra   map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Lines returns the number of lines in the file's content.
func (f *File) Lines() int {
	if f.Content == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(f.Content); i++ {
		if f.Content[i] == '\n' && i < len(f.Content)-1 {
			n++
		}
	}
	return n
}

// TokenizedFile is a File with its token stream.
type TokenizedFile struct {
	*File
	Language string
	Tokens   []string
	// Mapping[i] is the source region of Tokens[i].
	Mapping []Region
}

// Validate checks that the token stream and its mapping line up.
func (tf *TokenizedFile) Validate() error {
	if tf.File == nil {
		return fmt.Errorf("tokenized file has no source file: %w", ErrInvariant)
	}
	if len(tf.Tokens) != len(tf.Mapping) {
		return fmt.Errorf("%s: %d tokens but %d regions: %w",
			tf.Path, len(tf.Tokens), len(tf.Mapping), ErrInvariant)
	}
	return nil
}

// Join renders tokens of this file as text. Character tokens are
// concatenated so that a run reproduces the source; other tokens are
// separated by spaces.
func (tf *TokenizedFile) Join(tokens []string) string {
	if tf.Language == LanguageChars {
		return strings.Join(tokens, "")
	}
	return strings.Join(tokens, " ")
}

// Tokenizer produces a token stream for a file.
type Tokenizer interface {
	Tokenize(file *File) (*TokenizedFile, error)
}

// LanguageChars is the language name of the character tokenizer.
const LanguageChars = "chars"
