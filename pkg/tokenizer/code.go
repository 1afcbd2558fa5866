package tokenizer

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/jmylchreest/winnow/pkg/grammar"
)

// CodeTokenizer linearizes a tree-sitter syntax tree into tokens.
type CodeTokenizer struct {
	language string
	registry *grammar.Registry

	// IncludeComments keeps comment nodes in the token stream.
	IncludeComments bool
}

// NewCodeTokenizer creates a tokenizer for a compiled-in grammar.
func NewCodeTokenizer(language string, registry *grammar.Registry) (*CodeTokenizer, error) {
	if registry == nil {
		registry = grammar.Default()
	}
	if !registry.Has(language) {
		return nil, &grammar.ErrGrammarNotFound{Name: language}
	}
	return &CodeTokenizer{language: language, registry: registry}, nil
}

// Language returns the grammar name.
func (t *CodeTokenizer) Language() string { return t.language }

// Tokenize parses the file and emits "(", kind, children, ")" for every
// named node.
//
// "(" and the kind token carry the node's start position (the full span for
// leaves); ")" carries the node's end position. The final ")" of the root
// carries the root's full region.
func (t *CodeTokenizer) Tokenize(file *File) (*TokenizedFile, error) {
	lang, err := t.registry.Load(t.language)
	if err != nil {
		return nil, err
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language %q: %w", t.language, err)
	}

	content := []byte(file.Content)
	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("%s: tree-sitter returned no tree", file.Path)
	}
	defer tree.Close()

	tf := &TokenizedFile{File: file, Language: t.language}
	root := tree.RootNode()
	t.walk(root, tf)

	// The closing bracket of the root spans the whole file.
	if n := len(tf.Mapping); n > 0 {
		tf.Mapping[n-1] = nodeRegion(root)
	}
	return tf, nil
}

func (t *CodeTokenizer) walk(node *tree_sitter.Node, tf *TokenizedFile) {
	kind := node.Kind()
	if !t.IncludeComments && strings.Contains(kind, "comment") {
		return
	}

	full := nodeRegion(node)
	open := full
	if node.NamedChildCount() > 0 {
		open = NewRegion(full.StartRow, full.StartCol, full.StartRow, full.StartCol)
	}
	tf.Tokens = append(tf.Tokens, "(", kind)
	tf.Mapping = append(tf.Mapping, open, open)

	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil {
			t.walk(child, tf)
		}
	}

	tf.Tokens = append(tf.Tokens, ")")
	tf.Mapping = append(tf.Mapping, NewRegion(full.EndRow, full.EndCol, full.EndRow, full.EndCol))
}

func nodeRegion(node *tree_sitter.Node) Region {
	start := node.StartPosition()
	end := node.EndPosition()
	return NewRegion(int(start.Row), int(start.Column), int(end.Row), int(end.Column))
}
