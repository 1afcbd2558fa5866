package tokenizer

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const goSource = `package demo

// Sum adds the values.
func Sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
`

const goSourceRenamed = `package other

// Accumulate adds the numbers.
func Accumulate(numbers []int) int {
	acc := 0
	for _, n := range numbers {
		acc += n
	}
	return acc
}
`

func TestRegionMergeAndOrder(t *testing.T) {
	a := NewRegion(1, 4, 1, 9)
	b := NewRegion(3, 0, 5, 2)

	if !InOrder(a, b) {
		t.Error("InOrder(a, b) = false; want true")
	}
	if InOrder(b, a) {
		t.Error("InOrder(b, a) = true; want false")
	}
	if !InOrder(a, a) {
		t.Error("a region is in order with itself")
	}

	want := NewRegion(1, 4, 5, 2)
	if got := Merge(a, b); got != want {
		t.Errorf("Merge(a, b) = %v; want %v", got, want)
	}
	if got := Merge(b, a); got != want {
		t.Errorf("Merge(b, a) = %v; want %v", got, want)
	}

	inner := NewRegion(2, 0, 2, 3)
	outer := NewRegion(0, 0, 9, 0)
	if got := Merge(outer, inner); got != outer {
		t.Errorf("Merge(outer, inner) = %v; want %v", got, outer)
	}
	if got := outer.Lines(); got != 10 {
		t.Errorf("Lines() = %d; want 10", got)
	}
	if got := a.String(); got != "2:4-2:9" {
		t.Errorf("String() = %q; want %q", got, "2:4-2:9")
	}
}

func TestCharTokenizer(t *testing.T) {
	file := &File{ID: 1, Path: "a.txt", Content: "ab\ncd"}
	tf, err := NewCharTokenizer().Tokenize(file)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if err := tf.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	wantTokens := []string{"a", "b", "\n", "c", "d"}
	if !reflect.DeepEqual(tf.Tokens, wantTokens) {
		t.Errorf("tokens = %q; want %q", tf.Tokens, wantTokens)
	}
	wantMapping := []Region{
		NewRegion(0, 0, 0, 1),
		NewRegion(0, 1, 0, 2),
		NewRegion(0, 2, 0, 3),
		NewRegion(1, 0, 1, 1),
		NewRegion(1, 1, 1, 2),
	}
	if !reflect.DeepEqual(tf.Mapping, wantMapping) {
		t.Errorf("mapping = %v; want %v", tf.Mapping, wantMapping)
	}
	if tf.Language != LanguageChars {
		t.Errorf("Language = %q; want %q", tf.Language, LanguageChars)
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		language string
		tokens   []string
		want     string
	}{
		{LanguageChars, []string{"a", " ", "b", "é"}, "a bé"},
		{LanguageChars, nil, ""},
		{"go", []string{"(", "identifier", ")"}, "( identifier )"},
	}
	for _, tt := range tests {
		tf := &TokenizedFile{File: &File{}, Language: tt.language}
		if got := tf.Join(tt.tokens); got != tt.want {
			t.Errorf("%s Join(%q) = %q; want %q", tt.language, tt.tokens, got, tt.want)
		}
	}
}

func TestValidateMismatch(t *testing.T) {
	tf := &TokenizedFile{
		File:    &File{Path: "x"},
		Tokens:  []string{"a", "b"},
		Mapping: []Region{{}},
	}
	if err := tf.Validate(); !errors.Is(err, ErrInvariant) {
		t.Errorf("Validate() = %v; want ErrInvariant", err)
	}
}

func TestFileLines(t *testing.T) {
	tests := map[string]int{
		"":         0,
		"a":        1,
		"a\n":      1,
		"a\nb":     2,
		"a\nb\n\n": 3,
	}
	for content, want := range tests {
		f := &File{Content: content}
		if got := f.Lines(); got != want {
			t.Errorf("Lines(%q) = %d; want %d", content, got, want)
		}
	}
}

func TestCodeTokenizerStructure(t *testing.T) {
	tok, err := New("go", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tf, err := tok.Tokenize(&File{ID: 0, Path: "sum.go", Content: goSource})
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if err := tf.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if tf.Tokens[0] != "(" || tf.Tokens[1] != "source_file" || tf.Tokens[len(tf.Tokens)-1] != ")" {
		t.Fatalf("unexpected stream framing: %q ... %q", tf.Tokens[:2], tf.Tokens[len(tf.Tokens)-1])
	}

	depth := 0
	for _, tok := range tf.Tokens {
		switch tok {
		case "(":
			depth++
		case ")":
			depth--
		}
		if depth < 0 {
			t.Fatal("unbalanced brackets")
		}
	}
	if depth != 0 {
		t.Errorf("bracket depth at end = %d; want 0", depth)
	}

	for _, tok := range tf.Tokens {
		if strings.Contains(tok, "comment") {
			t.Errorf("comment token %q emitted without IncludeComments", tok)
		}
		if tok == "Sum" || tok == "total" {
			t.Errorf("identifier text %q leaked into the token stream", tok)
		}
	}
}

func TestCodeTokenizerRegionsMonotonic(t *testing.T) {
	tok, err := New("go", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tf, err := tok.Tokenize(&File{Path: "sum.go", Content: goSource})
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	last := len(tf.Mapping) - 1
	for i := 1; i < last; i++ {
		if !InOrder(tf.Mapping[i-1], tf.Mapping[i]) {
			t.Fatalf("region %d (%v) starts before region %d (%v)", i, tf.Mapping[i], i-1, tf.Mapping[i-1])
		}
	}
	if root := tf.Mapping[last]; root.StartRow != 0 || root.StartCol != 0 {
		t.Errorf("final bracket region = %v; want the root region", root)
	}
}

func TestCodeTokenizerIgnoresRenames(t *testing.T) {
	tok, err := New("go", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a, err := tok.Tokenize(&File{ID: 0, Path: "a.go", Content: goSource})
	if err != nil {
		t.Fatalf("Tokenize a: %v", err)
	}
	b, err := tok.Tokenize(&File{ID: 1, Path: "b.go", Content: goSourceRenamed})
	if err != nil {
		t.Fatalf("Tokenize b: %v", err)
	}
	if !reflect.DeepEqual(a.Tokens, b.Tokens) {
		t.Errorf("renamed source produced a different token stream:\n%q\n%q", a.Tokens, b.Tokens)
	}
}

func TestCodeTokenizerIncludeComments(t *testing.T) {
	tok, err := New("go", Options{IncludeComments: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tf, err := tok.Tokenize(&File{Path: "sum.go", Content: goSource})
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	found := false
	for _, tok := range tf.Tokens {
		if tok == "comment" {
			found = true
		}
	}
	if !found {
		t.Error("IncludeComments did not keep the comment node")
	}
}

func TestNewUnknownLanguage(t *testing.T) {
	if _, err := New("cobol", Options{}); err == nil {
		t.Error("New(cobol) should fail")
	}
	if tok, err := New(LanguageChars, Options{}); err != nil || tok == nil {
		t.Errorf("New(chars) = %v, %v", tok, err)
	}
}

func TestLanguageForPath(t *testing.T) {
	if got := LanguageForPath("x/y/main.go"); got != "go" {
		t.Errorf("LanguageForPath(main.go) = %q; want go", got)
	}
	if got := LanguageForPath("notes.txt"); got != LanguageChars {
		t.Errorf("LanguageForPath(notes.txt) = %q; want %q", got, LanguageChars)
	}
	langs := Languages()
	if langs[0] != LanguageChars || len(langs) < 2 {
		t.Errorf("Languages() = %v", langs)
	}
}
