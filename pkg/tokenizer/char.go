package tokenizer

// CharTokenizer emits one token per character, whitespace included.
type CharTokenizer struct{}

// NewCharTokenizer creates a character tokenizer.
func NewCharTokenizer() *CharTokenizer {
	return &CharTokenizer{}
}

// Tokenize splits the file content into single-character tokens.
func (CharTokenizer) Tokenize(file *File) (*TokenizedFile, error) {
	tokens := make([]string, 0, len(file.Content))
	mapping := make([]Region, 0, len(file.Content))

	row, col := 0, 0
	for _, r := range file.Content {
		tokens = append(tokens, string(r))
		mapping = append(mapping, NewRegion(row, col, row, col+1))
		if r == '\n' {
			row++
			col = 0
			continue
		}
		col++
	}

	return &TokenizedFile{
		File:     file,
		Language: LanguageChars,
		Tokens:   tokens,
		Mapping:  mapping,
	}, nil
}
