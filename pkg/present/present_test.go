package present

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/winnow/pkg/report"
	"github.com/jmylchreest/winnow/pkg/tokenizer"
)

const shared = "func main() { fmt.Println(\"hello, world\") }\n"

func buildReport(t *testing.T, contents ...string) *report.Report {
	t.Helper()
	return buildReportWith(t, report.DefaultOptions(), contents...)
}

func buildReportWith(t *testing.T, opts report.Options, contents ...string) *report.Report {
	t.Helper()
	opts.KgramLength = 5
	opts.KgramsInWindow = 4
	b, err := report.NewBuilder(opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range contents {
		tf, err := tokenizer.NewCharTokenizer().Tokenize(&tokenizer.File{
			ID:      i,
			Path:    filepath.Join("sub", string(rune('a'+i))+".txt"),
			Content: c,
			Extra:   map[string]string{"author": string(rune('A' + i))},
		})
		if err != nil {
			t.Fatal(err)
		}
		b.AddFile(tf)
	}
	r, err := b.Finish(context.Background())
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return r
}

func TestNewDocument(t *testing.T) {
	r := buildReport(t, shared, shared, "nothing in common here at all")
	doc := NewDocument(r, DocumentOptions{Version: "1.2.3", WithData: true})

	if len(doc.Files) != 3 || len(doc.Pairs) != 1 {
		t.Fatalf("files = %d, pairs = %d; want 3, 1", len(doc.Files), len(doc.Pairs))
	}
	p := doc.Pairs[0]
	if p.LeftFileID != 0 || p.RightFileID != 1 || p.Similarity != 1 {
		t.Errorf("pair = %+v", p)
	}
	if len(p.Fragments) != 1 || p.Fragments[0].Data == "" {
		t.Errorf("fragments = %+v; want one with data", p.Fragments)
	}
	if doc.Metadata.RunID != r.RunID() || doc.Metadata.Version != "1.2.3" {
		t.Errorf("metadata = %+v", doc.Metadata)
	}
	if len(doc.Kgrams) == 0 {
		t.Error("no shared k-grams exported")
	}
	for _, k := range doc.Kgrams {
		if len(k.Files) < 2 {
			t.Errorf("k-gram %d is in %v; want at least two files", k.Hash, k.Files)
		}
	}
	if doc.Files[2].Extra["author"] != "C" {
		t.Errorf("extra = %v", doc.Files[2].Extra)
	}
}

func TestDocumentCharDataIsSourceText(t *testing.T) {
	opts := report.DefaultOptions()
	opts.NoWinnow = true
	doc := NewDocument(buildReportWith(t, opts, shared, shared), DocumentOptions{WithData: true})

	if len(doc.Pairs) != 1 || len(doc.Pairs[0].Fragments) != 1 {
		t.Fatalf("pairs = %+v; want one pair with one fragment", doc.Pairs)
	}
	if got := doc.Pairs[0].Fragments[0].Data; got != shared {
		t.Errorf("fragment data = %q; want %q", got, shared)
	}
	for _, k := range doc.Kgrams {
		if len([]rune(k.Data)) != 5 || !strings.Contains(shared, k.Data) {
			t.Errorf("k-gram data %q is not a 5-character slice of the source", k.Data)
		}
	}
}

func TestJSONAndYAML(t *testing.T) {
	doc := NewDocument(buildReport(t, shared, shared), DocumentOptions{})

	var buf bytes.Buffer
	if err := JSON(&buf, doc); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var decoded Document
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if decoded.Metadata.RunID != doc.Metadata.RunID || len(decoded.Pairs) != 1 {
		t.Errorf("decoded = %+v", decoded.Metadata)
	}
	if frags := decoded.Pairs[0].Fragments; len(frags) != 1 || frags[0].Data != "" {
		t.Errorf("fragments = %+v; want one without data", frags)
	}

	buf.Reset()
	if err := YAML(&buf, doc); err != nil {
		t.Fatalf("YAML: %v", err)
	}
	var generic map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &generic); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	for _, key := range []string{"metadata", "files", "pairs", "kgrams"} {
		if _, ok := generic[key]; !ok {
			t.Errorf("yaml document missing %q", key)
		}
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestCSV(t *testing.T) {
	doc := NewDocument(buildReport(t, shared, shared, "unrelated text"), DocumentOptions{Version: "dev"})
	dir := filepath.Join(t.TempDir(), "out")
	if err := CSV(dir, doc); err != nil {
		t.Fatalf("CSV: %v", err)
	}

	tests := []struct {
		table  string
		header string
		rows   int
	}{
		{FilesTable, "id", len(doc.Files)},
		{PairsTable, "id", len(doc.Pairs)},
		{KgramsTable, "hash", len(doc.Kgrams)},
		{MetadataTable, "property", 16},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			rows := readCSV(t, filepath.Join(dir, tt.table))
			if rows[0][0] != tt.header {
				t.Errorf("header = %v; want first column %q", rows[0], tt.header)
			}
			if got := len(rows) - 1; got != tt.rows {
				t.Errorf("rows = %d; want %d", got, tt.rows)
			}
		})
	}

	files := readCSV(t, filepath.Join(dir, FilesTable))
	if files[1][7] != "author=A" {
		t.Errorf("extra column = %q; want author=A", files[1][7])
	}
}

func TestTerminal(t *testing.T) {
	r := buildReport(t, shared, shared)

	var buf bytes.Buffer
	if err := Terminal(&buf, r, TerminalOptions{Theme: &PlainTheme, ShowFragments: true}); err != nil {
		t.Fatalf("Terminal: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Compared 2 files",
		"Found 1 similar pairs",
		filepath.Join("sub", "a.txt"),
		"100.0%",
		"1:0-",
		"k-grams",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTerminalNoPairs(t *testing.T) {
	r := buildReport(t, "aaaaaaaaaa", "bbbbbbbbbb")

	var buf bytes.Buffer
	if err := Terminal(&buf, r, TerminalOptions{Theme: &PlainTheme}); err != nil {
		t.Fatalf("Terminal: %v", err)
	}
	if !strings.Contains(buf.String(), "No similar pairs found.") {
		t.Errorf("output = %q", buf.String())
	}
}
