package metrics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmylchreest/winnow/pkg/report"
	"github.com/jmylchreest/winnow/pkg/tokenizer"
)

func TestObserveAndWrite(t *testing.T) {
	opts := report.DefaultOptions()
	opts.KgramLength = 4
	opts.KgramsInWindow = 3
	b, err := report.NewBuilder(opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, content := range []string{"the same words here", "the same words here"} {
		tf, err := tokenizer.NewCharTokenizer().Tokenize(&tokenizer.File{ID: i, Content: content})
		if err != nil {
			t.Fatal(err)
		}
		b.AddFile(tf)
	}
	r, err := b.Finish(context.Background())
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	m := New()
	m.Observe(r)

	path := filepath.Join(t.TempDir(), "winnow.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		"winnow_runs_total 1",
		"winnow_files 2",
		"winnow_pairs 1",
		`winnow_phase_duration_seconds{phase="compare"}`,
		"winnow_pair_similarity_count 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
}
