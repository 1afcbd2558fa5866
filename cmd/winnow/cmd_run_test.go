package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/winnow/pkg/present"
	"github.com/jmylchreest/winnow/pkg/watcher"
)

const sample = "the quick brown fox jumps over the lazy dog\n"

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestRunJSON(t *testing.T) {
	t.Chdir(t.TempDir())
	root := writeFiles(t, map[string]string{
		"a.txt": sample,
		"b.txt": sample,
		"c.txt": "0123456789",
	})

	var stdout bytes.Buffer
	r, err := newRunner([]string{root, "--k=5", "--w=4", "--format=json", "--show-fragments"}, &stdout, io.Discard)
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	rep, err := r.analyze(context.Background())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(rep.Pairs()) != 1 {
		t.Fatalf("pairs = %d; want 1", len(rep.Pairs()))
	}

	var doc present.Document
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(doc.Files) != 3 || len(doc.Pairs) != 1 {
		t.Fatalf("document has %d files, %d pairs; want 3, 1", len(doc.Files), len(doc.Pairs))
	}
	if doc.Pairs[0].Similarity != 1 {
		t.Errorf("similarity = %v; want 1", doc.Pairs[0].Similarity)
	}
	if frags := doc.Pairs[0].Fragments; len(frags) == 0 || frags[0].Data == "" {
		t.Errorf("fragments = %+v; want data with --show-fragments", frags)
	}
}

func TestRunIgnoreTemplate(t *testing.T) {
	t.Chdir(t.TempDir())
	root := writeFiles(t, map[string]string{
		"a.txt": sample,
		"b.txt": sample,
	})
	template := filepath.Join(t.TempDir(), "template.txt")
	if err := os.WriteFile(template, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	r, err := newRunner([]string{root, "--k=5", "--w=4", "--ignore=" + template}, &stdout, io.Discard)
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	rep, err := r.analyze(context.Background())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(rep.Pairs()) != 0 {
		t.Errorf("pairs = %d; want 0 when everything is templated", len(rep.Pairs()))
	}
	if !strings.Contains(stdout.String(), "No similar pairs found.") {
		t.Errorf("output = %q", stdout.String())
	}
}

func TestRunCSVAndMetrics(t *testing.T) {
	t.Chdir(t.TempDir())
	root := writeFiles(t, map[string]string{
		"a.txt": sample,
		"b.txt": sample,
	})
	out := filepath.Join(t.TempDir(), "results")
	metricsFile := filepath.Join(t.TempDir(), "winnow.prom")

	r, err := newRunner([]string{
		root, "--k=5", "--w=4", "--format=csv", "--output=" + out, "--metrics-file=" + metricsFile,
	}, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	if _, err := r.analyze(context.Background()); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	for _, table := range []string{present.FilesTable, present.PairsTable, present.KgramsTable, present.MetadataTable} {
		if _, err := os.Stat(filepath.Join(out, table)); err != nil {
			t.Errorf("missing %s: %v", table, err)
		}
	}
	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), "winnow_pairs 1") {
		t.Errorf("metrics missing winnow_pairs 1:\n%s", data)
	}
}

func TestRunTooFewFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	root := writeFiles(t, map[string]string{"only.txt": sample})

	r, err := newRunner([]string{root}, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	if _, err := r.analyze(context.Background()); err == nil {
		t.Error("analyze with one file should fail")
	}
}

func TestWatchFilter(t *testing.T) {
	t.Chdir(t.TempDir())
	r, err := newRunner([]string{"--output=out.json", "--metrics-file=m.prom"}, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	keep := r.watchFilter()

	tests := []struct {
		path string
		want bool
	}{
		{"src/main.go", true},
		{"out.json", false},
		{"m.prom", false},
		{"m.prom1234567", false},
	}
	for _, tt := range tests {
		if got := keep(tt.path); got != tt.want {
			t.Errorf("filter(%q) = %v; want %v", tt.path, got, tt.want)
		}
	}
}

func TestStartWatcherMissingPath(t *testing.T) {
	t.Chdir(t.TempDir())
	missing := filepath.Join(t.TempDir(), "gone")
	r, err := newRunner([]string{missing}, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}

	w, err := r.startWatcher(watcher.HandlerFunc(func(map[string]fsnotify.Op) {}))
	if err == nil {
		w.Stop()
		t.Fatal("startWatcher on a missing path should fail")
	}
	if !errors.Is(err, fs.ErrNotExist) || !strings.Contains(err.Error(), "start watcher") {
		t.Errorf("err = %v; want a wrapped not-exist error", err)
	}
}

func TestStartWatcher(t *testing.T) {
	t.Chdir(t.TempDir())
	root := writeFiles(t, map[string]string{"a.txt": sample})
	r, err := newRunner([]string{root}, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}

	w, err := r.startWatcher(watcher.HandlerFunc(func(map[string]fsnotify.Op) {}))
	if err != nil {
		t.Fatalf("startWatcher: %v", err)
	}
	if got := w.Stats().DirsWatched; got != 1 {
		t.Errorf("DirsWatched = %d; want 1", got)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
