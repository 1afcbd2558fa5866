package present

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CSV table file names.
const (
	FilesTable    = "files.csv"
	PairsTable    = "pairs.csv"
	KgramsTable   = "kgrams.csv"
	MetadataTable = "metadata.csv"
)

// CSV writes the document as four tables into dir, creating it if needed.
func CSV(dir string, doc *Document) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	files := [][]string{{"id", "path", "language", "lines", "tokens", "kgrams", "ignored_kgrams", "extra"}}
	for _, f := range doc.Files {
		extra := make([]string, 0, len(f.Extra))
		for k, v := range f.Extra {
			extra = append(extra, k+"="+v)
		}
		files = append(files, []string{
			itoa(f.ID), f.Path, f.Language, itoa(f.Lines), itoa(f.Tokens),
			itoa(f.Kgrams), itoa(f.IgnoredKgrams), strings.Join(sorted(extra), ";"),
		})
	}

	pairs := [][]string{{
		"id", "left_file_id", "right_file_id", "similarity", "overlap", "longest",
		"left_covered", "right_covered", "left_total", "right_total", "fragments",
	}}
	for _, p := range doc.Pairs {
		pairs = append(pairs, []string{
			itoa(p.ID), itoa(p.LeftFileID), itoa(p.RightFileID),
			strconv.FormatFloat(p.Similarity, 'f', 6, 64),
			itoa(p.Overlap), itoa(p.Longest), itoa(p.LeftCovered), itoa(p.RightCovered),
			itoa(p.LeftTotal), itoa(p.RightTotal), itoa(len(p.Fragments)),
		})
	}

	kgrams := [][]string{{"hash", "data", "files", "ignored"}}
	for _, k := range doc.Kgrams {
		ids := make([]string, len(k.Files))
		for i, id := range k.Files {
			ids[i] = itoa(id)
		}
		kgrams = append(kgrams, []string{
			strconv.FormatUint(k.Hash, 10), k.Data, "[" + strings.Join(ids, ",") + "]", strconv.FormatBool(k.Ignored),
		})
	}

	m := doc.Metadata
	metadata := [][]string{
		{"property", "value"},
		{"run_id", m.RunID},
		{"created_at", m.CreatedAt.Format(time.RFC3339)},
		{"version", m.Version},
		{"k", itoa(m.Options.KgramLength)},
		{"w", itoa(m.Options.KgramsInWindow)},
		{"no_winnow", strconv.FormatBool(m.Options.NoWinnow)},
		{"min_fragment_length", itoa(m.Options.MinFragmentLength)},
		{"min_similarity", strconv.FormatFloat(m.Options.MinSimilarity, 'f', -1, 64)},
		{"max_fingerprint_count", itoa(m.Options.MaxFingerprintCount)},
		{"max_fingerprint_percentage", strconv.FormatFloat(m.Options.MaxFingerprintPercentage, 'f', -1, 64)},
		{"limit", itoa(m.Options.LimitResults)},
		{"sort_by", string(m.Options.SortBy)},
		{"files", itoa(m.Stats.Files)},
		{"pairs", itoa(m.Stats.Pairs)},
		{"fingerprints", itoa(m.Stats.Fingerprints)},
		{"ignored_fingerprints", itoa(m.Stats.IgnoredFingerprints)},
	}

	for name, rows := range map[string][][]string{
		FilesTable:    files,
		PairsTable:    pairs,
		KgramsTable:   kgrams,
		MetadataTable: metadata,
	} {
		if err := writeCSV(filepath.Join(dir, name), rows); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func itoa(i int) string { return strconv.Itoa(i) }

func sorted(s []string) []string {
	slices.Sort(s)
	return s
}
