// Package present renders a report for people and for other tools: a
// terminal table, JSON and YAML documents, and a set of CSV tables.
package present

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/winnow/pkg/index"
	"github.com/jmylchreest/winnow/pkg/report"
	"github.com/jmylchreest/winnow/pkg/tokenizer"
)

// Document is the export form of a report. It mirrors the files, pairs,
// kgrams and metadata tables.
type Document struct {
	Metadata Metadata   `json:"metadata" yaml:"metadata"`
	Files    []FileRow  `json:"files" yaml:"files"`
	Pairs    []PairRow  `json:"pairs" yaml:"pairs"`
	Kgrams   []KgramRow `json:"kgrams" yaml:"kgrams"`
}

// Metadata describes the run.
type Metadata struct {
	RunID     string         `json:"run_id" yaml:"run_id"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
	Version   string         `json:"version,omitempty" yaml:"version,omitempty"`
	Options   report.Options `json:"options" yaml:"options"`
	Stats     report.Stats   `json:"stats" yaml:"stats"`
}

// FileRow is one compared file.
type FileRow struct {
	ID            int               `json:"id" yaml:"id"`
	Path          string            `json:"path" yaml:"path"`
	Language      string            `json:"language" yaml:"language"`
	Lines         int               `json:"lines" yaml:"lines"`
	Tokens        int               `json:"tokens" yaml:"tokens"`
	Kgrams        int               `json:"kgrams" yaml:"kgrams"`
	IgnoredKgrams int               `json:"ignored_kgrams" yaml:"ignored_kgrams"`
	Extra         map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// PairRow is one scored pair.
type PairRow struct {
	ID           int           `json:"id" yaml:"id"`
	LeftFileID   int           `json:"left_file_id" yaml:"left_file_id"`
	RightFileID  int           `json:"right_file_id" yaml:"right_file_id"`
	LeftPath     string        `json:"left_path" yaml:"left_path"`
	RightPath    string        `json:"right_path" yaml:"right_path"`
	Similarity   float64       `json:"similarity" yaml:"similarity"`
	Overlap      int           `json:"overlap" yaml:"overlap"`
	Longest      int           `json:"longest" yaml:"longest"`
	LeftCovered  int           `json:"left_covered" yaml:"left_covered"`
	RightCovered int           `json:"right_covered" yaml:"right_covered"`
	LeftTotal    int           `json:"left_total" yaml:"left_total"`
	RightTotal   int           `json:"right_total" yaml:"right_total"`
	Fragments    []FragmentRow `json:"fragments,omitempty" yaml:"fragments,omitempty"`
}

// FragmentRow is one matched fragment of a pair.
type FragmentRow struct {
	Length      int              `json:"length" yaml:"length"`
	LeftKgrams  index.Range      `json:"left_kgrams" yaml:"left_kgrams"`
	RightKgrams index.Range      `json:"right_kgrams" yaml:"right_kgrams"`
	LeftTokens  index.Range      `json:"left_tokens" yaml:"left_tokens"`
	RightTokens index.Range      `json:"right_tokens" yaml:"right_tokens"`
	LeftRegion  tokenizer.Region `json:"left_region" yaml:"left_region"`
	RightRegion tokenizer.Region `json:"right_region" yaml:"right_region"`
	Data        string           `json:"data,omitempty" yaml:"data,omitempty"`
}

// KgramRow is one fingerprint shared by several files.
type KgramRow struct {
	Hash    uint64 `json:"hash" yaml:"hash"`
	Data    string `json:"data" yaml:"data"`
	Files   []int  `json:"files" yaml:"files"`
	Ignored bool   `json:"ignored" yaml:"ignored"`
}

// DocumentOptions controls what NewDocument includes.
type DocumentOptions struct {
	Version string
	// WithData includes the merged token data of every fragment.
	WithData bool
}

// NewDocument converts a report into its export form.
func NewDocument(r *report.Report, opts DocumentOptions) *Document {
	doc := &Document{
		Metadata: Metadata{
			RunID:     r.RunID(),
			CreatedAt: r.CreatedAt(),
			Version:   opts.Version,
			Options:   r.Options(),
			Stats:     r.Stats(),
		},
		Files:  make([]FileRow, 0, len(r.Files())),
		Pairs:  make([]PairRow, 0, len(r.Pairs())),
		Kgrams: make([]KgramRow, 0, len(r.SharedFingerprints())),
	}

	for _, fe := range r.Files() {
		doc.Files = append(doc.Files, FileRow{
			ID:            fe.ID(),
			Path:          fe.File.Path,
			Language:      fe.File.Language,
			Lines:         fe.File.Lines(),
			Tokens:        len(fe.File.Tokens),
			Kgrams:        len(fe.Kgrams),
			IgnoredKgrams: fe.IgnoredKgrams,
			Extra:         fe.File.Extra,
		})
	}

	for i, p := range r.Pairs() {
		row := PairRow{
			ID:           i,
			LeftFileID:   p.Left.ID(),
			RightFileID:  p.Right.ID(),
			LeftPath:     p.Left.File.Path,
			RightPath:    p.Right.File.Path,
			Similarity:   p.Similarity,
			Overlap:      p.Overlap(),
			Longest:      p.Longest,
			LeftCovered:  p.LeftCovered,
			RightCovered: p.RightCovered,
			LeftTotal:    p.LeftTotal,
			RightTotal:   p.RightTotal,
		}
		for _, f := range p.Fragments {
			fr := FragmentRow{
				Length:      f.Len(),
				LeftKgrams:  f.LeftKgrams,
				RightKgrams: f.RightKgrams,
				LeftTokens:  f.LeftTokens,
				RightTokens: f.RightTokens,
				LeftRegion:  f.LeftRegion,
				RightRegion: f.RightRegion,
			}
			if opts.WithData {
				fr.Data = p.Left.File.Join(f.MergedTokens())
			}
			row.Fragments = append(row.Fragments, fr)
		}
		doc.Pairs = append(doc.Pairs, row)
	}

	for _, sf := range r.SharedFingerprints() {
		doc.Kgrams = append(doc.Kgrams, KgramRow{
			Hash:    sf.Hash,
			Data:    kgramText(r, sf),
			Files:   sf.Files(),
			Ignored: sf.Ignored,
		})
	}
	return doc
}

// kgramText renders a shared k-gram in the style of the file it was taken
// from.
func kgramText(r *report.Report, sf *index.SharedFingerprint) string {
	if fe := r.File(sf.KgramFileID()); fe != nil {
		return fe.File.Join(sf.Kgram())
	}
	return strings.Join(sf.Kgram(), " ")
}

// JSON writes the document as indented JSON.
func JSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// YAML writes the document as YAML.
func YAML(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
