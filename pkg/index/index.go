// Package index groups k-gram fingerprints across files and compares file
// pairs.
//
// The algorithm works as follows:
//  1. Fingerprint every tokenized file with a fingerprint.Filter.
//  2. Group identical hashes across files into SharedFingerprints.
//  3. Mark fingerprints that are too common (or come from an ignored
//     template file) as ignored.
//  4. For a pair of files, stitch their shared k-grams into Fragments,
//     squash fragments contained in larger ones, and score the pair.
package index

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jmylchreest/winnow/pkg/fingerprint"
	"github.com/jmylchreest/winnow/pkg/logging"
	"github.com/jmylchreest/winnow/pkg/tokenizer"
)

// Occurrence is one appearance of a fingerprint in a file.
type Occurrence struct {
	FileID     int
	KgramIndex int
	// Start and Stop are inclusive token indices of the k-gram.
	Start  int
	Stop   int
	Region tokenizer.Region
	Data   []string
}

// SharedFingerprint aggregates every occurrence of one hash across files.
// Hash collisions between different k-gram texts are not distinguished.
type SharedFingerprint struct {
	Hash    uint64
	Ignored bool

	occurrences map[int][]*Occurrence
	files       []int
}

func newSharedFingerprint(hash uint64) *SharedFingerprint {
	return &SharedFingerprint{Hash: hash, occurrences: make(map[int][]*Occurrence)}
}

func (sf *SharedFingerprint) add(occ *Occurrence) {
	if _, ok := sf.occurrences[occ.FileID]; !ok {
		sf.files = append(sf.files, occ.FileID)
	}
	sf.occurrences[occ.FileID] = append(sf.occurrences[occ.FileID], occ)
}

// FileCount returns the number of files containing the fingerprint.
func (sf *SharedFingerprint) FileCount() int { return len(sf.files) }

// Files returns the sorted ids of the files containing the fingerprint.
func (sf *SharedFingerprint) Files() []int {
	out := make([]int, len(sf.files))
	copy(out, sf.files)
	sort.Ints(out)
	return out
}

// Occurrences returns the occurrences in one file, in k-gram order.
func (sf *SharedFingerprint) Occurrences(fileID int) []*Occurrence {
	return sf.occurrences[fileID]
}

// Kgram returns the tokens of a representative occurrence.
func (sf *SharedFingerprint) Kgram() []string {
	if len(sf.files) == 0 {
		return nil
	}
	return sf.occurrences[sf.files[0]][0].Data
}

// KgramFileID returns the id of the file Kgram is taken from, or -1.
func (sf *SharedFingerprint) KgramFileID() int {
	if len(sf.files) == 0 {
		return -1
	}
	return sf.files[0]
}

// FileEntry is a file's view of the index.
type FileEntry struct {
	File *tokenizer.TokenizedFile
	// Kgrams are the file's fingerprints in emission order; Kgrams[i] has
	// KgramIndex i.
	Kgrams []fingerprint.Fingerprint
	// Shared maps every hash in the file to its SharedFingerprint.
	Shared map[uint64]*SharedFingerprint
	// IgnoredKgrams counts the k-grams whose fingerprint is ignored.
	IgnoredKgrams int

	occurrences []*Occurrence
}

// ID returns the file id.
func (fe *FileEntry) ID() int { return fe.File.ID }

// Fingerprint runs filter over a tokenized file and checks each selected
// k-gram's region ordering. It touches no shared state and can run in
// parallel for different files.
func Fingerprint(filter fingerprint.Filter, tf *tokenizer.TokenizedFile) (*FileEntry, error) {
	if err := tf.Validate(); err != nil {
		return nil, err
	}

	kgrams := filter.Fingerprints(tf.Tokens)
	entry := &FileEntry{
		File:        tf,
		Kgrams:      kgrams,
		Shared:      make(map[uint64]*SharedFingerprint),
		occurrences: make([]*Occurrence, 0, len(kgrams)),
	}

	last := len(tf.Tokens) - 1
	for _, fp := range kgrams {
		startRegion := tf.Mapping[fp.Start]
		stopRegion := tf.Mapping[fp.Stop]
		// The final token may enclose the whole file.
		if !tokenizer.InOrder(startRegion, stopRegion) && fp.Stop != last {
			return nil, fmt.Errorf("%s: region %v of token %d starts after region %v of token %d: %w",
				tf.Path, startRegion, fp.Start, stopRegion, fp.Stop, tokenizer.ErrInvariant)
		}
		entry.occurrences = append(entry.occurrences, &Occurrence{
			FileID:     tf.ID,
			KgramIndex: fp.KgramIndex,
			Start:      fp.Start,
			Stop:       fp.Stop,
			Region:     tokenizer.Merge(startRegion, stopRegion),
			Data:       fp.Data,
		})
	}
	return entry, nil
}

// Suppression selects which fingerprints are too common to compare.
// MaxCount takes precedence over MaxFraction; zero disables a threshold.
type Suppression struct {
	// MaxCount ignores fingerprints present in more than MaxCount files.
	MaxCount int
	// MaxFraction ignores fingerprints present in more than this fraction
	// of all files.
	MaxFraction float64
}

// Builder collects files into an Index. Add and AddIgnoredFile may be called
// from multiple goroutines.
type Builder struct {
	filter fingerprint.Filter
	logger *slog.Logger

	mu       sync.Mutex
	finished bool
	files    []*FileEntry
	byID     map[int]*FileEntry
	shared   map[uint64]*SharedFingerprint
	template map[uint64]bool
}

// NewBuilder creates an empty index builder. A nil logger discards output.
func NewBuilder(filter fingerprint.Filter, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Builder{
		filter:   filter,
		logger:   logger,
		byID:     make(map[int]*FileEntry),
		shared:   make(map[uint64]*SharedFingerprint),
		template: make(map[uint64]bool),
	}
}

// Filter returns the builder's fingerprint filter.
func (b *Builder) Filter() fingerprint.Filter { return b.filter }

// AddFile fingerprints a file and adds it to the index.
func (b *Builder) AddFile(tf *tokenizer.TokenizedFile) error {
	entry, err := Fingerprint(b.filter, tf)
	if err != nil {
		return err
	}
	return b.Add(entry)
}

// Add merges a fingerprinted file into the index. Adding the same file id
// twice is an error.
func (b *Builder) Add(entry *FileEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkOpen()

	id := entry.ID()
	if prev, ok := b.byID[id]; ok {
		return fmt.Errorf("file id %d (%s) already indexed as %s: %w",
			id, entry.File.Path, prev.File.Path, tokenizer.ErrInvariant)
	}
	b.byID[id] = entry
	b.files = append(b.files, entry)

	for i, fp := range entry.Kgrams {
		sf, ok := b.shared[fp.Hash]
		if !ok {
			sf = newSharedFingerprint(fp.Hash)
			b.shared[fp.Hash] = sf
		}
		sf.add(entry.occurrences[i])
		entry.Shared[fp.Hash] = sf
	}
	return nil
}

// AddIgnoredFile registers a template file: every fingerprint it contains is
// ignored in all comparisons.
func (b *Builder) AddIgnoredFile(tf *tokenizer.TokenizedFile) error {
	entry, err := Fingerprint(b.filter, tf)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkOpen()
	for _, fp := range entry.Kgrams {
		b.template[fp.Hash] = true
	}
	return nil
}

func (b *Builder) checkOpen() {
	if b.finished {
		panic("index: builder used after Finish")
	}
}

// Finish marks ignored fingerprints and returns the immutable index.
// The builder must not be used afterwards.
func (b *Builder) Finish(s Suppression) *Index {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkOpen()
	b.finished = true

	sort.SliceStable(b.files, func(i, j int) bool {
		return b.files[i].ID() < b.files[j].ID()
	})

	idx := &Index{
		files:  b.files,
		byID:   b.byID,
		shared: b.shared,
		filter: b.filter,
	}

	n := len(b.files)
	for _, sf := range b.shared {
		switch {
		case b.template[sf.Hash]:
			sf.Ignored = true
		case s.MaxCount > 0:
			sf.Ignored = sf.FileCount() > s.MaxCount
		case s.MaxFraction > 0 && n > 0:
			sf.Ignored = float64(sf.FileCount())/float64(n) > s.MaxFraction
		}
		if sf.Ignored {
			idx.ignored++
		}
		if sf.FileCount() > 1 {
			idx.multiFile++
		}
	}

	for _, fe := range b.files {
		for _, fp := range fe.Kgrams {
			if fe.Shared[fp.Hash].Ignored {
				fe.IgnoredKgrams++
			}
		}
		idx.kgrams += len(fe.Kgrams)
	}

	b.logger.Debug("index finished",
		"files", n,
		"fingerprints", len(b.shared),
		"shared", idx.multiFile,
		"ignored", idx.ignored,
		"template_hashes", len(b.template))
	return idx
}

// Index is the frozen cross-file fingerprint index.
type Index struct {
	files     []*FileEntry
	byID      map[int]*FileEntry
	shared    map[uint64]*SharedFingerprint
	filter    fingerprint.Filter
	ignored   int
	multiFile int
	kgrams    int
}

// Files returns the indexed files ordered by id.
func (idx *Index) Files() []*FileEntry { return idx.files }

// File returns the entry for a file id, or nil.
func (idx *Index) File(id int) *FileEntry { return idx.byID[id] }

// Get returns the SharedFingerprint for a hash, or nil.
func (idx *Index) Get(hash uint64) *SharedFingerprint { return idx.shared[hash] }

// Size returns the number of distinct hashes.
func (idx *Index) Size() int { return len(idx.shared) }

// IgnoredCount returns the number of ignored fingerprints.
func (idx *Index) IgnoredCount() int { return idx.ignored }

// KgramCount returns the number of fingerprints emitted over all files.
func (idx *Index) KgramCount() int { return idx.kgrams }

// Filter returns the filter the index was built with.
func (idx *Index) Filter() fingerprint.Filter { return idx.filter }

// SharedFingerprints returns the fingerprints present in more than one
// file, ordered by hash.
func (idx *Index) SharedFingerprints() []*SharedFingerprint {
	out := make([]*SharedFingerprint, 0, idx.multiFile)
	for _, sf := range idx.shared {
		if sf.FileCount() > 1 {
			out = append(out, sf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}
