// Package report runs a full comparison: it fingerprints every file, builds
// the cross-file index, compares every file pair that shares a fingerprint,
// and returns an immutable, sorted Report.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/winnow/pkg/index"
	"github.com/jmylchreest/winnow/pkg/logging"
	"github.com/jmylchreest/winnow/pkg/tokenizer"
)

// maxWorkers caps the default worker count.
const maxWorkers = 16

// Stats summarizes a run.
type Stats struct {
	Files               int           `json:"files" yaml:"files"`
	IgnoredFiles        int           `json:"ignored_files" yaml:"ignored_files"`
	Tokens              int           `json:"tokens" yaml:"tokens"`
	Kgrams              int           `json:"kgrams" yaml:"kgrams"`
	Fingerprints        int           `json:"fingerprints" yaml:"fingerprints"`
	SharedFingerprints  int           `json:"shared_fingerprints" yaml:"shared_fingerprints"`
	IgnoredFingerprints int           `json:"ignored_fingerprints" yaml:"ignored_fingerprints"`
	CandidatePairs      int           `json:"candidate_pairs" yaml:"candidate_pairs"`
	Pairs               int           `json:"pairs" yaml:"pairs"`
	Fragments           int           `json:"fragments" yaml:"fragments"`
	PercentageIgnored   bool          `json:"percentage_ignored,omitempty" yaml:"percentage_ignored,omitempty"`
	FingerprintDuration time.Duration `json:"fingerprint_duration" yaml:"fingerprint_duration"`
	CompareDuration     time.Duration `json:"compare_duration" yaml:"compare_duration"`
}

// Builder collects tokenized files for a run. Finish consumes it.
type Builder struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	finished bool
	files    []*tokenizer.TokenizedFile
	ignored  []*tokenizer.TokenizedFile
}

// NewBuilder validates opts and returns an empty builder. A nil logger
// discards output.
func NewBuilder(opts Options, logger *slog.Logger) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Builder{opts: opts, logger: logger}, nil
}

// AddFile adds a file to compare.
func (b *Builder) AddFile(tf *tokenizer.TokenizedFile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkOpen()
	b.files = append(b.files, tf)
}

// AddIgnoredFile adds a template file whose fingerprints are ignored in
// every comparison.
func (b *Builder) AddIgnoredFile(tf *tokenizer.TokenizedFile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkOpen()
	b.ignored = append(b.ignored, tf)
}

func (b *Builder) checkOpen() {
	if b.finished {
		panic("report: builder used after Finish")
	}
}

func (b *Builder) workers() int {
	if b.opts.Workers > 0 {
		return b.opts.Workers
	}
	return max(1, min(runtime.GOMAXPROCS(0), maxWorkers))
}

// Finish runs the comparison and returns the frozen report. Empty results
// are not an error.
func (b *Builder) Finish(ctx context.Context) (*Report, error) {
	b.mu.Lock()
	b.checkOpen()
	b.finished = true
	files, ignored := b.files, b.ignored
	b.mu.Unlock()

	opts := b.opts
	if len(files) < 2 {
		return nil, fmt.Errorf("%w (got %d)", ErrTooFewFiles, len(files))
	}
	stats := Stats{Files: len(files), IgnoredFiles: len(ignored)}
	if opts.MaxFingerprintPercentage > 0 {
		switch {
		case opts.MaxFingerprintCount > 0:
			b.logger.Warn("both fingerprint thresholds set, using the count",
				"max_fingerprint_count", opts.MaxFingerprintCount,
				"max_fingerprint_percentage", opts.MaxFingerprintPercentage)
			stats.PercentageIgnored = true
		case len(files) == 2:
			return nil, ErrDegenerateThreshold
		}
	}

	start := time.Now()
	idx, err := b.buildIndex(ctx, files, ignored)
	if err != nil {
		return nil, err
	}
	stats.FingerprintDuration = time.Since(start)

	for _, fe := range idx.Files() {
		stats.Tokens += len(fe.File.Tokens)
	}
	shared := idx.SharedFingerprints()
	stats.Kgrams = idx.KgramCount()
	stats.Fingerprints = idx.Size()
	stats.SharedFingerprints = len(shared)
	stats.IgnoredFingerprints = idx.IgnoredCount()

	start = time.Now()
	candidates := candidatePairs(shared)
	stats.CandidatePairs = len(candidates)
	pairs, err := b.comparePairs(ctx, idx, candidates)
	if err != nil {
		return nil, err
	}
	stats.CompareDuration = time.Since(start)

	sortPairs(pairs, opts.SortBy)
	if opts.LimitResults > 0 && len(pairs) > opts.LimitResults {
		pairs = pairs[:opts.LimitResults]
	}
	stats.Pairs = len(pairs)
	for _, p := range pairs {
		stats.Fragments += len(p.Fragments)
	}

	b.logger.Info("comparison finished",
		"files", stats.Files,
		"fingerprints", stats.Fingerprints,
		"ignored_fingerprints", stats.IgnoredFingerprints,
		"candidate_pairs", stats.CandidatePairs,
		"pairs", stats.Pairs)

	return &Report{
		runID:     ulid.Make().String(),
		createdAt: time.Now().UTC(),
		opts:      opts,
		index:     idx,
		shared:    shared,
		pairs:     pairs,
		stats:     stats,
	}, nil
}

// buildIndex fingerprints files in parallel and merges them into the index
// in input order.
func (b *Builder) buildIndex(ctx context.Context, files, ignored []*tokenizer.TokenizedFile) (*index.Index, error) {
	filter := b.opts.Filter()
	entries := make([]*index.FileEntry, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())
	for i, tf := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := index.Fingerprint(filter, tf)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ib := index.NewBuilder(filter, b.logger)
	for _, tf := range ignored {
		if err := ib.AddIgnoredFile(tf); err != nil {
			return nil, fmt.Errorf("ignored file %s: %w", tf.Path, err)
		}
	}
	for _, entry := range entries {
		if err := ib.Add(entry); err != nil {
			return nil, err
		}
	}
	return ib.Finish(b.opts.suppression()), nil
}

type filePair struct {
	left, right int
}

// candidatePairs returns every file pair sharing a non-ignored fingerprint,
// ordered by left then right id.
func candidatePairs(shared []*index.SharedFingerprint) []filePair {
	seen := make(map[filePair]struct{})
	for _, sf := range shared {
		if sf.Ignored {
			continue
		}
		ids := sf.Files()
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				seen[filePair{ids[i], ids[j]}] = struct{}{}
			}
		}
	}
	out := make([]filePair, 0, len(seen))
	for fp := range seen {
		out = append(out, fp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].left != out[j].left {
			return out[i].left < out[j].left
		}
		return out[i].right < out[j].right
	})
	return out
}

// comparePairs builds and scores candidate pairs on a bounded pool and
// keeps those with fragments above the similarity threshold, in candidate
// order.
func (b *Builder) comparePairs(ctx context.Context, idx *index.Index, candidates []filePair) ([]*index.Pair, error) {
	pairOpts := index.PairOptions{MinFragmentLength: b.opts.MinFragmentLength}
	built := make([]*index.Pair, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			built[i] = index.BuildPair(idx.File(c.left), idx.File(c.right), pairOpts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pairs := make([]*index.Pair, 0, len(built))
	for _, p := range built {
		if len(p.Fragments) == 0 || p.Similarity < b.opts.MinSimilarity {
			continue
		}
		pairs = append(pairs, p)
	}
	b.logger.Debug("pairs compared", "candidates", len(candidates), "kept", len(pairs))
	return pairs, nil
}

// sortPairs orders pairs by the key, highest first. Ties keep their order.
func sortPairs(pairs []*index.Pair, key SortKey) {
	var less func(a, b *index.Pair) bool
	switch key {
	case SortByLongest:
		less = func(a, b *index.Pair) bool { return a.Longest > b.Longest }
	case SortBySimilarity:
		less = func(a, b *index.Pair) bool { return a.Similarity > b.Similarity }
	default:
		less = func(a, b *index.Pair) bool { return a.Overlap() > b.Overlap() }
	}
	sort.SliceStable(pairs, func(i, j int) bool { return less(pairs[i], pairs[j]) })
}

// Report is the immutable result of a run.
type Report struct {
	runID     string
	createdAt time.Time
	opts      Options
	index     *index.Index
	shared    []*index.SharedFingerprint
	pairs     []*index.Pair
	stats     Stats
}

// RunID returns the run's ULID.
func (r *Report) RunID() string { return r.runID }

// CreatedAt returns when the report was finished.
func (r *Report) CreatedAt() time.Time { return r.createdAt }

// Options returns the options the run used.
func (r *Report) Options() Options { return r.opts }

// Files returns the compared files ordered by id.
func (r *Report) Files() []*index.FileEntry { return r.index.Files() }

// File returns a compared file by id, or nil.
func (r *Report) File(id int) *index.FileEntry { return r.index.File(id) }

// Pairs returns the scored pairs in report order.
func (r *Report) Pairs() []*index.Pair { return r.pairs }

// SharedFingerprints returns the fingerprints present in more than one
// file, ordered by hash.
func (r *Report) SharedFingerprints() []*index.SharedFingerprint { return r.shared }

// Stats returns the run statistics.
func (r *Report) Stats() Stats { return r.stats }
