package index

import (
	"sort"
)

// PairOptions configures fragment filtering for a pair.
type PairOptions struct {
	// MinFragmentLength discards fragments with fewer k-grams.
	MinFragmentLength int
}

// Pair is the comparison of two files. Left has the lower file id.
type Pair struct {
	Left  *FileEntry
	Right *FileEntry
	// Shared are the non-ignored fingerprints both files contain, by hash.
	Shared    []*SharedFingerprint
	Fragments []*Fragment

	LeftCovered  int
	RightCovered int
	LeftTotal    int
	RightTotal   int
	LeftIgnored  int
	RightIgnored int
	// Longest is the longest run of consecutive k-grams shared in order.
	Longest    int
	Similarity float64
}

// Overlap returns the number of covered k-grams in both files.
func (p *Pair) Overlap() int { return p.LeftCovered + p.RightCovered }

// BuildPair intersects the fingerprints of two files, stitches the shared
// k-grams into fragments, squashes them and scores the pair. Ignored
// fingerprints take no part. A pair without fragments has zero scores.
func BuildPair(a, b *FileEntry, opts PairOptions) *Pair {
	left, right := a, b
	if right.ID() < left.ID() {
		left, right = right, left
	}

	p := &Pair{
		Left:         left,
		Right:        right,
		LeftTotal:    len(left.Kgrams),
		RightTotal:   len(right.Kgrams),
		LeftIgnored:  left.IgnoredKgrams,
		RightIgnored: right.IgnoredKgrams,
	}

	p.Shared = intersect(left, right)
	if len(p.Shared) == 0 {
		return p
	}

	var paired []PairedOccurrence
	for _, sf := range p.Shared {
		for _, l := range sf.Occurrences(left.ID()) {
			for _, r := range sf.Occurrences(right.ID()) {
				paired = append(paired, PairedOccurrence{Left: l, Right: r, Fingerprint: sf})
			}
		}
	}

	frags := Stitch(paired)
	if opts.MinFragmentLength > 0 {
		n := 0
		for _, f := range frags {
			if f.Len() >= opts.MinFragmentLength {
				frags[n] = f
				n++
			}
		}
		frags = frags[:n]
	}
	p.Fragments = Squash(frags)
	if len(p.Fragments) == 0 {
		return p
	}

	p.score()
	return p
}

// intersect returns the non-ignored fingerprints shared by both files,
// ordered by hash. It walks the smaller file's set.
func intersect(a, b *FileEntry) []*SharedFingerprint {
	small, large := a, b
	if len(large.Shared) < len(small.Shared) {
		small, large = large, small
	}
	var out []*SharedFingerprint
	for hash, sf := range small.Shared {
		if sf.Ignored {
			continue
		}
		if _, ok := large.Shared[hash]; ok {
			out = append(out, sf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

func (p *Pair) score() {
	leftRanges := make([]Range, len(p.Fragments))
	rightRanges := make([]Range, len(p.Fragments))
	for i, f := range p.Fragments {
		leftRanges[i] = f.LeftKgrams
		rightRanges[i] = f.RightKgrams
	}
	p.LeftCovered = TotalCovered(leftRanges)
	p.RightCovered = TotalCovered(rightRanges)

	denom := p.LeftTotal + p.RightTotal - p.LeftIgnored - p.RightIgnored
	if denom > 0 {
		p.Similarity = float64(p.LeftCovered+p.RightCovered) / float64(denom)
	}

	p.Longest = LongestCommonRun(p.Left, p.Right)
}

// LongestCommonRun returns the length of the longest run of consecutive
// k-grams whose hashes appear in the same order in both files. Ignored
// fingerprints never match. It keeps a single sparse DP row keyed by the
// inner file's k-gram index, touching only the positions of each hash.
func LongestCommonRun(a, b *FileEntry) int {
	outer, inner := a, b
	if len(outer.Kgrams) > len(inner.Kgrams) {
		outer, inner = inner, outer
	}

	positions := make(map[uint64][]int)
	for j, k := range inner.Kgrams {
		positions[k.Hash] = append(positions[k.Hash], j)
	}

	// prev[j] is the run length ending at the previous outer k-gram and
	// inner k-gram j.
	prev := map[int]int{}
	longest := 0
	for _, o := range outer.Kgrams {
		if sf := outer.Shared[o.Hash]; sf == nil || sf.Ignored {
			if len(prev) > 0 {
				prev = map[int]int{}
			}
			continue
		}
		js := positions[o.Hash]
		cur := make(map[int]int, len(js))
		for _, j := range js {
			run := prev[j-1] + 1
			cur[j] = run
			longest = max(longest, run)
		}
		prev = cur
	}
	return longest
}
