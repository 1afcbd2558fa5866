package index

import (
	"sort"

	"github.com/jmylchreest/winnow/pkg/tokenizer"
)

// Separator is placed between the token data of two k-grams of a fragment
// whose token spans do not touch.
const Separator = "[...]"

// PairedOccurrence is one shared k-gram matched between two files.
type PairedOccurrence struct {
	Left        *Occurrence
	Right       *Occurrence
	Fingerprint *SharedFingerprint
}

func (p PairedOccurrence) key() kgramKey {
	return kgramKey{left: p.Left.KgramIndex, right: p.Right.KgramIndex}
}

// kgramKey addresses a position in the (left, right) k-gram index plane.
type kgramKey struct {
	left  int
	right int
}

func (k kgramKey) next() kgramKey { return kgramKey{left: k.left + 1, right: k.right + 1} }

// Fragment is a maximal run of consecutive k-grams shared by two files:
// the i-th pair sits at (LeftKgrams.From+i, RightKgrams.From+i).
type Fragment struct {
	Pairs       []PairedOccurrence
	LeftKgrams  Range
	RightKgrams Range
	// LeftTokens and RightTokens are the inclusive token index spans.
	LeftTokens  Range
	RightTokens Range
	LeftRegion  tokenizer.Region
	RightRegion tokenizer.Region

	data       []string
	mergedStop int
}

func newFragment(p PairedOccurrence) *Fragment {
	f := &Fragment{
		Pairs:       []PairedOccurrence{p},
		LeftKgrams:  Single(p.Left.KgramIndex),
		RightKgrams: Single(p.Right.KgramIndex),
		LeftTokens:  NewRange(p.Left.Start, p.Left.Stop),
		RightTokens: NewRange(p.Right.Start, p.Right.Stop),
		LeftRegion:  p.Left.Region,
		RightRegion: p.Right.Region,
		mergedStop:  p.Left.Stop,
	}
	f.data = append(f.data, p.Left.Data...)
	return f
}

// extend appends a pair that directly follows the fragment's last pair.
func (f *Fragment) extend(p PairedOccurrence) {
	f.Pairs = append(f.Pairs, p)
	f.LeftKgrams = MergeRanges(f.LeftKgrams, Single(p.Left.KgramIndex))
	f.RightKgrams = MergeRanges(f.RightKgrams, Single(p.Right.KgramIndex))
	f.LeftTokens = MergeRanges(f.LeftTokens, NewRange(p.Left.Start, p.Left.Stop))
	f.RightTokens = MergeRanges(f.RightTokens, NewRange(p.Right.Start, p.Right.Stop))
	f.LeftRegion = tokenizer.Merge(f.LeftRegion, p.Left.Region)
	f.RightRegion = tokenizer.Merge(f.RightRegion, p.Right.Region)
	f.spliceData(p.Left)
}

// spliceData adds the tokens of occ that are not yet covered by the
// fragment's data.
func (f *Fragment) spliceData(occ *Occurrence) {
	if occ.Start > f.mergedStop {
		f.data = append(f.data, Separator)
		f.data = append(f.data, occ.Data...)
		f.mergedStop = occ.Stop
		return
	}
	if occ.Stop > f.mergedStop {
		f.data = append(f.data, occ.Data[f.mergedStop-occ.Start+1:]...)
		f.mergedStop = occ.Stop
	}
}

// Len returns the number of k-grams in the fragment.
func (f *Fragment) Len() int { return len(f.Pairs) }

// MergedTokens returns the matched tokens of the left file, with Separator
// between spans that do not touch. Render them with TokenizedFile.Join.
func (f *Fragment) MergedTokens() []string { return f.data }

// run is a diagonal of adjacent keys, first and last inclusive.
type run struct {
	first kgramKey
	last  kgramKey
}

// Stitch joins paired occurrences into maximal fragments. The result does not
// depend on the order of pairs; it is sorted by left, then right, k-gram range.
//
// Runs are joined by their end keys in constant time per pair; each
// fragment's pairs and token data are then assembled once, in key order.
func Stitch(pairs []PairedOccurrence) []*Fragment {
	byKey := make(map[kgramKey]PairedOccurrence, len(pairs))
	byStart := make(map[kgramKey]*run, len(pairs))
	byEnd := make(map[kgramKey]*run, len(pairs))

	for _, p := range pairs {
		key := p.key()
		if _, dup := byKey[key]; dup {
			continue
		}
		byKey[key] = p

		r, ok := byEnd[key]
		if ok {
			delete(byEnd, key)
			r.last = key
		} else {
			r = &run{first: key, last: key}
			byStart[key] = r
		}

		if next, ok := byStart[r.last.next()]; ok {
			delete(byStart, next.first)
			delete(byEnd, next.last.next())
			r.last = next.last
		}
		byEnd[r.last.next()] = r
	}

	out := make([]*Fragment, 0, len(byStart))
	for _, r := range byStart {
		frag := newFragment(byKey[r.first])
		for key := r.first.next(); key != r.last.next(); key = key.next() {
			frag.extend(byKey[key])
		}
		out = append(out, frag)
	}
	SortFragments(out)
	return out
}

// SortFragments orders fragments by left k-gram range, then right.
func SortFragments(frags []*Fragment) {
	sort.Slice(frags, func(i, j int) bool {
		if c := CompareRanges(frags[i].LeftKgrams, frags[j].LeftKgrams); c != 0 {
			return c < 0
		}
		return CompareRanges(frags[i].RightKgrams, frags[j].RightKgrams) < 0
	})
}

// Squash removes every fragment whose left and right k-gram ranges are both
// contained in those of another fragment. Fragments that overlap on a single
// axis are kept. Squash is idempotent; the result is sorted like Stitch.
func Squash(frags []*Fragment) []*Fragment {
	if len(frags) < 2 {
		return frags
	}

	// Containers sort before the fragments they contain.
	sorted := make([]*Fragment, len(frags))
	copy(sorted, frags)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.LeftKgrams.From != b.LeftKgrams.From {
			return a.LeftKgrams.From < b.LeftKgrams.From
		}
		if a.LeftKgrams.To != b.LeftKgrams.To {
			return a.LeftKgrams.To > b.LeftKgrams.To
		}
		if a.RightKgrams.From != b.RightKgrams.From {
			return a.RightKgrams.From < b.RightKgrams.From
		}
		return a.RightKgrams.To > b.RightKgrams.To
	})

	kept := make([]*Fragment, 0, len(sorted))
	var open []*Fragment
	for _, f := range sorted {
		// Drop kept fragments that end before f starts on the left axis.
		n := 0
		for _, g := range open {
			if g.LeftKgrams.Overlaps(f.LeftKgrams) {
				open[n] = g
				n++
			}
		}
		open = open[:n]

		contained := false
		for _, g := range open {
			if g.LeftKgrams.Contains(f.LeftKgrams) && g.RightKgrams.Contains(f.RightKgrams) {
				contained = true
				break
			}
		}
		if contained {
			continue
		}
		kept = append(kept, f)
		open = append(open, f)
	}

	SortFragments(kept)
	return kept
}
