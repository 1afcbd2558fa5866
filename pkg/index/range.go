package index

import (
	"fmt"
	"sort"
)

// Range is an inclusive interval [From, To] of k-gram indices.
type Range struct {
	From int `json:"from" yaml:"from"`
	To   int `json:"to" yaml:"to"`
}

// NewRange creates the range [from, to].
func NewRange(from, to int) Range {
	if to < from {
		panic(fmt.Sprintf("index: invalid range [%d, %d]", from, to))
	}
	return Range{From: from, To: to}
}

// Single returns the range holding only i.
func Single(i int) Range { return Range{From: i, To: i} }

// Len returns the number of indices in the range.
func (r Range) Len() int { return r.To - r.From + 1 }

// Contains reports whether other lies entirely within r.
func (r Range) Contains(other Range) bool {
	return r.From <= other.From && other.To <= r.To
}

// Overlaps reports whether r and other share at least one index.
func (r Range) Overlaps(other Range) bool {
	return r.From <= other.To && other.From <= r.To
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.From, r.To)
}

// CompareRanges orders ranges by From, then To.
func CompareRanges(a, b Range) int {
	if a.From != b.From {
		if a.From < b.From {
			return -1
		}
		return 1
	}
	if a.To != b.To {
		if a.To < b.To {
			return -1
		}
		return 1
	}
	return 0
}

// MergeRanges returns the smallest range covering a and b. The ranges are
// expected to overlap or be adjacent.
func MergeRanges(a, b Range) Range {
	return Range{From: min(a.From, b.From), To: max(a.To, b.To)}
}

// TotalCovered counts the indices covered by ranges, each index once.
// The ranges may overlap; they are sorted in place.
func TotalCovered(ranges []Range) int {
	if len(ranges) == 0 {
		return 0
	}
	sort.Slice(ranges, func(i, j int) bool {
		return CompareRanges(ranges[i], ranges[j]) < 0
	})

	total := 0
	cur := ranges[0]
	for _, r := range ranges[1:] {
		if r.From <= cur.To+1 {
			cur.To = max(cur.To, r.To)
			continue
		}
		total += cur.Len()
		cur = r
	}
	return total + cur.Len()
}
