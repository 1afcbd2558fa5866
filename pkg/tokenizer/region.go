package tokenizer

import "fmt"

// Region is a span of source text. Rows and columns are 0-based; the end
// column is exclusive.
type Region struct {
	StartRow int `json:"startRow" yaml:"startRow"`
	StartCol int `json:"startCol" yaml:"startCol"`
	EndRow   int `json:"endRow" yaml:"endRow"`
	EndCol   int `json:"endCol" yaml:"endCol"`
}

// NewRegion creates a region from its coordinates.
func NewRegion(startRow, startCol, endRow, endCol int) Region {
	return Region{StartRow: startRow, StartCol: startCol, EndRow: endRow, EndCol: endCol}
}

// String formats the region as "startRow:startCol-endRow:endCol" using
// 1-based rows, the way editors display positions.
func (r Region) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.StartRow+1, r.StartCol, r.EndRow+1, r.EndCol)
}

// Lines returns the number of source rows the region touches.
func (r Region) Lines() int {
	return r.EndRow - r.StartRow + 1
}

// startsBefore reports whether r starts at or before other.
func (r Region) startsBefore(other Region) bool {
	if r.StartRow != other.StartRow {
		return r.StartRow < other.StartRow
	}
	return r.StartCol <= other.StartCol
}

// endsAfter reports whether r ends at or after other.
func (r Region) endsAfter(other Region) bool {
	if r.EndRow != other.EndRow {
		return r.EndRow > other.EndRow
	}
	return r.EndCol >= other.EndCol
}

// InOrder reports whether a starts at or before b.
func InOrder(a, b Region) bool {
	return a.startsBefore(b)
}

// Merge returns the smallest region covering both a and b.
func Merge(a, b Region) Region {
	out := a
	if !a.startsBefore(b) {
		out.StartRow, out.StartCol = b.StartRow, b.StartCol
	}
	if !a.endsAfter(b) {
		out.EndRow, out.EndCol = b.EndRow, b.EndCol
	}
	return out
}
