package fingerprint

import "math"

// Fingerprint is the hash of one selected k-gram and its position.
type Fingerprint struct {
	Hash uint64
	// Start and Stop are inclusive token indices; Stop-Start+1 == k.
	Start int
	Stop  int
	// KgramIndex is the sequence number among the fingerprints emitted
	// for this file.
	KgramIndex int
	// Data holds the k-gram's tokens. It aliases the input slice.
	Data []string
}

// Filter selects fingerprints from a token stream.
type Filter interface {
	// Fingerprints returns the selected fingerprints in emission order.
	Fingerprints(tokens []string) []Fingerprint
	// KgramLength returns k.
	KgramLength() int
}

// NewFilter returns a WinnowFilter for w > 1 and a NoFilter otherwise.
func NewFilter(k, w int) Filter {
	if w <= 1 {
		return NewNoFilter(k)
	}
	return NewWinnowFilter(k, w)
}

// NoFilter emits a fingerprint for every k-gram.
type NoFilter struct {
	k int
}

// NewNoFilter creates a filter that keeps every k-gram of length k.
func NewNoFilter(k int) *NoFilter {
	return &NoFilter{k: k}
}

// KgramLength returns k.
func (f *NoFilter) KgramLength() int { return f.k }

// Fingerprints returns max(0, len(tokens)-k+1) fingerprints.
func (f *NoFilter) Fingerprints(tokens []string) []Fingerprint {
	if len(tokens) < f.k {
		return nil
	}
	out := make([]Fingerprint, 0, len(tokens)-f.k+1)
	rh := NewRollingHash(f.k)
	for i, tok := range tokens {
		h := rh.Next(TokenValue(tok))
		if i < f.k-1 {
			continue
		}
		start := i - f.k + 1
		out = append(out, Fingerprint{
			Hash:       h,
			Start:      start,
			Stop:       i,
			KgramIndex: len(out),
			Data:       tokens[start : i+1],
		})
	}
	return out
}

// WinnowFilter selects fingerprints with the winnowing algorithm: in every
// window of w consecutive k-gram hashes the rightmost minimal hash is kept.
// A hash is emitted once per minimum instance, so consecutive windows that
// share their minimum produce one fingerprint.
type WinnowFilter struct {
	k int
	w int
}

// NewWinnowFilter creates a winnowing filter over k-grams of length k and
// windows of w k-grams.
func NewWinnowFilter(k, w int) *WinnowFilter {
	if w < 1 {
		w = 1
	}
	return &WinnowFilter{k: k, w: w}
}

// KgramLength returns k.
func (f *WinnowFilter) KgramLength() int { return f.k }

// Fingerprints returns the winnowed fingerprints of tokens.
func (f *WinnowFilter) Fingerprints(tokens []string) []Fingerprint {
	if len(tokens) < f.k {
		return nil
	}

	// Circular buffers of the last w k-gram hashes and the token index at
	// which each k-gram ends. Unfilled slots hold MaxUint64 and never win.
	hashes := make([]uint64, f.w)
	stops := make([]int, f.w)
	for i := range hashes {
		hashes[i] = math.MaxUint64
	}

	var out []Fingerprint
	emit := func(slot int) {
		stop := stops[slot]
		start := stop - f.k + 1
		out = append(out, Fingerprint{
			Hash:       hashes[slot],
			Start:      start,
			Stop:       stop,
			KgramIndex: len(out),
			Data:       tokens[start : stop+1],
		})
	}

	rh := NewRollingHash(f.k)
	bufferPos := 0
	minPos := 0
	for i, tok := range tokens {
		h := rh.Next(TokenValue(tok))
		if i < f.k-1 {
			continue
		}

		bufferPos = (bufferPos + 1) % f.w
		hashes[bufferPos] = h
		stops[bufferPos] = i

		if minPos == bufferPos {
			// The previous minimum left the window: rescan from the oldest
			// slot to the newest, keeping the rightmost minimum.
			for n := 1; n <= f.w; n++ {
				slot := (bufferPos + n) % f.w
				if hashes[slot] <= hashes[minPos] {
					minPos = slot
				}
			}
			emit(minPos)
			continue
		}

		if hashes[bufferPos] <= hashes[minPos] {
			minPos = bufferPos
			emit(minPos)
		}
	}
	return out
}
