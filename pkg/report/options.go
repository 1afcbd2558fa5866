package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/winnow/pkg/fingerprint"
	"github.com/jmylchreest/winnow/pkg/index"
)

var (
	// ErrTooFewFiles is returned when fewer than two files are compared.
	ErrTooFewFiles = errors.New("at least two files are required")
	// ErrDegenerateThreshold is returned when a percentage threshold is
	// combined with exactly two files: every shared fingerprint is then
	// present in 100% of the files.
	ErrDegenerateThreshold = errors.New("max fingerprint percentage is meaningless with two files")
)

// ValidationError lists every option that is out of bounds.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid options: " + strings.Join(e.Problems, "; ")
}

// SortKey selects the pair ordering.
type SortKey string

const (
	SortByTotal      SortKey = "total"
	SortByLongest    SortKey = "longest"
	SortBySimilarity SortKey = "similarity"
)

// SortKeys returns the accepted sort keys.
func SortKeys() []SortKey {
	return []SortKey{SortByTotal, SortByLongest, SortBySimilarity}
}

// Options configures a comparison run.
type Options struct {
	// KgramLength is k, the number of tokens per k-gram.
	KgramLength int `koanf:"k" json:"k" yaml:"k"`
	// KgramsInWindow is w, the winnowing window in k-grams.
	KgramsInWindow int `koanf:"w" json:"w" yaml:"w"`
	// NoWinnow keeps every k-gram instead of winnowing.
	NoWinnow bool `koanf:"no_winnow" json:"no_winnow" yaml:"no_winnow"`
	// MinFragmentLength drops fragments with fewer k-grams.
	MinFragmentLength int `koanf:"min_fragment_length" json:"min_fragment_length" yaml:"min_fragment_length"`
	// MinSimilarity drops pairs scoring below it.
	MinSimilarity float64 `koanf:"min_similarity" json:"min_similarity" yaml:"min_similarity"`
	// MaxFingerprintCount ignores fingerprints present in more files.
	// It takes precedence over MaxFingerprintPercentage.
	MaxFingerprintCount int `koanf:"max_fingerprint_count" json:"max_fingerprint_count" yaml:"max_fingerprint_count"`
	// MaxFingerprintPercentage ignores fingerprints present in a larger
	// fraction of the files.
	MaxFingerprintPercentage float64 `koanf:"max_fingerprint_percentage" json:"max_fingerprint_percentage" yaml:"max_fingerprint_percentage"`
	// LimitResults keeps the first N pairs after sorting. 0 is unlimited.
	LimitResults int     `koanf:"limit" json:"limit" yaml:"limit"`
	SortBy       SortKey `koanf:"sort_by" json:"sort_by" yaml:"sort_by"`
	// Workers bounds the goroutines fingerprinting files and building
	// pairs. 0 uses GOMAXPROCS.
	Workers int `koanf:"workers" json:"-" yaml:"-"`
}

// DefaultOptions returns the default comparison options.
func DefaultOptions() Options {
	return Options{
		KgramLength:       DefaultKgramLength,
		KgramsInWindow:    DefaultKgramsInWindow,
		MinFragmentLength: DefaultMinFragmentLength,
		MinSimilarity:     DefaultMinSimilarity,
		LimitResults:      DefaultLimitResults,
		SortBy:            DefaultSortBy,
	}
}

// Validate checks every option and reports all violations at once.
func (o Options) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if o.KgramLength < 1 {
		add("k must be at least 1 (got %d)", o.KgramLength)
	}
	if o.KgramsInWindow < 1 {
		add("w must be at least 1 (got %d)", o.KgramsInWindow)
	}
	if o.MinFragmentLength < 0 {
		add("min fragment length must not be negative (got %d)", o.MinFragmentLength)
	}
	if o.MinSimilarity < 0 || o.MinSimilarity > 1 {
		add("min similarity must be in [0, 1] (got %g)", o.MinSimilarity)
	}
	if o.MaxFingerprintCount < 0 {
		add("max fingerprint count must not be negative (got %d)", o.MaxFingerprintCount)
	}
	if o.MaxFingerprintPercentage < 0 || o.MaxFingerprintPercentage > 1 {
		add("max fingerprint percentage must be in [0, 1] (got %g)", o.MaxFingerprintPercentage)
	}
	if o.LimitResults < 0 {
		add("limit must not be negative (got %d)", o.LimitResults)
	}
	if o.Workers < 0 {
		add("workers must not be negative (got %d)", o.Workers)
	}
	valid := false
	for _, k := range SortKeys() {
		if o.SortBy == k {
			valid = true
		}
	}
	if !valid {
		add("sort by must be one of total, longest, similarity (got %q)", o.SortBy)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Filter returns the fingerprint filter the options select.
func (o Options) Filter() fingerprint.Filter {
	if o.NoWinnow {
		return fingerprint.NewNoFilter(o.KgramLength)
	}
	return fingerprint.NewFilter(o.KgramLength, o.KgramsInWindow)
}

// suppression resolves the fingerprint thresholds. Count wins when both
// are set.
func (o Options) suppression() index.Suppression {
	if o.MaxFingerprintCount > 0 {
		return index.Suppression{MaxCount: o.MaxFingerprintCount}
	}
	return index.Suppression{MaxFraction: o.MaxFingerprintPercentage}
}
