package report

// Default option values. These are the single source of truth for
// DefaultOptions, the CLI help text and the config defaults layer.
const (
	// DefaultKgramLength is the number of tokens hashed into one k-gram.
	DefaultKgramLength = 50

	// DefaultKgramsInWindow is the winnowing window size in k-grams.
	DefaultKgramsInWindow = 40

	// DefaultMinFragmentLength is the minimum number of k-grams a fragment
	// needs to be kept. 0 keeps every fragment.
	DefaultMinFragmentLength = 0

	// DefaultMinSimilarity drops pairs scoring below it. 0 disables the
	// filter.
	DefaultMinSimilarity = 0.0

	// DefaultLimitResults caps the number of reported pairs. 0 is unlimited.
	DefaultLimitResults = 0

	// DefaultSortBy orders pairs by total overlap.
	DefaultSortBy = SortByTotal
)
