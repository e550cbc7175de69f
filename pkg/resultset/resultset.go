// Package resultset post-processes a pipeline's result stream: selecting
// which result kinds to keep per spec.md §4.7, suppressing Filtered
// results unless verbosity requests them, and deduplicating results that
// compare equal under result.Equal after a stable sort (spec.md §4.6).
package resultset

import (
	"sort"

	"github.com/pkgcheck-go/pkgcheck/pkg/keywords"
	"github.com/pkgcheck-go/pkgcheck/pkg/result"
)

// FilterOptions configures Filter.
type FilterOptions struct {
	// Selector decides which result kinds survive. A nil Selector keeps
	// everything.
	Selector *keywords.Selector
	// ShowFiltered includes results with the Filtered flag set; by
	// default they are suppressed, matching a scan's normal verbosity.
	ShowFiltered bool
}

// Filter keeps only the results FilterOptions allows through, preserving
// input order.
func Filter(results []result.Result, opts FilterOptions) []result.Result {
	out := make([]result.Result, 0, len(results))

	for _, r := range results {
		if r.Filtered && !opts.ShowFiltered {
			continue
		}

		if opts.Selector != nil && !opts.Selector.Enabled(r.Variant) {
			continue
		}

		out = append(out, r)
	}

	return out
}

// Dedup stable-sorts results by result.Less and removes adjacent
// duplicates under result.Equal, matching the ordering and equality
// spec.md §4.6 defines over the public payload fields.
func Dedup(results []result.Result) []result.Result {
	sorted := make([]result.Result, len(results))
	copy(sorted, results)

	sort.SliceStable(sorted, func(i, j int) bool {
		return result.Less(sorted[i], sorted[j])
	})

	out := make([]result.Result, 0, len(sorted))

	for i, r := range sorted {
		if i > 0 && result.Equal(r, sorted[i-1]) {
			continue
		}

		out = append(out, r)
	}

	return out
}
