package resultset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkgcheck-go/pkgcheck/pkg/keywords"
	"github.com/pkgcheck-go/pkgcheck/pkg/result"
	"github.com/pkgcheck-go/pkgcheck/pkg/resultset"
)

func TestFilterSuppressesFilteredByDefault(t *testing.T) {
	t.Parallel()

	results := []result.Result{
		{Variant: result.KindVersioned, Message: "live"},
		{Variant: result.KindFilteredVersion, Filtered: true, Message: "old"},
	}

	out := resultset.Filter(results, resultset.FilterOptions{})
	assert.Len(t, out, 1)
	assert.Equal(t, "live", out[0].Message)
}

func TestFilterShowFilteredIncludesThem(t *testing.T) {
	t.Parallel()

	results := []result.Result{
		{Variant: result.KindFilteredVersion, Filtered: true, Message: "old"},
	}

	out := resultset.Filter(results, resultset.FilterOptions{ShowFiltered: true})
	assert.Len(t, out, 1)
}

func TestFilterAppliesSelector(t *testing.T) {
	t.Parallel()

	sel := keywords.New([]string{"MetadataError"}, nil)
	results := []result.Result{
		{Variant: result.KindVersioned, Message: "v"},
		{Variant: result.KindMetadataError, Message: "m"},
	}

	out := resultset.Filter(results, resultset.FilterOptions{Selector: sel})
	assert.Len(t, out, 1)
	assert.Equal(t, "m", out[0].Message)
}

func TestDedupRemovesAdjacentDuplicates(t *testing.T) {
	t.Parallel()

	results := []result.Result{
		{Variant: result.KindVersioned, Category: "dev-lang", Package: "python", Message: "x"},
		{Variant: result.KindVersioned, Category: "dev-lang", Package: "python", Message: "x"},
	}

	out := resultset.Dedup(results)
	assert.Len(t, out, 1)
}
