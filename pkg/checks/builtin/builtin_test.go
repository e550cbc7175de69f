package builtin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgcheck-go/pkgcheck/pkg/checks/builtin"
	"github.com/pkgcheck-go/pkgcheck/pkg/item"
	"github.com/pkgcheck-go/pkgcheck/pkg/pkgversion"
	"github.com/pkgcheck-go/pkgcheck/pkg/result"
)

func TestMissingSlotCheckFlagsAbsentSlot(t *testing.T) {
	t.Parallel()

	c := builtin.NewMissingSlotCheck()
	ast := item.EbuildAST{
		Category: "dev-lang", Name: "example", Ver: pkgversion.MustParse("1.0"),
		Vars: []item.EbuildVar{{Name: "DESCRIPTION", Value: "x"}},
	}

	res, err := c.Feed(context.Background(), ast)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, builtin.KindMissingSlot, res[0].Variant)
	assert.Equal(t, "SLOT", res[0].Attribute)
	assert.Equal(t, result.ThresholdVersion, res[0].Threshold)
}

func TestMissingSlotCheckIgnoresEbuildWithSlot(t *testing.T) {
	t.Parallel()

	c := builtin.NewMissingSlotCheck()
	ast := item.EbuildAST{
		Category: "dev-lang", Name: "example", Ver: pkgversion.MustParse("1.0"),
		Vars: []item.EbuildVar{{Name: "SLOT", Value: "0"}},
	}

	res, err := c.Feed(context.Background(), ast)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestLiveVersionStableCheckFlagsStableKeyword(t *testing.T) {
	t.Parallel()

	c := builtin.NewLiveVersionStableCheck()
	ast := item.EbuildAST{
		Category: "dev-lang", Name: "example", Ver: pkgversion.MustParse("9999"),
		Vars: []item.EbuildVar{{Name: "KEYWORDS", Value: "amd64 ~x86"}},
	}

	res, err := c.Feed(context.Background(), ast)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, builtin.KindLiveVersionStable, res[0].Variant)
	assert.Contains(t, res[0].Message, "amd64")
}

func TestLiveVersionStableCheckIgnoresAllUnstableKeywords(t *testing.T) {
	t.Parallel()

	c := builtin.NewLiveVersionStableCheck()
	ast := item.EbuildAST{
		Category: "dev-lang", Name: "example", Ver: pkgversion.MustParse("9999"),
		Vars: []item.EbuildVar{{Name: "KEYWORDS", Value: "~amd64 ~x86"}},
	}

	res, err := c.Feed(context.Background(), ast)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestLiveVersionStableCheckIgnoresNonLiveVersions(t *testing.T) {
	t.Parallel()

	c := builtin.NewLiveVersionStableCheck()
	ast := item.EbuildAST{
		Category: "dev-lang", Name: "example", Ver: pkgversion.MustParse("1.0"),
		Vars: []item.EbuildVar{{Name: "KEYWORDS", Value: "amd64"}},
	}

	res, err := c.Feed(context.Background(), ast)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestAllReturnsBothBuiltinChecks(t *testing.T) {
	t.Parallel()

	checks := builtin.All()
	require.Len(t, checks, 2)

	for _, c := range checks {
		d := c.Descriptor()
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.KnownResults)
	}
}
