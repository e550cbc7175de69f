package item_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkgcheck-go/pkgcheck/pkg/item"
	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
	"github.com/pkgcheck-go/pkgcheck/pkg/pkgversion"
)

func TestLessByCategoryThenPackage(t *testing.T) {
	t.Parallel()

	a := item.Category{Name: "dev-lang"}.OrderKey()
	b := item.Category{Name: "sys-libs"}.OrderKey()

	assert.True(t, item.Less(a, b))
	assert.False(t, item.Less(b, a))
}

func TestLessByVersion(t *testing.T) {
	t.Parallel()

	low := item.Versioned{Category: "dev-lang", Name: "python", Ver: pkgversion.MustParse("3.9")}.OrderKey()
	high := item.Versioned{Category: "dev-lang", Name: "python", Ver: pkgversion.MustParse("3.11")}.OrderKey()

	assert.True(t, item.Less(low, high))
}

func TestVersionedKind(t *testing.T) {
	t.Parallel()

	v := item.Versioned{Category: "dev-lang", Name: "python", Ver: pkgversion.MustParse("3.11")}
	assert.Equal(t, itemkind.Version, v.Kind())
	assert.Equal(t, "dev-lang/python", v.Key())
}

func TestCommitOrderKeyFallsBackToID(t *testing.T) {
	t.Parallel()

	a := item.Commit{ID: "aaa"}.OrderKey()
	b := item.Commit{ID: "bbb"}.OrderKey()

	assert.True(t, item.Less(a, b))
}
