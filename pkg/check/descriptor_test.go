package check_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkgcheck-go/pkgcheck/pkg/check"
	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
)

func TestNewDescriptorNormalizesName(t *testing.T) {
	t.Parallel()

	d := check.NewDescriptor("UnusedInPkgMetadataCheck", itemkind.Version, itemkind.ScopeVersion)

	assert.Equal(t, "unused-in-pkg-metadata-check", d.ID)
	assert.Equal(t, itemkind.Version, d.Kind)
	assert.Equal(t, itemkind.ScopeVersion, d.Scope)
}

func TestDescriptorString(t *testing.T) {
	t.Parallel()

	d := check.NewDescriptor("Foo", itemkind.Category, itemkind.ScopeCategory)
	assert.Contains(t, d.String(), "Foo")
	assert.Contains(t, d.String(), "category")
}
