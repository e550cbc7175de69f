package fsrepo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgcheck-go/pkgcheck/pkg/source/fsrepo"
)

func writeEbuild(t *testing.T, root, category, pkg, filename, content string) {
	t.Helper()

	dir := filepath.Join(root, category, pkg)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644))
}

func TestScanWalksCategoriesPackagesAndVersions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	writeEbuild(t, root, "dev-lang", "python", "python-3.11.ebuild", `EAPI=8
SLOT="3.11"
KEYWORDS="amd64 x86"
`)
	writeEbuild(t, root, "dev-lang", "python", "python-9999.ebuild", `EAPI=8
SLOT="9999"
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "metadata"), 0o755))

	tree, err := fsrepo.Scan(root)
	require.NoError(t, err)

	require.Len(t, tree.Categories, 1)
	assert.Equal(t, "dev-lang", tree.Categories[0].Name)

	require.Len(t, tree.Packages, 1)
	assert.Equal(t, "python", tree.Packages[0].Name)

	require.Len(t, tree.Versions, 2)
	assert.Equal(t, "3.11", tree.Versions[0].Slot)
	assert.True(t, tree.Versions[1].Live)

	require.Len(t, tree.EbuildTexts, 2)
}

func TestScanIgnoresReservedTopLevelDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "profiles"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	tree, err := fsrepo.Scan(root)
	require.NoError(t, err)
	assert.Empty(t, tree.Categories)
}

func TestSourcesBuildsFourSources(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeEbuild(t, root, "sys-libs", "zlib", "zlib-1.3.ebuild", `EAPI=8
SLOT="0"
`)

	tree, err := fsrepo.Scan(root)
	require.NoError(t, err)

	srcs := tree.Sources()
	require.Len(t, srcs, 4)
}
