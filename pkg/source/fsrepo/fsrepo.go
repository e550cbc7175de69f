// Package fsrepo walks a Gentoo-style ebuild repository tree on disk
// (category/package/package-version.ebuild) and builds the Category,
// Package, Version, and EbuildText sources that back a real scan,
// complementing gitsource's commit-history source (spec.md §3, §4.1).
package fsrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkgcheck-go/pkgcheck/pkg/item"
	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
	"github.com/pkgcheck-go/pkgcheck/pkg/pkgversion"
	"github.com/pkgcheck-go/pkgcheck/pkg/source"
)

// reservedDirs are top-level repository directories that are not
// ebuild categories (e.g. "metadata", "profiles", ".git").
var reservedDirs = map[string]bool{
	"metadata": true,
	"profiles": true,
	"eclass":   true,
	"licenses": true,
	"scripts":  true,
	".git":     true,
}

// Scan walks root and returns, in canonical order, every Category,
// Package, Versioned, and EbuildText item the tree contains. Read
// errors for individual ebuild files are collected as metadata-style
// errors on the returned EbuildText items' Text field being empty
// rather than aborting the whole scan, since one unreadable ebuild
// should not prevent scanning the rest of the repository.
func Scan(root string) (Tree, error) {
	categoryEntries, err := os.ReadDir(root)
	if err != nil {
		return Tree{}, fmt.Errorf("fsrepo: read repository root %s: %w", root, err)
	}

	var tree Tree

	for _, catEntry := range categoryEntries {
		if !catEntry.IsDir() || reservedDirs[catEntry.Name()] || strings.HasPrefix(catEntry.Name(), ".") {
			continue
		}

		category := catEntry.Name()
		tree.Categories = append(tree.Categories, item.Category{Name: category})

		pkgEntries, err := os.ReadDir(filepath.Join(root, category))
		if err != nil {
			return Tree{}, fmt.Errorf("fsrepo: read category %s: %w", category, err)
		}

		for _, pkgEntry := range pkgEntries {
			if !pkgEntry.IsDir() {
				continue
			}

			pkgName := pkgEntry.Name()
			tree.Packages = append(tree.Packages, item.Package{Category: category, Name: pkgName})

			versioned, texts, err := scanPackageDir(root, category, pkgName)
			if err != nil {
				return Tree{}, err
			}

			tree.Versions = append(tree.Versions, versioned...)
			tree.EbuildTexts = append(tree.EbuildTexts, texts...)
		}
	}

	sort.Slice(tree.Categories, func(i, j int) bool {
		return tree.Categories[i].Name < tree.Categories[j].Name
	})
	sort.Slice(tree.Packages, func(i, j int) bool {
		return tree.Packages[i].Key() < tree.Packages[j].Key()
	})
	sort.Slice(tree.Versions, func(i, j int) bool {
		return item.Less(tree.Versions[i].OrderKey(), tree.Versions[j].OrderKey())
	})
	sort.Slice(tree.EbuildTexts, func(i, j int) bool {
		return item.Less(tree.EbuildTexts[i].OrderKey(), tree.EbuildTexts[j].OrderKey())
	})

	return tree, nil
}

func scanPackageDir(root, category, pkgName string) ([]item.Versioned, []item.EbuildText, error) {
	dir := filepath.Join(root, category, pkgName)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("fsrepo: read package %s/%s: %w", category, pkgName, err)
	}

	var (
		versioned []item.Versioned
		texts     []item.EbuildText
	)

	prefix := pkgName + "-"

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ebuild") {
			continue
		}

		base := strings.TrimSuffix(entry.Name(), ".ebuild")
		if !strings.HasPrefix(base, prefix) {
			continue
		}

		verStr := strings.TrimPrefix(base, prefix)

		ver, err := pkgversion.Parse(verStr)
		if err != nil {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("fsrepo: read ebuild %s/%s: %w", category, entry.Name(), err)
		}

		versioned = append(versioned, item.Versioned{
			Category: category,
			Name:     pkgName,
			Ver:      ver,
			Slot:     slotOf(content),
			Live:     strings.Contains(verStr, "9999"),
		})

		texts = append(texts, item.EbuildText{
			Category: category,
			Name:     pkgName,
			Ver:      ver,
			Text:     string(content),
		})
	}

	return versioned, texts, nil
}

// slotOf does a lightweight line-based scan for a top-level SLOT="..."
// assignment without a full parse, for the Versioned item's Slot field
// (the ebuildparse transform does the real syntax-tree based extraction
// once an EbuildAST is needed).
func slotOf(content []byte) string {
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)

		const prefix = `SLOT="`

		if strings.HasPrefix(line, prefix) {
			rest := line[len(prefix):]
			if idx := strings.IndexByte(rest, '"'); idx >= 0 {
				return rest[:idx]
			}
		}
	}

	return "0"
}

// Tree holds every item a Scan collected, already in canonical order.
type Tree struct {
	Categories  []item.Category
	Packages    []item.Package
	Versions    []item.Versioned
	EbuildTexts []item.EbuildText
}

// Sources builds the four source.Source values the planner consumes
// from a scanned Tree.
func (t Tree) Sources() []source.Source {
	categoryScope := itemkind.ScopeCategory
	packageScope := itemkind.ScopePackage
	versionScope := itemkind.ScopeVersion

	return []source.Source{
		source.NewSliceSource(itemkind.Category, &categoryScope, toItems(t.Categories)),
		source.NewSliceSource(itemkind.Package, &packageScope, toItems(t.Packages)),
		source.NewSliceSource(itemkind.Version, &versionScope, toItems(t.Versions)),
		source.NewSliceSource(itemkind.EbuildText, &versionScope, toItems(t.EbuildTexts)),
	}
}

func toItems[T item.Item](in []T) []item.Item {
	out := make([]item.Item, len(in))
	for i, v := range in {
		out[i] = v
	}

	return out
}
