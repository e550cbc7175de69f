// Package item defines the concrete per-kind item values that flow through
// sources, transforms, and checks (spec.md §3 "Item model").
package item

import (
	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
	"github.com/pkgcheck-go/pkgcheck/pkg/pkgversion"
)

// Item is any value flowing through a pipeline. Every concrete item type
// below implements it.
type Item interface {
	// Kind reports which item-kind this value belongs to.
	Kind() itemkind.Kind
	// OrderKey returns the canonical sort key used by sources, the
	// interleaver, and result ordering.
	OrderKey() OrderKey
}

// OrderKey is the canonical comparison key: category, then package, then
// version (numeric ebuild-version compare), falling back to a commit id
// for commit-kind items that carry neither. Two items compare equal under
// Less iff neither's key is less than the other's.
type OrderKey struct {
	Category   string
	Package    string
	Version    pkgversion.Version
	HasVersion bool
	Commit     string
}

// Less implements the canonical item order described in spec.md §3 and
// §4.3: category, then package, then version-compare; commit-only keys
// (no category/package) compare by commit id.
func Less(a, b OrderKey) bool {
	if a.Category != b.Category {
		return a.Category < b.Category
	}

	if a.Package != b.Package {
		return a.Package < b.Package
	}

	switch {
	case a.HasVersion && b.HasVersion:
		return pkgversion.Less(a.Version, b.Version)
	case a.HasVersion != b.HasVersion:
		return !a.HasVersion
	default:
		return a.Commit < b.Commit
	}
}

// Commit is a single VCS commit.
type Commit struct {
	ID string
}

// Kind implements Item.
func (c Commit) Kind() itemkind.Kind { return itemkind.Commit }

// OrderKey implements Item.
func (c Commit) OrderKey() OrderKey { return OrderKey{Commit: c.ID} }

// Repo is the singleton whole-repository item.
type Repo struct{}

// Kind implements Item.
func (Repo) Kind() itemkind.Kind { return itemkind.Repo }

// OrderKey implements Item.
func (Repo) OrderKey() OrderKey { return OrderKey{} }

// Category identifies an ebuild category.
type Category struct {
	Name string
}

// Kind implements Item.
func (c Category) Kind() itemkind.Kind { return itemkind.Category }

// OrderKey implements Item.
func (c Category) OrderKey() OrderKey { return OrderKey{Category: c.Name} }

// Package identifies a (category, package) pair.
type Package struct {
	Category string
	Name     string
}

// Kind implements Item.
func (p Package) Kind() itemkind.Kind { return itemkind.Package }

// OrderKey implements Item.
func (p Package) OrderKey() OrderKey {
	return OrderKey{Category: p.Category, Package: p.Name}
}

// Key returns the (category, package) identity string used to group
// versioned items (spec.md §4.5).
func (p Package) Key() string { return p.Category + "/" + p.Name }

// Versioned identifies a (category, package, version) triple. It carries
// the extra fields (slot, live) spec.md §6 requires external sources to
// expose for the latest-package filter.
type Versioned struct {
	Category string
	Name     string
	Ver      pkgversion.Version
	Slot     string
	Live     bool
	// Filtered marks a version the latest-package filter (spec.md §4.5)
	// did not select as a slot winner but still passed through in its
	// partial mode, rather than a separate wrapper type intercepting
	// attribute access.
	Filtered bool
}

// Kind implements Item.
func (v Versioned) Kind() itemkind.Kind { return itemkind.Version }

// OrderKey implements Item.
func (v Versioned) OrderKey() OrderKey {
	return OrderKey{Category: v.Category, Package: v.Name, Version: v.Ver, HasVersion: true}
}

// Key returns the (category, package) identity string this version
// belongs to, matching Package.Key.
func (v Versioned) Key() string { return v.Category + "/" + v.Name }

// FullVer returns the version component as a string.
func (v Versioned) FullVer() string { return v.Ver.String() }

// EbuildText is the raw text of a single ebuild file.
type EbuildText struct {
	Category string
	Name     string
	Ver      pkgversion.Version
	Text     string
}

// Kind implements Item.
func (e EbuildText) Kind() itemkind.Kind { return itemkind.EbuildText }

// OrderKey implements Item.
func (e EbuildText) OrderKey() OrderKey {
	return OrderKey{Category: e.Category, Package: e.Name, Version: e.Ver, HasVersion: true}
}

// EbuildVar is one global-scope shell variable assignment extracted from
// an ebuild's syntax tree (e.g. SLOT="0", KEYWORDS="amd64 x86").
type EbuildVar struct {
	Name  string
	Value string
}

// EbuildAST is a parsed ebuild: the global-scope variable assignments a
// bash-grammar parse extracted from its text, plus the raw text it was
// parsed from so checks that need positions can re-derive them.
type EbuildAST struct {
	Category string
	Name     string
	Ver      pkgversion.Version
	Text     string
	Vars     []EbuildVar
}

// Kind implements Item.
func (e EbuildAST) Kind() itemkind.Kind { return itemkind.EbuildAST }

// OrderKey implements Item.
func (e EbuildAST) OrderKey() OrderKey {
	return OrderKey{Category: e.Category, Package: e.Name, Version: e.Ver, HasVersion: true}
}

// Var returns the value of the named global variable and whether it was
// assigned in this ebuild.
func (e EbuildAST) Var(name string) (string, bool) {
	for _, v := range e.Vars {
		if v.Name == name {
			return v.Value, true
		}
	}

	return "", false
}
