// Package itemkind defines the closed, ordered set of item kinds and scopes
// that sources, transforms, and checks are described against.
package itemkind

import "fmt"

// Kind identifies the shape of a stream element flowing through a pipeline.
// The set is closed and ordered by refinement: a commit is the coarsest
// kind, an ebuild's parsed text the finest.
type Kind int

const (
	// Commit identifies a single VCS commit.
	Commit Kind = iota
	// Repo identifies the repository as a whole (the empty-key item).
	Repo
	// Category identifies an ebuild category (e.g. "dev-lang").
	Category
	// Package identifies a (category, package) pair.
	Package
	// Version identifies a (category, package, version) triple.
	Version
	// EbuildText identifies the raw text of a single ebuild file.
	EbuildText
	// EbuildAST identifies a parsed ebuild: its shell syntax tree plus the
	// global-scope variable assignments (SLOT, KEYWORDS, IUSE, ...)
	// extracted from it.
	EbuildAST

	numKinds = int(EbuildAST) + 1
)

// kindNames is a constant lookup table, built once, never mutated at
// runtime. It replaces the metaclass-injected name tables of the system
// this engine is modeled on.
var kindNames = [numKinds]string{
	Commit:     "commit",
	Repo:       "repo",
	Category:   "category",
	Package:    "package",
	Version:    "version",
	EbuildText: "ebuild-text",
	EbuildAST:  "ebuild-ast",
}

// String returns the canonical lower-case name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}

	return kindNames[k]
}

// Valid reports whether k is one of the closed set of defined kinds.
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < numKinds
}

// All returns every defined kind in refinement order.
func All() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}

	return out
}
