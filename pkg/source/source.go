// Package source defines where item streams originate: the repository,
// its commit history, or a derived stream produced by a transform further
// down the pipeline (spec.md §4.1, §5).
package source

import (
	"context"
	"errors"

	"github.com/pkgcheck-go/pkgcheck/pkg/item"
	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
)

// ErrIteratorExhausted is returned by Next once a source has no more
// items; callers should treat it the same as io.EOF.
var ErrIteratorExhausted = errors.New("source: iterator exhausted")

// Restriction narrows a source to a subset of the repository: a single
// category, a single package, or a single version, matching the scope a
// scan was invoked at (spec.md §4.1's scope-compatibility test).
type Restriction struct {
	Category string
	Package  string
	Version  string
}

// Empty reports whether the restriction selects the whole repository.
func (r Restriction) Empty() bool {
	return r.Category == "" && r.Package == "" && r.Version == ""
}

// Iterator yields items of a single kind in canonical order (spec.md
// §3). Implementations must be safe to Close without having been
// drained.
type Iterator interface {
	// Next returns the next item, or ErrIteratorExhausted when done.
	Next(ctx context.Context) (item.Item, error)
	// Close releases any resources the iterator holds (file handles,
	// git walkers). Close is idempotent.
	Close() error
}

// Source produces an Iterator over one item kind, optionally narrowed by
// a Restriction. A planner treats two sources as interchangeable for
// planning purposes iff they declare the same Kind and Scope.
type Source interface {
	// Kind reports the item kind this source's iterators yield.
	Kind() itemkind.Kind
	// Scope reports the scope this source was declared at, when known.
	// A nil Scope means the source's scope is inferred from how the
	// planner reaches it rather than declared up front (spec.md §9's
	// open question on source.scope).
	Scope() *itemkind.Scope
	// Iter opens a new iterator, optionally restricted.
	Iter(ctx context.Context, restrict Restriction) (Iterator, error)
}

// sliceSource is a Source backed by an in-memory, already-sorted slice.
// It grounds the simplest real source (e.g. a category list read off
// disk) and is also useful directly in tests.
type sliceSource struct {
	kind  itemkind.Kind
	scope *itemkind.Scope
	items []item.Item
}

// NewSliceSource builds a Source over a fixed, caller-sorted slice of
// items. items must already be in canonical order; NewSliceSource does
// not sort them.
func NewSliceSource(kind itemkind.Kind, scope *itemkind.Scope, items []item.Item) Source {
	return &sliceSource{kind: kind, scope: scope, items: items}
}

func (s *sliceSource) Kind() itemkind.Kind   { return s.kind }
func (s *sliceSource) Scope() *itemkind.Scope { return s.scope }

func (s *sliceSource) Iter(_ context.Context, restrict Restriction) (Iterator, error) {
	filtered := s.items

	if !restrict.Empty() {
		out := make([]item.Item, 0, len(s.items))

		for _, it := range s.items {
			if matchesRestriction(it, restrict) {
				out = append(out, it)
			}
		}

		filtered = out
	}

	return &sliceIterator{items: filtered}, nil
}

func matchesRestriction(it item.Item, restrict Restriction) bool {
	key := it.OrderKey()

	if restrict.Category != "" && key.Category != restrict.Category {
		return false
	}

	if restrict.Package != "" && key.Package != restrict.Package {
		return false
	}

	if restrict.Version != "" && key.Version.String() != restrict.Version {
		return false
	}

	return true
}

type sliceIterator struct {
	items []item.Item
	pos   int
}

func (it *sliceIterator) Next(_ context.Context) (item.Item, error) {
	if it.pos >= len(it.items) {
		return nil, ErrIteratorExhausted
	}

	v := it.items[it.pos]
	it.pos++

	return v, nil
}

func (it *sliceIterator) Close() error { return nil }
