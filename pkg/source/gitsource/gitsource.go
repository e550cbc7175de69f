// Package gitsource adapts the repository's git history into a
// source.Source of commit items, so commit-scope checks can be placed by
// the planner the same way any other source is (spec.md §4.1, §5).
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pkgcheck-go/pkgcheck/pkg/gitlib"
	"github.com/pkgcheck-go/pkgcheck/pkg/item"
	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
	"github.com/pkgcheck-go/pkgcheck/pkg/source"
)

// Source is a source.Source backed by a git2go repository, yielding
// item.Commit values in the topological commit order gitlib.Repository.Log
// produces.
type Source struct {
	repo *gitlib.Repository
}

// New opens the repository at path and returns a commit Source over it.
// The caller is responsible for calling Close when the source is no
// longer needed.
func New(path string) (*Source, error) {
	repo, err := gitlib.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("gitsource: open %s: %w", path, err)
	}

	return &Source{repo: repo}, nil
}

// Close releases the underlying repository handle.
func (s *Source) Close() {
	s.repo.Free()
}

// Kind implements source.Source.
func (s *Source) Kind() itemkind.Kind { return itemkind.Commit }

// Scope implements source.Source. Commit history needs the whole
// repository's log, the broadest scope this engine defines.
func (s *Source) Scope() *itemkind.Scope {
	scope := itemkind.ScopeCommit

	return &scope
}

// Iter opens a commit iterator. gitsource does not support narrowing by
// category/package/version restriction since commits are not addressed
// that way; a non-empty Restriction is ignored.
func (s *Source) Iter(_ context.Context, _ source.Restriction) (source.Iterator, error) {
	commitIter, err := s.repo.Log(nil)
	if err != nil {
		return nil, fmt.Errorf("gitsource: log: %w", err)
	}

	return &iterator{commits: commitIter}, nil
}

type iterator struct {
	commits *gitlib.CommitIter
}

func (it *iterator) Next(_ context.Context) (item.Item, error) {
	c, err := it.commits.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, source.ErrIteratorExhausted
		}

		return nil, fmt.Errorf("gitsource: next: %w", err)
	}

	defer c.Free()

	return item.Commit{ID: c.Hash().String()}, nil
}

func (it *iterator) Close() error {
	it.commits.Close()

	return nil
}
