// Package interleave merges several sorted item-kind streams into one
// globally ordered stream, using a one-item lookahead cache per source so
// no source is read further ahead than necessary (spec.md §4.3).
package interleave

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkgcheck-go/pkgcheck/pkg/item"
	"github.com/pkgcheck-go/pkgcheck/pkg/source"
)

// ErrExhausted is returned by Next once every underlying stream has been
// drained.
var ErrExhausted = errors.New("interleave: exhausted")

// Entry pairs an item with the index of the pipe (source iterator) it
// came from, so callers can route it back to the pipeline stage that
// declared interest in that pipe (spec.md §4.3).
type Entry struct {
	Item      item.Item
	PipeIndex int
}

// Interleaver performs a stable k-way merge over a fixed set of sorted
// Iterators. Ties in item order are broken by pipe index, so that two
// pipes producing the "same" item (by order key) yield a deterministic,
// stable sequence.
type Interleaver struct {
	pipes   []source.Iterator
	lookahead []*lookahead
}

type lookahead struct {
	item item.Item
	err  error
	done bool
}

// New builds an Interleaver over pipes. Each pipe must already yield
// items in canonical order; New does not sort them.
func New(pipes []source.Iterator) *Interleaver {
	return &Interleaver{
		pipes:     pipes,
		lookahead: make([]*lookahead, len(pipes)),
	}
}

func (m *Interleaver) fill(ctx context.Context, i int) error {
	if m.lookahead[i] != nil {
		return nil
	}

	it, err := m.pipes[i].Next(ctx)

	switch {
	case err == nil:
		m.lookahead[i] = &lookahead{item: it}
	case errors.Is(err, source.ErrIteratorExhausted):
		m.lookahead[i] = &lookahead{done: true}
	default:
		return fmt.Errorf("interleave: pipe %d: %w", i, err)
	}

	return nil
}

// Next returns the globally next entry across all pipes, in canonical
// item order, with ties broken by the lowest pipe index. It returns
// ErrExhausted once every pipe is drained.
func (m *Interleaver) Next(ctx context.Context) (Entry, error) {
	best := -1

	for i := range m.pipes {
		if err := m.fill(ctx, i); err != nil {
			return Entry{}, err
		}

		la := m.lookahead[i]
		if la.done {
			continue
		}

		if best == -1 || item.Less(la.item.OrderKey(), m.lookahead[best].item.OrderKey()) {
			best = i
		}
	}

	if best == -1 {
		return Entry{}, ErrExhausted
	}

	entry := Entry{Item: m.lookahead[best].item, PipeIndex: best}
	m.lookahead[best] = nil

	return entry, nil
}

// Close closes every underlying pipe, returning the first error
// encountered, if any, after attempting to close them all.
func (m *Interleaver) Close() error {
	var firstErr error

	for _, p := range m.pipes {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
