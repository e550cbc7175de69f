// Package latestpkgs implements the latest-package-per-slot filter
// described in spec.md §4.5: within each (category, package) group, only
// the newest live version and the newest non-live version per slot are
// "live" (unfiltered); every older version in the group is marked
// Filtered rather than dropped, so checks that want the full history can
// still see it.
package latestpkgs

import (
	"context"
	"errors"

	"github.com/pkgcheck-go/pkgcheck/pkg/item"
	"github.com/pkgcheck-go/pkgcheck/pkg/source"
)

// Mode selects how aggressively the filter narrows a group.
type Mode int

const (
	// ModeFull filters within the group immediately: only the winners
	// are ever returned.
	ModeFull Mode = iota
	// ModePartial returns every item in the group, wrapped with its
	// Filtered flag set rather than omitted, matching spec.md §4.5's
	// "wrap-with-filtered-flag" mode for checks that need full history.
	ModePartial
)

// Filter wraps a source.Iterator of item.Versioned items (already sorted
// in canonical order, which groups same-package versions together) and
// yields only the latest live and latest non-live version per slot
// within each group, using a single item of lookahead to detect a group
// boundary.
type Filter struct {
	src  source.Iterator
	mode Mode

	lookaheadKey string
	lookahead    *item.Versioned

	queue []item.Versioned
	pos   int
}

// New wraps src with the latest-package filter in the given mode.
func New(src source.Iterator, mode Mode) *Filter {
	return &Filter{src: src, mode: mode}
}

// Next returns the next surviving (or, in ModePartial, flagged) version.
func (f *Filter) Next(ctx context.Context) (item.Item, error) {
	for f.pos >= len(f.queue) {
		group, ok, err := f.nextGroup(ctx)
		if err != nil {
			return nil, err
		}

		if !ok {
			return nil, source.ErrIteratorExhausted
		}

		f.queue = f.selectGroup(group)
		f.pos = 0
	}

	v := f.queue[f.pos]
	f.pos++

	return v, nil
}

// Close closes the wrapped iterator.
func (f *Filter) Close() error { return f.src.Close() }

// nextGroup reads items from the source until the (category, package)
// key changes, buffering one item of lookahead across calls.
func (f *Filter) nextGroup(ctx context.Context) ([]item.Versioned, bool, error) {
	var group []item.Versioned

	var groupKey string

	if f.lookahead != nil {
		group = append(group, *f.lookahead)
		groupKey = f.lookaheadKey
		f.lookahead = nil
	}

	for {
		it, err := f.src.Next(ctx)
		if err != nil {
			if errors.Is(err, source.ErrIteratorExhausted) {
				if len(group) == 0 {
					return nil, false, nil
				}

				return group, true, nil
			}

			return nil, false, err
		}

		v, ok := it.(item.Versioned)
		if !ok {
			continue
		}

		key := v.Key()

		if len(group) == 0 {
			groupKey = key
			group = append(group, v)

			continue
		}

		if key != groupKey {
			f.lookahead = &v
			f.lookaheadKey = key

			return group, true, nil
		}

		group = append(group, v)
	}
}

// selectGroup applies the per-slot latest-live/latest-non-live rule to a
// single (category, package) group, already in version order.
func (f *Filter) selectGroup(group []item.Versioned) []item.Versioned {
	type winners struct {
		live    *item.Versioned
		nonLive *item.Versioned
	}

	bySlot := make(map[string]*winners)
	slotOrder := make([]string, 0, 4)

	for i := range group {
		v := group[i]

		w, ok := bySlot[v.Slot]
		if !ok {
			w = &winners{}
			bySlot[v.Slot] = w
			slotOrder = append(slotOrder, v.Slot)
		}

		if v.Live {
			w.live = &v
		} else {
			w.nonLive = &v
		}
	}

	isWinner := make(map[string]bool, len(group))

	for _, slot := range slotOrder {
		w := bySlot[slot]
		if w.live != nil {
			isWinner[winnerKey(*w.live)] = true
		}

		if w.nonLive != nil {
			isWinner[winnerKey(*w.nonLive)] = true
		}
	}

	out := make([]item.Versioned, 0, len(group))

	for _, v := range group {
		switch {
		case isWinner[winnerKey(v)]:
			out = append(out, v)
		case f.mode == ModePartial:
			v.Filtered = true
			out = append(out, v)
		}
	}

	return out
}

func winnerKey(v item.Versioned) string {
	return v.Key() + "#" + v.Slot + "#" + v.FullVer()
}
