// Package consumer defines the lowest-level shared contract that checks,
// transforms, and the runner all build on. It exists as its own package
// so check, transform, and runner can each depend on the interface
// without depending on one another (spec.md §4).
package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkgcheck-go/pkgcheck/pkg/item"
	"github.com/pkgcheck-go/pkgcheck/pkg/result"
)

// ErrSourceClosed is returned by Feed/Finish when called after the
// consumer has already been finished.
var ErrSourceClosed = errors.New("consumer: fed after finish")

// Consumer is anything that accepts a sequence of same-kind items and
// produces results, following the Start/Feed/Finish lifecycle of
// spec.md §4.2: exactly one Start, zero or more Feed calls in item
// order, exactly one Finish.
type Consumer interface {
	// Start is called once, before the first Feed, with the item kind
	// this consumer will receive.
	Start(ctx context.Context) ([]result.Result, error)

	// Feed is called once per item in the consumer's declared kind,
	// in canonical order.
	Feed(ctx context.Context, it item.Item) ([]result.Result, error)

	// Finish is called once after the last Feed, to flush any results
	// that depend on having seen the whole group (spec.md §4.5's
	// latest-package filter is the prototypical example).
	Finish(ctx context.Context) ([]result.Result, error)
}

// MetadataFailure is the error a Feed implementation returns when an
// item fails to produce usable metadata (a malformed ebuild, an unreadable
// file) rather than when the check logic itself errors. The runner uses
// the concrete type, not string matching, to decide whether to emit a
// MetadataError result and continue instead of aborting the pipeline
// (spec.md §4.2's "recoverable vs. fatal" distinction).
type MetadataFailure struct {
	// Item identifies what was being processed when the failure occurred.
	Item item.Item
	// Attribute names the metadata field that could not be computed, if
	// known.
	Attribute string
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (f *MetadataFailure) Error() string {
	if f.Attribute != "" {
		return fmt.Sprintf("metadata failure: attribute %q: %v", f.Attribute, f.Err)
	}

	return fmt.Sprintf("metadata failure: %v", f.Err)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (f *MetadataFailure) Unwrap() error { return f.Err }

// AsMetadataFailure reports whether err is (or wraps) a *MetadataFailure,
// returning it when so.
func AsMetadataFailure(err error) (*MetadataFailure, bool) {
	var mf *MetadataFailure

	if errors.As(err, &mf) {
		return mf, true
	}

	return nil, false
}

// Func adapts three plain functions into a Consumer, for checks whose
// Feed logic needs no Start/Finish work.
type Func struct {
	StartFunc  func(ctx context.Context) ([]result.Result, error)
	FeedFunc   func(ctx context.Context, it item.Item) ([]result.Result, error)
	FinishFunc func(ctx context.Context) ([]result.Result, error)
}

// Start implements Consumer.
func (f Func) Start(ctx context.Context) ([]result.Result, error) {
	if f.StartFunc == nil {
		return nil, nil
	}

	return f.StartFunc(ctx)
}

// Feed implements Consumer.
func (f Func) Feed(ctx context.Context, it item.Item) ([]result.Result, error) {
	if f.FeedFunc == nil {
		return nil, nil
	}

	return f.FeedFunc(ctx, it)
}

// Finish implements Consumer.
func (f Func) Finish(ctx context.Context) ([]result.Result, error) {
	if f.FinishFunc == nil {
		return nil, nil
	}

	return f.FinishFunc(ctx)
}
