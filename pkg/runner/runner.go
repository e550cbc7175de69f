// Package runner implements CheckRunner, the dispatcher that fans a
// single item-kind stream out to every sibling check consuming that kind
// and aggregates their results (spec.md §4.2).
package runner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pkgcheck-go/pkgcheck/pkg/check"
	"github.com/pkgcheck-go/pkgcheck/pkg/consumer"
	"github.com/pkgcheck-go/pkgcheck/pkg/item"
	"github.com/pkgcheck-go/pkgcheck/pkg/result"
)

const tracerName = "pkgcheck"

// metadataErrorKey is the (item-identity, error-identity) pair the
// runner dedupes MetadataError results on, so that a single malformed
// ebuild does not produce one error per sibling check that tried to
// parse it (spec.md §4.2).
type metadataErrorKey struct {
	itemKey   item.OrderKey
	attribute string
	cause     string
}

// CheckRunner dispatches Start/Feed/Finish to a set of same-kind checks,
// running them in Descriptor.Priority order, and aggregates their
// results while deduplicating metadata errors across siblings.
type CheckRunner struct {
	checks    []check.Check
	seen      map[metadataErrorKey]struct{}
	tracer    trace.Tracer
	durations []time.Duration
}

// New builds a CheckRunner over checks, sorted into priority order.
// All of checks must declare the same Descriptor.Kind; New does not
// validate this, callers (the planner) are expected to group by kind
// before constructing a runner.
func New(checks []check.Check) *CheckRunner {
	sorted := make([]check.Check, len(checks))
	copy(sorted, checks)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Descriptor().Priority < sorted[j].Descriptor().Priority
	})

	return &CheckRunner{
		checks:    sorted,
		seen:      make(map[metadataErrorKey]struct{}),
		durations: make([]time.Duration, len(sorted)),
	}
}

func (r *CheckRunner) tracerOrDefault() trace.Tracer {
	if r.tracer != nil {
		return r.tracer
	}

	return otel.Tracer(tracerName)
}

// emitCheckSpans creates one retroactive child span per check with its
// accumulated dispatch duration, the CheckRunner analogue of
// pkg/framework's per-analyzer spans.
func (r *CheckRunner) emitCheckSpans(ctx context.Context) {
	tr := r.tracerOrDefault()
	now := time.Now()

	for i, c := range r.checks {
		if r.durations[i] == 0 {
			continue
		}

		_, span := tr.Start(ctx, "pkgcheck.check."+c.Descriptor().Name,
			trace.WithTimestamp(now.Add(-r.durations[i])))
		span.End(trace.WithTimestamp(now))
	}
}

// Start calls Start on every check in priority order, aggregating
// results. A check returning an error other than a metadata failure
// aborts the whole runner.
func (r *CheckRunner) Start(ctx context.Context) ([]result.Result, error) {
	var out []result.Result

	for _, c := range r.checks {
		res, err := c.Start(ctx)
		if err != nil {
			wrapped, handled := r.handleError(nil, "", err)
			if !handled {
				return out, fmt.Errorf("runner: check %s start: %w", c.Descriptor().Name, err)
			}

			out = append(out, wrapped...)

			continue
		}

		out = append(out, res...)
	}

	return out, nil
}

// Feed calls Feed(it) on every check in priority order, aggregating
// results and deduplicating metadata errors by (item, attribute, cause).
func (r *CheckRunner) Feed(ctx context.Context, it item.Item) ([]result.Result, error) {
	var out []result.Result

	for i, c := range r.checks {
		started := time.Now()
		res, err := c.Feed(ctx, it)
		r.durations[i] += time.Since(started)

		if err != nil {
			wrapped, handled := r.handleError(it, c.Descriptor().Name, err)
			if !handled {
				return out, fmt.Errorf("runner: check %s feed: %w", c.Descriptor().Name, err)
			}

			out = append(out, wrapped...)

			continue
		}

		out = append(out, res...)
	}

	return out, nil
}

// Finish calls Finish on every check in priority order, aggregating
// results.
func (r *CheckRunner) Finish(ctx context.Context) ([]result.Result, error) {
	var out []result.Result

	for _, c := range r.checks {
		res, err := c.Finish(ctx)
		if err != nil {
			wrapped, handled := r.handleError(nil, "", err)
			if !handled {
				return out, fmt.Errorf("runner: check %s finish: %w", c.Descriptor().Name, err)
			}

			out = append(out, wrapped...)

			continue
		}

		out = append(out, res...)
	}

	r.emitCheckSpans(ctx)

	return out, nil
}

// handleError converts a *consumer.MetadataFailure into a deduplicated
// MetadataError result and reports handled=true; any other error is
// reported unhandled so the caller can propagate it.
func (r *CheckRunner) handleError(it item.Item, checkName string, err error) ([]result.Result, bool) {
	mf, ok := consumer.AsMetadataFailure(err)
	if !ok {
		return nil, false
	}

	subject := it
	if subject == nil {
		subject = mf.Item
	}

	var key item.OrderKey
	if subject != nil {
		key = subject.OrderKey()
	}

	dedupKey := metadataErrorKey{
		itemKey:   key,
		attribute: mf.Attribute,
		cause:     mf.Error(),
	}

	if _, dup := r.seen[dedupKey]; dup {
		return nil, true
	}

	r.seen[dedupKey] = struct{}{}

	res := result.Result{
		Variant:   result.KindMetadataError,
		Severity:  result.SeverityOf(result.KindMetadataError),
		Threshold: result.ThresholdOf(result.KindMetadataError),
		Attribute: mf.Attribute,
		Message:   fmt.Sprintf("%s: %v", checkName, mf.Err),
	}

	if key.Category != "" {
		res.Category = key.Category
	}

	if key.Package != "" {
		res.Package = key.Package
	}

	if key.HasVersion {
		res.Version = key.Version
	}

	if key.Commit != "" {
		res.CommitID = key.Commit
	}

	return []result.Result{res}, true
}

// Checks returns the runner's checks in dispatch order.
func (r *CheckRunner) Checks() []check.Check { return r.checks }
