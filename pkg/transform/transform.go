// Package transform defines pipeline stages that convert a stream of one
// item kind into a stream of another, further-refined kind (spec.md
// §4.1's "transform" planning input, e.g. version -> ebuild-text).
package transform

import (
	"github.com/pkgcheck-go/pkgcheck/pkg/consumer"
	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
)

// Transform wraps a Consumer of its output Kind into one that accepts
// items of its input Kind, deriving the finer-grained items as it feeds
// the wrapped consumer. The planner chains Transforms to reach a check's
// declared Kind from whatever Source kinds are available (spec.md §4.1).
type Transform struct {
	// Name identifies the transform for logging and the debug sink.
	Name string
	// From is the item kind this transform consumes.
	From itemkind.Kind
	// To is the item kind this transform produces.
	To itemkind.Kind
	// Scope is the coarsest scope this transform is meaningful at.
	Scope itemkind.Scope
	// Wrap adapts a consumer of To-kind items into a consumer of
	// From-kind items.
	Wrap func(next consumer.Consumer) consumer.Consumer
}

// Registry is an ordered set of available transforms, keyed by the kind
// they consume. The planner queries it while building the reachability
// graph described in spec.md §4.1.
type Registry struct {
	byFrom map[itemkind.Kind][]Transform
}

// NewRegistry builds an empty transform registry.
func NewRegistry() *Registry {
	return &Registry{byFrom: make(map[itemkind.Kind][]Transform)}
}

// Register adds t to the registry.
func (r *Registry) Register(t Transform) {
	r.byFrom[t.From] = append(r.byFrom[t.From], t)
}

// From returns every transform that consumes the given kind.
func (r *Registry) From(kind itemkind.Kind) []Transform {
	return r.byFrom[kind]
}

// All returns every registered transform across all input kinds.
func (r *Registry) All() []Transform {
	out := make([]Transform, 0)
	for _, ts := range r.byFrom {
		out = append(out, ts...)
	}

	return out
}
