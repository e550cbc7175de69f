// Package check defines the Check contract: a named, described consumer
// that the planner can place into a pipeline (spec.md §4.1, §4.2).
package check

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pkgcheck-go/pkgcheck/pkg/consumer"
	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
	"github.com/pkgcheck-go/pkgcheck/pkg/result"
)

const normalizeExtraCapacity = 4

// Descriptor is the static metadata the planner reasons about without
// instantiating a check: what kind of item it consumes, at what scope it
// is meaningful, how it should be prioritized relative to sibling
// consumers of the same kind, and which result kinds it is known to emit
// (spec.md §4.1's placement inputs).
type Descriptor struct {
	// Name is the check's human name, e.g. "UnusedInPkgMetadataCheck".
	Name string
	// ID is Name normalized into a stable, lower-kebab-case identifier.
	ID string
	// Kind is the item kind this check's Feed expects.
	Kind itemkind.Kind
	// Scope is the coarsest scan scope this check is meaningful at.
	Scope itemkind.Scope
	// Priority orders sibling checks of the same kind within a single
	// CheckRunner; lower runs first (spec.md §4.2).
	Priority int
	// KnownResults lists the result Kinds this check may emit, for
	// --enabled-keywords validation and documentation (spec.md §4.7).
	KnownResults []result.Kind
	// SourceTag names the source/transform chain this check requires
	// beyond its declared Kind, e.g. "git" for commit-derived checks
	// that also need repository-wide context. Empty when the kind alone
	// determines placement.
	SourceTag string
}

// NewDescriptor builds a Descriptor with Name and ID filled in from name.
func NewDescriptor(name string, kind itemkind.Kind, scope itemkind.Scope) Descriptor {
	return Descriptor{
		Name:  name,
		ID:    normalizeName(name),
		Kind:  kind,
		Scope: scope,
	}
}

func normalizeName(name string) string {
	normalized := strings.TrimSpace(name)
	if normalized == "" {
		return ""
	}

	var builder strings.Builder

	builder.Grow(len(normalized) + normalizeExtraCapacity)

	previousLower := false

	for _, current := range normalized {
		if current == '_' || current == ' ' {
			builder.WriteRune('-')

			previousLower = false

			continue
		}

		if unicode.IsUpper(current) {
			if previousLower {
				builder.WriteRune('-')
			}

			builder.WriteRune(unicode.ToLower(current))

			previousLower = false

			continue
		}

		builder.WriteRune(unicode.ToLower(current))
		previousLower = unicode.IsLetter(current) && unicode.IsLower(current)
	}

	return strings.Trim(builder.String(), "-")
}

// Check is a consumer the planner can place into a pipeline: it knows
// its own placement metadata in addition to the Start/Feed/Finish
// lifecycle it inherits from consumer.Consumer.
type Check interface {
	consumer.Consumer

	// Descriptor returns this check's static placement metadata.
	Descriptor() Descriptor
}

// String implements fmt.Stringer for log and debug-sink output.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s[%s/%s]", d.Name, d.Kind, d.Scope)
}
