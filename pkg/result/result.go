// Package result implements the result taxonomy described in spec.md §3
// and §4.6: a tagged variant type with severity, threshold, equality,
// ordering, and an optional filter flag, modeled as a Go struct rather
// than the dynamic class hierarchy of the system this engine generalizes
// (spec.md §9, "Dynamic class hierarchy → tagged variants").
package result

import (
	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
	"github.com/pkgcheck-go/pkgcheck/pkg/pkgversion"
)

// Severity classifies how serious a result is.
type Severity int

const (
	// Error is a result that should fail a check run.
	Error Severity = iota
	// Warning is a result worth a human's attention but not fatal.
	Warning
	// Info is informational only.
	Info
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Threshold names the item kind at which a result is reported, i.e. which
// fields are needed to reconstruct the result's subject (spec.md §3).
type Threshold int

const (
	// ThresholdCommit anchors a result to a single commit.
	ThresholdCommit Threshold = iota
	// ThresholdCategory anchors a result to a category.
	ThresholdCategory
	// ThresholdPackage anchors a result to a (category, package).
	ThresholdPackage
	// ThresholdVersion anchors a result to a (category, package, version).
	ThresholdVersion
)

// String returns the lower-case threshold name.
func (t Threshold) String() string {
	switch t {
	case ThresholdCommit:
		return "commit"
	case ThresholdCategory:
		return "category"
	case ThresholdPackage:
		return "package"
	case ThresholdVersion:
		return "version"
	default:
		return "unknown"
	}
}

// Kind names a result variant, e.g. "VersionedResult", "MetadataError".
// It is the key severitytable and resultset index on.
type Kind string

// Variant names for the base hierarchy described in spec.md §4.6. Checks
// define their own Kind values for domain-specific results; these are the
// ones the core itself emits or reasons about.
const (
	KindCommit          Kind = "CommitResult"
	KindCategory        Kind = "CategoryResult"
	KindPackage         Kind = "PackageResult"
	KindVersioned       Kind = "VersionedResult"
	KindFilteredVersion Kind = "FilteredVersionResult"
	KindLogWarning      Kind = "LogWarningResult"
	KindLogError        Kind = "LogErrorResult"
	KindMetadataError   Kind = "MetadataError"
)

// Result is a single structured finding. Every field below is part of the
// "public payload" spec.md §3 defines equality and ordering over; which
// fields are meaningful depends on Threshold.
type Result struct {
	Variant   Kind
	Severity  Severity
	Threshold Threshold
	Filtered  bool

	CommitID string
	Category string
	Package  string
	Version  pkgversion.Version

	// Message carries the free-text payload of log-style results.
	Message string
	// Attribute carries the failing field name for MetadataError results.
	Attribute string
}

// payloadKey is the comparable projection of a Result's public fields
// used for equality, hashing (as a Go map key), and grouping.
type payloadKey struct {
	variant   Kind
	threshold Threshold
	commitID  string
	category  string
	pkg       string
	version   string
	message   string
	attribute string
}

// Key returns the comparable key equality and deduplication are defined
// over. Two results are equal iff their keys are equal.
func (r Result) Key() payloadKey {
	return payloadKey{
		variant:   r.Variant,
		threshold: r.Threshold,
		commitID:  r.CommitID,
		category:  r.Category,
		pkg:       r.Package,
		version:   r.Version.String(),
		message:   r.Message,
		attribute: r.Attribute,
	}
}

// Equal reports whether a and b carry the same public payload fields.
func Equal(a, b Result) bool { return a.Key() == b.Key() }

// Less implements the ordering of spec.md §4.6: coarsest to finest field
// (category, then package, then version via numeric ebuild-version
// compare), ties broken by variant name.
func Less(a, b Result) bool {
	if a.Category != b.Category {
		return a.Category < b.Category
	}

	if a.Package != b.Package {
		return a.Package < b.Package
	}

	if a.Threshold == ThresholdVersion && b.Threshold == ThresholdVersion {
		if c := pkgversion.Compare(a.Version, b.Version); c != 0 {
			return c < 0
		}
	} else if a.Threshold != b.Threshold {
		return a.Threshold < b.Threshold
	}

	if a.CommitID != b.CommitID {
		return a.CommitID < b.CommitID
	}

	return a.Variant < b.Variant
}

// KindForItem returns the base-hierarchy variant whose threshold matches
// the item kind, for checks that emit the plain (non-domain-specific)
// result variants directly.
func KindForItem(k itemkind.Kind) Kind {
	switch k {
	case itemkind.Commit:
		return KindCommit
	case itemkind.Category:
		return KindCategory
	case itemkind.Package:
		return KindPackage
	case itemkind.Version, itemkind.EbuildText, itemkind.EbuildAST:
		return KindVersioned
	case itemkind.Repo:
		return KindCommit
	default:
		return KindVersioned
	}
}
