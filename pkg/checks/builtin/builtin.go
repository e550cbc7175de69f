// Package builtin implements a small set of concrete checks over this
// engine's item kinds, grounded in the kinds of findings
// original_source/pkgcore_checks/visibility.py and metadata.py report
// (a live/VCS version exposed under a stable keyword, an ebuild missing a
// required global variable) but expressed against this engine's simpler
// item model rather than a full profile/masking simulation.
package builtin

import (
	"context"
	"strings"

	"github.com/pkgcheck-go/pkgcheck/pkg/check"
	"github.com/pkgcheck-go/pkgcheck/pkg/item"
	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
	"github.com/pkgcheck-go/pkgcheck/pkg/result"
)

// KindLiveVersionStable is emitted when a live (VCS-style, e.g. "9999")
// version declares a stable keyword instead of only ~arch ones, mirroring
// visibility.py's VisibleVcsPkg: a live version should never be unmasked
// for a stable arch.
const KindLiveVersionStable result.Kind = "LiveVersionStable"

// LiveVersionStableCheck flags a live version (item.Versioned.Live) whose
// ebuild's KEYWORDS declares at least one keyword without a "~" or "-"
// prefix, i.e. one pretending to be stable.
type LiveVersionStableCheck struct{}

// NewLiveVersionStableCheck returns a ready-to-use LiveVersionStableCheck.
func NewLiveVersionStableCheck() LiveVersionStableCheck { return LiveVersionStableCheck{} }

// Descriptor implements check.Check.
func (LiveVersionStableCheck) Descriptor() check.Descriptor {
	d := check.NewDescriptor("LiveVersionStableCheck", itemkind.EbuildAST, itemkind.ScopeVersion)
	d.KnownResults = []result.Kind{KindLiveVersionStable}

	return d
}

// Start implements consumer.Consumer.
func (LiveVersionStableCheck) Start(context.Context) ([]result.Result, error) { return nil, nil }

// Finish implements consumer.Consumer.
func (LiveVersionStableCheck) Finish(context.Context) ([]result.Result, error) { return nil, nil }

// Feed implements consumer.Consumer.
func (LiveVersionStableCheck) Feed(_ context.Context, it item.Item) ([]result.Result, error) {
	ast, ok := it.(item.EbuildAST)
	if !ok {
		return nil, nil
	}

	if !strings.Contains(ast.Ver.String(), "9999") {
		return nil, nil
	}

	keywords, ok := ast.Var("KEYWORDS")
	if !ok {
		return nil, nil
	}

	var stable []string

	for _, kw := range strings.Fields(keywords) {
		if kw == "" || strings.HasPrefix(kw, "~") || strings.HasPrefix(kw, "-") {
			continue
		}

		stable = append(stable, kw)
	}

	if len(stable) == 0 {
		return nil, nil
	}

	return []result.Result{{
		Variant:   KindLiveVersionStable,
		Severity:  result.Error,
		Threshold: result.ThresholdVersion,
		Category:  ast.Category,
		Package:   ast.Name,
		Version:   ast.Ver,
		Message:   "live version visible for stable keyword(s) " + strings.Join(stable, " "),
	}}, nil
}

var _ check.Check = LiveVersionStableCheck{}

// KindMissingSlot is emitted when an ebuild declares no SLOT at all,
// mirroring the "required metadata attribute missing" family of checks
// in original_source/pkgcore_checks/metadata.py.
const KindMissingSlot result.Kind = "MissingSlot"

// MissingSlotCheck flags an ebuild whose global scope never assigns SLOT.
type MissingSlotCheck struct{}

// NewMissingSlotCheck returns a ready-to-use MissingSlotCheck.
func NewMissingSlotCheck() MissingSlotCheck { return MissingSlotCheck{} }

// Descriptor implements check.Check.
func (MissingSlotCheck) Descriptor() check.Descriptor {
	d := check.NewDescriptor("MissingSlotCheck", itemkind.EbuildAST, itemkind.ScopeVersion)
	d.KnownResults = []result.Kind{KindMissingSlot}

	return d
}

// Start implements consumer.Consumer.
func (MissingSlotCheck) Start(context.Context) ([]result.Result, error) { return nil, nil }

// Finish implements consumer.Consumer.
func (MissingSlotCheck) Finish(context.Context) ([]result.Result, error) { return nil, nil }

// Feed implements consumer.Consumer.
func (MissingSlotCheck) Feed(_ context.Context, it item.Item) ([]result.Result, error) {
	ast, ok := it.(item.EbuildAST)
	if !ok {
		return nil, nil
	}

	slot, ok := ast.Var("SLOT")
	if ok && strings.TrimSpace(slot) != "" {
		return nil, nil
	}

	return []result.Result{{
		Variant:   KindMissingSlot,
		Severity:  result.Error,
		Threshold: result.ThresholdVersion,
		Category:  ast.Category,
		Package:   ast.Name,
		Version:   ast.Ver,
		Attribute: "SLOT",
		Message:   "ebuild does not assign SLOT",
	}}, nil
}

var _ check.Check = MissingSlotCheck{}

// All returns every built-in check in priority order, the set
// cmd/pkgcheck registers by default.
func All() []check.Check {
	return []check.Check{
		NewMissingSlotCheck(),
		NewLiveVersionStableCheck(),
	}
}
