// Package keywords implements result-kind selection by name: the
// whitelist/blacklist, glob-or-substring matching spec.md §4.7's
// --enabled-keywords / --disabled-keywords options use to decide which
// result kinds a scan reports.
package keywords

import (
	"path/filepath"
	"strings"

	"github.com/pkgcheck-go/pkgcheck/pkg/result"
)

// Selector decides whether a given result.Kind is enabled.
type Selector struct {
	whitelist []string
	blacklist []string
}

// New builds a Selector. An empty whitelist means "everything is
// enabled by default, subject to the blacklist"; a non-empty whitelist
// means only matching kinds are enabled, and the blacklist is applied on
// top of that to allow narrowing a glob-selected whitelist further.
func New(whitelist, blacklist []string) *Selector {
	return &Selector{whitelist: whitelist, blacklist: blacklist}
}

// Enabled reports whether kind should be reported.
func (s *Selector) Enabled(kind result.Kind) bool {
	name := string(kind)

	if len(s.whitelist) > 0 && !anyMatch(s.whitelist, name) {
		return false
	}

	if anyMatch(s.blacklist, name) {
		return false
	}

	return true
}

// anyMatch reports whether name matches any pattern, where a pattern is
// either a shell glob (if it contains a glob metacharacter) or a plain
// substring.
func anyMatch(patterns []string, name string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}

		if strings.ContainsAny(p, "*?[") {
			if ok, err := filepath.Match(p, name); err == nil && ok {
				return true
			}

			continue
		}

		if strings.Contains(name, p) {
			return true
		}
	}

	return false
}
