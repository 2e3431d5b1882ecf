package semdiff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Unified renders a classic unified patch (---/+++ headers, @@ hunks) for
// old -> new, for display purposes. The structural comparison in Result is
// authoritative; this is presentation only.
func Unified(oldName, newName, oldCode, newCode string) string {
	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(oldCode),
		B:        splitLinesKeepNL(newCode),
		FromFile: oldName,
		ToFile:   newName,
		Context:  3,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return ""
	}
	return s
}

// splitLinesKeepNL keeps the newline on each element, which produces
// well-formed unified hunks.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}
