// Package semdiff computes structural comparisons between two revisions of
// source text: which functions were added, removed, or changed, a line-level
// diff, and an overall similarity score with a coarse change-class verdict.
package semdiff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"patvc/internal/extract"
)

// ChangeClass is the coarse verdict for a whole-file comparison.
type ChangeClass string

const (
	ChangeCosmetic    ChangeClass = "cosmetic"
	ChangeIncremental ChangeClass = "incremental"
	ChangeRewrite     ChangeClass = "rewrite"
)

// FunctionChange categorizes one function's fate across the two revisions.
type FunctionChange string

const (
	FuncAdded     FunctionChange = "added"
	FuncRemoved   FunctionChange = "removed"
	FuncModified  FunctionChange = "modified"
	FuncUnchanged FunctionChange = "unchanged"
)

// StructuralChangeType is the event type for a function-level difference.
type StructuralChangeType string

const (
	FunctionAdded    StructuralChangeType = "function-added"
	FunctionRemoved  StructuralChangeType = "function-removed"
	SignatureChanged StructuralChangeType = "signature-changed"
	BodyChanged      StructuralChangeType = "body-changed"
)

// LineOp tags one entry of the line-level diff.
type LineOp string

const (
	LineAdded   LineOp = "added"
	LineRemoved LineOp = "removed"
	LineSame    LineOp = "same"
)

// FunctionDiff reports one function's comparison across revisions.
type FunctionDiff struct {
	Name         string         `json:"name"`
	Change       FunctionChange `json:"change"`
	OldSignature string         `json:"oldSignature,omitempty"`
	NewSignature string         `json:"newSignature,omitempty"`
	BodyChanged  bool           `json:"bodyChanged"`
}

// StructuralChange is a typed function-level difference event.
type StructuralChange struct {
	Type StructuralChangeType `json:"type"`
	Name string               `json:"name"`
}

// LineChange is one entry of the line-level diff.
type LineChange struct {
	Type LineOp `json:"type"`
	Text string `json:"text"`
}

// Summary tallies function changes by category.
type Summary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
}

// Result is the full outcome of comparing two revisions.
type Result struct {
	Similarity        float64            `json:"similarity"`
	ChangeType        ChangeClass        `json:"changeType"`
	Functions         []FunctionDiff     `json:"functions"`
	StructuralChanges []StructuralChange `json:"structuralChanges"`
	LineDiff          []LineChange       `json:"lineDiff"`
	Summary           Summary            `json:"summary"`
}

// Similarity blend weights and the rewrite cutoff. The line ratio dominates
// because it is meaningful even for code with no recognizable functions; the
// function ratio sharpens the verdict when both sides have structure.
const (
	lineWeight       = 0.7
	functionWeight   = 0.3
	rewriteThreshold = 0.3

	// nearIdentical caps non-identical inputs below 1.0. Since the line
	// diff ignores a final-newline difference, the blend can otherwise
	// reach 1.0 for texts that differ only in that byte.
	nearIdentical = 0.99
)

// Diff compares two revisions of source text. It never fails: unknown
// language tags degrade to generic extraction, and empty inputs compare as
// zero functions and zero lines.
func Diff(oldCode, newCode, language string) *Result {
	oldFuncs := extract.Extract(oldCode, language)
	newFuncs := extract.Extract(newCode, language)

	r := &Result{
		Functions:         []FunctionDiff{},
		StructuralChanges: []StructuralChange{},
	}

	oldByName := byName(oldFuncs)
	newByName := byName(newFuncs)

	// Old functions first (removed/modified/unchanged in source order),
	// then functions only present in the new revision.
	for _, of := range oldFuncs {
		if oldByName[of.Name] != of.StartLine {
			continue // duplicate name, first occurrence wins
		}
		nf, ok := lookup(newFuncs, newByName, of.Name)
		if !ok {
			r.Functions = append(r.Functions, FunctionDiff{
				Name:         of.Name,
				Change:       FuncRemoved,
				OldSignature: of.Signature,
			})
			r.StructuralChanges = append(r.StructuralChanges, StructuralChange{Type: FunctionRemoved, Name: of.Name})
			r.Summary.Removed++
			continue
		}

		sigChanged := of.Signature != nf.Signature
		bodyChanged := of.Body != nf.Body

		if sigChanged {
			r.StructuralChanges = append(r.StructuralChanges, StructuralChange{Type: SignatureChanged, Name: of.Name})
		}
		if bodyChanged {
			r.StructuralChanges = append(r.StructuralChanges, StructuralChange{Type: BodyChanged, Name: of.Name})
		}

		fd := FunctionDiff{
			Name:         of.Name,
			OldSignature: of.Signature,
			NewSignature: nf.Signature,
			BodyChanged:  bodyChanged,
		}
		if sigChanged || bodyChanged {
			fd.Change = FuncModified
			r.Summary.Modified++
		} else {
			fd.Change = FuncUnchanged
			r.Summary.Unchanged++
		}
		r.Functions = append(r.Functions, fd)
	}

	for _, nf := range newFuncs {
		if newByName[nf.Name] != nf.StartLine {
			continue
		}
		if _, ok := oldByName[nf.Name]; ok {
			continue
		}
		r.Functions = append(r.Functions, FunctionDiff{
			Name:         nf.Name,
			Change:       FuncAdded,
			NewSignature: nf.Signature,
		})
		r.StructuralChanges = append(r.StructuralChanges, StructuralChange{Type: FunctionAdded, Name: nf.Name})
		r.Summary.Added++
	}

	oldLines := splitLines(oldCode)
	newLines := splitLines(newCode)
	var sameLines int
	r.LineDiff, sameLines = lineDiff(oldLines, newLines)

	r.Similarity = similarity(oldCode == newCode, sameLines,
		len(oldLines), len(newLines), r.Summary.Unchanged, len(oldByName), len(newByName))

	switch {
	case oldCode == newCode:
		r.ChangeType = ChangeCosmetic
	case r.Similarity < rewriteThreshold:
		r.ChangeType = ChangeRewrite
	default:
		r.ChangeType = ChangeIncremental
	}

	return r
}

// lineDiff produces the ordered line-level diff via difflib's sequence
// matcher. Concatenating removed+same entries reconstructs the old text,
// and added+same entries the new text.
func lineDiff(oldLines, newLines []string) ([]LineChange, int) {
	diff := make([]LineChange, 0, len(oldLines)+len(newLines))
	same := 0

	m := difflib.NewMatcher(oldLines, newLines)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for _, l := range oldLines[op.I1:op.I2] {
				diff = append(diff, LineChange{Type: LineSame, Text: l})
				same++
			}
		case 'd':
			for _, l := range oldLines[op.I1:op.I2] {
				diff = append(diff, LineChange{Type: LineRemoved, Text: l})
			}
		case 'i':
			for _, l := range newLines[op.J1:op.J2] {
				diff = append(diff, LineChange{Type: LineAdded, Text: l})
			}
		case 'r':
			for _, l := range oldLines[op.I1:op.I2] {
				diff = append(diff, LineChange{Type: LineRemoved, Text: l})
			}
			for _, l := range newLines[op.J1:op.J2] {
				diff = append(diff, LineChange{Type: LineAdded, Text: l})
			}
		}
	}

	return diff, same
}

// similarity blends the common-line ratio with the unchanged-function ratio.
// Fixed points: identical texts score 1.0 and only identical texts do; texts
// sharing neither lines nor function names score 0.0. When neither side has
// recognizable functions the line ratio stands alone.
func similarity(identical bool, sameLines, oldLines, newLines, unchanged, oldFuncs, newFuncs int) float64 {
	if identical {
		return 1.0
	}

	maxLines := oldLines
	if newLines > maxLines {
		maxLines = newLines
	}
	var lineRatio float64
	if maxLines > 0 {
		lineRatio = float64(sameLines) / float64(maxLines)
	}

	maxFuncs := oldFuncs
	if newFuncs > maxFuncs {
		maxFuncs = newFuncs
	}

	score := lineRatio
	if maxFuncs > 0 {
		funcRatio := float64(unchanged) / float64(maxFuncs)
		score = lineWeight*lineRatio + functionWeight*funcRatio
	}
	if score > nearIdentical {
		score = nearIdentical
	}
	return score
}

// byName maps each function name to the start line of its first occurrence.
func byName(funcs []extract.FunctionRecord) map[string]int {
	m := make(map[string]int, len(funcs))
	for _, f := range funcs {
		if _, ok := m[f.Name]; !ok {
			m[f.Name] = f.StartLine
		}
	}
	return m
}

func lookup(funcs []extract.FunctionRecord, index map[string]int, name string) (extract.FunctionRecord, bool) {
	line, ok := index[name]
	if !ok {
		return extract.FunctionRecord{}, false
	}
	for _, f := range funcs {
		if f.Name == name && f.StartLine == line {
			return f, true
		}
	}
	return extract.FunctionRecord{}, false
}

// splitLines splits text into lines without a trailing phantom entry for a
// final newline. Empty text has zero lines. The line diff therefore treats
// "a" and "a\n" as the same line sequence; byte-level differences like this
// still surface through the identity check in Diff.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
