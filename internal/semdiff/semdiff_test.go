package semdiff

import (
	"strings"
	"testing"
)

const twoFuncs = `function add(a, b) {
  return a + b;
}

function sub(a, b) {
  return a - b;
}
`

func TestDiff_Identical(t *testing.T) {
	r := Diff(twoFuncs, twoFuncs, "js")

	if r.Similarity != 1.0 {
		t.Errorf("expected similarity 1.0, got %v", r.Similarity)
	}
	if r.ChangeType != ChangeCosmetic {
		t.Errorf("expected cosmetic, got %s", r.ChangeType)
	}
	if len(r.StructuralChanges) != 0 {
		t.Errorf("expected no structural changes, got %v", r.StructuralChanges)
	}
	for _, f := range r.Functions {
		if f.Change != FuncUnchanged {
			t.Errorf("function %s reported %s, expected unchanged", f.Name, f.Change)
		}
	}
	if r.Summary.Unchanged != 2 || r.Summary.Added+r.Summary.Removed+r.Summary.Modified != 0 {
		t.Errorf("unexpected summary: %+v", r.Summary)
	}
}

func TestDiff_SignatureChangeAndAddition(t *testing.T) {
	// add gains a parameter, sub is untouched, mul is new.
	newCode := `function add(a, b, c) {
  return a + b;
}

function sub(a, b) {
  return a - b;
}

function mul(a, b) {
  return a * b;
}
`

	r := Diff(twoFuncs, newCode, "js")

	if r.ChangeType != ChangeIncremental {
		t.Errorf("expected incremental, got %s (similarity %v)", r.ChangeType, r.Similarity)
	}
	if r.Similarity >= 1.0 || r.Similarity < 0.3 {
		t.Errorf("similarity out of incremental range: %v", r.Similarity)
	}

	want := Summary{Added: 1, Removed: 0, Modified: 1, Unchanged: 1}
	if r.Summary != want {
		t.Errorf("summary = %+v, expected %+v", r.Summary, want)
	}

	byName := make(map[string]FunctionDiff)
	for _, f := range r.Functions {
		byName[f.Name] = f
	}

	add := byName["add"]
	if add.Change != FuncModified {
		t.Errorf("add reported %s, expected modified", add.Change)
	}
	if add.OldSignature == add.NewSignature {
		t.Errorf("expected differing signatures, got %q on both sides", add.OldSignature)
	}
	if add.OldSignature != "add(a, b)" || add.NewSignature != "add(a, b, c)" {
		t.Errorf("unexpected signatures: %q -> %q", add.OldSignature, add.NewSignature)
	}
	if add.BodyChanged {
		t.Error("add body did not change but bodyChanged is set")
	}

	if byName["sub"].Change != FuncUnchanged {
		t.Errorf("sub reported %s, expected unchanged", byName["sub"].Change)
	}
	if byName["mul"].Change != FuncAdded {
		t.Errorf("mul reported %s, expected added", byName["mul"].Change)
	}
	if byName["mul"].NewSignature != "mul(a, b)" {
		t.Errorf("unexpected mul signature %q", byName["mul"].NewSignature)
	}

	if !hasStructural(r, SignatureChanged, "add") {
		t.Error("missing signature-changed event for add")
	}
	if !hasStructural(r, FunctionAdded, "mul") {
		t.Error("missing function-added event for mul")
	}
	if hasStructural(r, BodyChanged, "add") {
		t.Error("unexpected body-changed event for add")
	}

	// Reverse direction yields the symmetric removal.
	rev := Diff(newCode, twoFuncs, "js")
	if rev.Summary.Removed != 1 {
		t.Errorf("reverse summary.removed = %d, expected 1", rev.Summary.Removed)
	}
	if !hasStructural(rev, FunctionRemoved, "mul") {
		t.Error("missing function-removed event for mul in reverse diff")
	}
}

func TestDiff_BodyOnlyChange(t *testing.T) {
	newCode := strings.Replace(twoFuncs, "return a - b;", "return a - b - 1;", 1)

	r := Diff(twoFuncs, newCode, "js")

	if r.ChangeType != ChangeIncremental {
		t.Errorf("expected incremental, got %s", r.ChangeType)
	}

	var sub FunctionDiff
	for _, f := range r.Functions {
		if f.Name == "sub" {
			sub = f
		}
	}
	if sub.Change != FuncModified {
		t.Errorf("sub reported %s, expected modified", sub.Change)
	}
	if !sub.BodyChanged {
		t.Error("expected bodyChanged for sub")
	}
	if sub.OldSignature != sub.NewSignature {
		t.Error("signature should be unchanged for a body-only edit")
	}

	if !hasStructural(r, BodyChanged, "sub") {
		t.Error("missing body-changed event for sub")
	}
	if hasStructural(r, SignatureChanged, "sub") {
		t.Error("unexpected signature-changed event for sub")
	}
}

func TestDiff_Rewrite(t *testing.T) {
	oldCode := `function add(a, b) {
  return a + b;
}
`
	newCode := `import os
result = []
for i in range(10):
    result.append(i * 2)
print(result)
`

	r := Diff(oldCode, newCode, "js")

	if r.ChangeType != ChangeRewrite {
		t.Errorf("expected rewrite, got %s (similarity %v)", r.ChangeType, r.Similarity)
	}
	if r.Similarity >= 0.3 {
		t.Errorf("expected similarity below 0.3, got %v", r.Similarity)
	}
}

func TestDiff_LineDiffReconstruction(t *testing.T) {
	oldCode := "alpha\nbravo\ncharlie\ndelta\n"
	newCode := "alpha\nbeta\ncharlie\necho\nfoxtrot\n"

	r := Diff(oldCode, newCode, "")

	var sawAdded, sawRemoved, sawSame bool
	var oldRebuilt, newRebuilt []string
	for _, lc := range r.LineDiff {
		switch lc.Type {
		case LineSame:
			sawSame = true
			oldRebuilt = append(oldRebuilt, lc.Text)
			newRebuilt = append(newRebuilt, lc.Text)
		case LineRemoved:
			sawRemoved = true
			oldRebuilt = append(oldRebuilt, lc.Text)
		case LineAdded:
			sawAdded = true
			newRebuilt = append(newRebuilt, lc.Text)
		}
	}

	if !sawAdded || !sawRemoved || !sawSame {
		t.Errorf("expected a mix of added/removed/same entries, got %v", r.LineDiff)
	}
	if got := strings.Join(oldRebuilt, "\n") + "\n"; got != oldCode {
		t.Errorf("old text not reconstructable: %q", got)
	}
	if got := strings.Join(newRebuilt, "\n") + "\n"; got != newCode {
		t.Errorf("new text not reconstructable: %q", got)
	}
}

func TestDiff_EmptyInputs(t *testing.T) {
	r := Diff("", "", "js")
	if r.Similarity != 1.0 || r.ChangeType != ChangeCosmetic {
		t.Errorf("empty vs empty: got %v/%s", r.Similarity, r.ChangeType)
	}
	if len(r.LineDiff) != 0 || len(r.Functions) != 0 {
		t.Errorf("empty inputs should have no lines or functions: %+v", r)
	}

	r = Diff("", twoFuncs, "js")
	if r.ChangeType != ChangeRewrite {
		t.Errorf("empty old vs code: expected rewrite, got %s", r.ChangeType)
	}
	if r.Summary.Added != 2 {
		t.Errorf("expected 2 added functions, got %d", r.Summary.Added)
	}
}

func TestDiff_TrailingNewlineOnly(t *testing.T) {
	// A final-newline-only difference is invisible to the line diff, but a
	// non-identical input must never score 1.0 or read as cosmetic.
	r := Diff("alpha", "alpha\n", "")

	if r.Similarity >= 1.0 {
		t.Errorf("non-identical inputs scored %v, expected below 1.0", r.Similarity)
	}
	if r.Similarity < 0.9 {
		t.Errorf("near-identical inputs scored %v, expected at least 0.9", r.Similarity)
	}
	if r.ChangeType != ChangeIncremental {
		t.Errorf("expected incremental, got %s", r.ChangeType)
	}
}

func TestDiff_UnknownLanguageDegrades(t *testing.T) {
	// Unknown tags fall back to the generic extractor; no error, no panic.
	r := Diff("some text\n", "some text\nmore text\n", "cobol")
	if r.ChangeType != ChangeIncremental {
		t.Errorf("expected incremental, got %s (similarity %v)", r.ChangeType, r.Similarity)
	}
}

func TestUnified(t *testing.T) {
	patch := Unified("a/f.js", "b/f.js", "one\ntwo\n", "one\nthree\n")

	for _, marker := range []string{"--- a/f.js", "+++ b/f.js", "@@", "-two", "+three"} {
		if !strings.Contains(patch, marker) {
			t.Errorf("patch missing %q:\n%s", marker, patch)
		}
	}
}

func hasStructural(r *Result, typ StructuralChangeType, name string) bool {
	for _, sc := range r.StructuralChanges {
		if sc.Type == typ && sc.Name == name {
			return true
		}
	}
	return false
}
