// Package difftest supplies golden-form comparison helpers for decode
// tests: stringified TypeInstances and decoded value trees are rendered to
// text and compared with a line diff, so a mismatch shows exactly which
// lines moved instead of a single "not equal" assertion failure.
package difftest

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff between got and want, empty if they're equal.
func Diff(want, got string) (string, error) {
	if want == got {
		return "", nil
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(ud)
}

// T is the subset of *testing.T this package needs, so callers don't have
// to import "testing" just to satisfy a helper's signature in non-test
// code paths.
type T interface {
	Helper()
	Fatalf(format string, args ...any)
}

// AssertEqual fails t with a unified diff if want != got.
func AssertEqual(t T, want, got string) {
	t.Helper()
	diff, err := Diff(want, got)
	if err != nil {
		t.Fatalf("computing diff: %v", err)
		return
	}
	if diff != "" {
		t.Fatalf("golden form mismatch:\n%s", diff)
	}
}

// AssertEqualf is AssertEqual with a caller-supplied message prefix.
func AssertEqualf(t T, want, got, msgAndArgs string, args ...any) {
	t.Helper()
	diff, err := Diff(want, got)
	if err != nil {
		t.Fatalf("computing diff: %v", err)
		return
	}
	if diff != "" {
		prefix := fmt.Sprintf(msgAndArgs, args...)
		t.Fatalf("%s: golden form mismatch:\n%s", prefix, diff)
	}
}

// NormalizeTrailingNewline trims a single trailing newline, so golden files
// saved with a final newline compare equal to in-memory strings built with
// strings.Join.
func NormalizeTrailingNewline(s string) string {
	return strings.TrimSuffix(s, "\n")
}
