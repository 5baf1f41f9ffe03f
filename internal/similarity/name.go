// Package similarity implements the name similarity checks used to spot
// typosquatting. Every check is a pure function over two normalized names:
// no I/O, no shared state, and bounded by the length of the names.
package similarity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// zeroWidthChars have no visual width and would otherwise let two names that
// render identically compare as different.
var zeroWidthChars = map[rune]bool{
	'\u200B': true, // Zero Width Space
	'\u200C': true, // Zero Width Non-Joiner
	'\u200D': true, // Zero Width Joiner
	'\uFEFF': true, // Byte Order Mark / Zero Width No-Break Space
	'\u2060': true, // Word Joiner
	'\u200E': true, // Left-to-Right Mark
	'\u200F': true, // Right-to-Left Mark
}

// Normalize trims, composes (NFC), case-folds, and strips zero-width
// characters from a package name. The stored identifier is never changed;
// checks compare normalized forms only.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if zeroWidthChars[r] {
			return -1
		}
		return r
	}, name)
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(name)
}

// Name is a normalized package name prepared for comparison.
type Name struct {
	raw   string
	text  string
	runes []rune
}

// NewName normalizes raw and precomputes its rune form.
func NewName(raw string) Name {
	text := Normalize(raw)
	return Name{raw: raw, text: text, runes: []rune(text)}
}

// String returns the normalized form.
func (n Name) String() string { return n.text }

// Raw returns the name as it was given.
func (n Name) Raw() string { return n.raw }

// Len returns the length in runes of the normalized form.
func (n Name) Len() int { return len(n.runes) }

// Equal reports whether two names normalize to the same text.
func (n Name) Equal(other Name) bool { return n.text == other.text }

// commonPrefix returns the number of leading runes a and b share.
func commonPrefix(a, b []rune) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// commonSuffix returns the number of trailing runes a and b share.
func commonSuffix(a, b []rune) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

// singleSubstitution reports the index at which candidate and reference
// differ when they have equal length and differ at exactly one position.
func singleSubstitution(candidate, reference []rune) (int, bool) {
	if len(candidate) != len(reference) || len(candidate) == 0 {
		return 0, false
	}
	p := commonPrefix(candidate, reference)
	if p == len(candidate) {
		return 0, false
	}
	if p+commonSuffix(candidate, reference) < len(candidate)-1 {
		return 0, false
	}
	return p, true
}

// replacedOnce reports whether candidate is reference with one occurrence
// of from replaced by to. It runs in time linear in the name length.
func replacedOnce(candidate, reference, from, to []rune) (int, bool) {
	if len(candidate) != len(reference)-len(from)+len(to) {
		return 0, false
	}
	p := commonPrefix(candidate, reference)
	s := commonSuffix(candidate, reference)
	lo := max(0, len(reference)-len(from)-s)
	hi := min(p, len(reference)-len(from))
	for i := lo; i <= hi; i++ {
		if runesEqual(reference[i:i+len(from)], from) && runesEqual(candidate[i:i+len(to)], to) {
			return i, true
		}
	}
	return 0, false
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
