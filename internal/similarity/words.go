package similarity

import (
	"fmt"
	"slices"
	"strings"
)

// separators are the characters registries commonly treat as word breaks
// in package names.
const separators = "-_."

func isSeparator(r rune) bool {
	return strings.ContainsRune(separators, r)
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if isSeparator(r) {
			return -1
		}
		return r
	}, s)
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, isSeparator)
}

// Separators matches names that only differ in their separators
// ("foo_bar" or "foobar" for "foo-bar").
type Separators struct{}

func (Separators) Name() string { return CheckSeparators }

func (Separators) Match(candidate, reference Name) (string, bool) {
	if candidate.Equal(reference) {
		return "", false
	}
	stripped := stripSeparators(candidate.text)
	if stripped == "" || stripped != stripSeparators(reference.text) {
		return "", false
	}
	return "differs only in its separators", true
}

// SwappedWords matches names made of the same separator-delimited words in
// a different order ("core-rand" for "rand-core").
type SwappedWords struct{}

func (SwappedWords) Name() string { return CheckSwappedWords }

func (SwappedWords) Match(candidate, reference Name) (string, bool) {
	cw, rw := splitWords(candidate.text), splitWords(reference.text)
	if len(cw) < 2 || len(cw) != len(rw) || slices.Equal(cw, rw) {
		return "", false
	}
	sortedC, sortedR := slices.Clone(cw), slices.Clone(rw)
	slices.Sort(sortedC)
	slices.Sort(sortedR)
	if !slices.Equal(sortedC, sortedR) {
		return "", false
	}
	return fmt.Sprintf("reorders the words %s", strings.Join(rw, ", ")), true
}

// Affixes matches a reference with a well-known prefix or suffix attached
// by a separator ("serde-rs" or "rust-serde" for "serde").
type Affixes struct {
	affixes []string
}

// NewAffixes builds the check for the given affixes.
func NewAffixes(affixes []string) *Affixes {
	a := &Affixes{}
	for _, affix := range affixes {
		if n := Normalize(affix); n != "" {
			a.affixes = append(a.affixes, n)
		}
	}
	return a
}

func (*Affixes) Name() string { return CheckAffixes }

func (a *Affixes) Match(candidate, reference Name) (string, bool) {
	c, r := candidate.text, reference.text
	if len(c) <= len(r)+1 || r == "" {
		return "", false
	}
	for _, affix := range a.affixes {
		for _, sep := range []string{"-", "_"} {
			if c == r+sep+affix {
				return fmt.Sprintf("adds the suffix %q", sep+affix), true
			}
			if c == affix+sep+r {
				return fmt.Sprintf("adds the prefix %q", affix+sep), true
			}
		}
	}
	return "", false
}
