package similarity

import (
	"fmt"
	"math/bits"
	"strings"
)

// The edit checks each look for one specific single-operation edit. They
// compare common prefix and suffix lengths instead of computing a full edit
// distance, which keeps every comparison linear in the name length.

// Omitted matches a candidate that is the reference with one character
// removed ("serd" for "serde").
type Omitted struct{}

func (Omitted) Name() string { return CheckOmitted }

func (Omitted) Match(candidate, reference Name) (string, bool) {
	c, r := candidate.runes, reference.runes
	if len(c) != len(r)-1 {
		return "", false
	}
	p := commonPrefix(c, r)
	if p+commonSuffix(c, r) < len(c) {
		return "", false
	}
	return fmt.Sprintf("omits the character %q at position %d", r[p], p+1), true
}

// Repeated matches a candidate that is the reference with one character
// doubled ("serdde" for "serde").
type Repeated struct{}

func (Repeated) Name() string { return CheckRepeated }

func (Repeated) Match(candidate, reference Name) (string, bool) {
	c, r := candidate.runes, reference.runes
	if len(c) != len(r)+1 {
		return "", false
	}
	p := commonPrefix(c, r)
	s := commonSuffix(c, r)
	// i is the index of the inserted rune in c.
	for i := max(0, len(r)-s); i <= min(p, len(r)); i++ {
		if (i > 0 && c[i] == c[i-1]) || (i+1 < len(c) && c[i] == c[i+1]) {
			return fmt.Sprintf("repeats the character %q", c[i]), true
		}
	}
	return "", false
}

// Swapped matches a candidate that is the reference with two adjacent
// characters transposed ("sedre" for "serde").
type Swapped struct{}

func (Swapped) Name() string { return CheckSwapped }

func (Swapped) Match(candidate, reference Name) (string, bool) {
	c, r := candidate.runes, reference.runes
	if len(c) != len(r) {
		return "", false
	}
	p := commonPrefix(c, r)
	if p+1 >= len(c) {
		return "", false
	}
	if c[p] != r[p+1] || c[p+1] != r[p] {
		return "", false
	}
	if commonSuffix(c, r) < len(c)-p-2 {
		return "", false
	}
	return fmt.Sprintf("swaps the characters %q and %q", r[p], r[p+1]), true
}

// Substituted matches any single-character replacement. It is off by
// default; Typos and Bitflip cover the plausible substitutions.
type Substituted struct{}

func (Substituted) Name() string { return CheckSubstituted }

func (Substituted) Match(candidate, reference Name) (string, bool) {
	p, ok := singleSubstitution(candidate.runes, reference.runes)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("replaces %q with %q", reference.runes[p], candidate.runes[p]), true
}

// keyboardNeighbours maps each key to the keys adjacent to it on a QWERTY
// layout.
var keyboardNeighbours = map[rune]string{
	'1': "2q", '2': "13wq", '3': "24ew", '4': "35re", '5': "46tr",
	'6': "57yt", '7': "68uy", '8': "79iu", '9': "80oi", '0': "9-po",
	'-': "0p",
	'q': "12wa", 'w': "qe23sa", 'e': "wr34ds", 'r': "et45fd", 't': "ry56gf",
	'y': "tu67hg", 'u': "yi78jh", 'i': "uo89kj", 'o': "ip90lk", 'p': "o0-l",
	'a': "qwsz", 's': "weadzx", 'd': "erfsxc", 'f': "rtgdcv", 'g': "tyhfvb",
	'h': "yujgbn", 'j': "uikhnm", 'k': "iolj,m", 'l': "opk",
	'z': "asx", 'x': "zsdc", 'c': "xdfv", 'v': "cfgb", 'b': "vghn",
	'n': "bhjm", 'm': "njk",
}

// Typos matches a single substitution with a neighbouring keyboard key
// ("serfe" for "serde").
type Typos struct{}

func (Typos) Name() string { return CheckTypos }

func (Typos) Match(candidate, reference Name) (string, bool) {
	p, ok := singleSubstitution(candidate.runes, reference.runes)
	if !ok {
		return "", false
	}
	want, got := reference.runes[p], candidate.runes[p]
	if !strings.ContainsRune(keyboardNeighbours[want], got) {
		return "", false
	}
	return fmt.Sprintf("mistypes %q as the neighbouring key %q", want, got), true
}

// nameAlphabet is the set of characters a package name may contain after
// normalization.
const nameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789-_"

// Bitflip matches a single substitution whose two characters differ by one
// bit, the kind of corruption a faulty cache or link produces
// ("sesde" for "serde": 'r' 0x72 and 's' 0x73).
type Bitflip struct{}

func (Bitflip) Name() string { return CheckBitflip }

func (Bitflip) Match(candidate, reference Name) (string, bool) {
	p, ok := singleSubstitution(candidate.runes, reference.runes)
	if !ok {
		return "", false
	}
	want, got := reference.runes[p], candidate.runes[p]
	if want > 0x7f || got > 0x7f || !strings.ContainsRune(nameAlphabet, got) {
		return "", false
	}
	if bits.OnesCount32(uint32(want^got)) != 1 {
		return "", false
	}
	return fmt.Sprintf("flips one bit turning %q into %q", want, got), true
}
