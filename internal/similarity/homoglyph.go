package similarity

import (
	"fmt"
	"strings"
)

// DefaultHomoglyphs are character sequences that are easy to mistake for one
// another in a registry listing or a terminal font. Each pair is matched in
// both directions.
var DefaultHomoglyphs = [][2]string{
	{"1", "l"},
	{"1", "i"},
	{"l", "i"},
	{"0", "o"},
	{"rn", "m"},
	{"vv", "w"},
	{"cl", "d"},
	{"5", "s"},
	{"2", "z"},
	{"u", "v"},
	// Cyrillic and Greek letters that render like Latin ones.
	{"\u0430", "a"},
	{"\u0435", "e"},
	{"\u043E", "o"},
	{"\u0440", "p"},
	{"\u0441", "c"},
	{"\u0443", "y"},
	{"\u0445", "x"},
	{"\u0455", "s"},
	{"\u0456", "i"},
	{"\u0458", "j"},
	{"\u03BF", "o"},
	{"\u03BD", "v"},
	{"\u03B9", "i"},
}

type confusable struct {
	from, to []rune
}

// Homoglyph matches a candidate that is the reference with one confusable
// sequence replaced by its lookalike ("rnyapp" for "myapp", "serd\u0435" for
// "serde").
type Homoglyph struct {
	table []confusable
}

// NewHomoglyph builds the check from DefaultHomoglyphs plus extra pairs.
// Pairs are normalized the same way names are.
func NewHomoglyph(extra [][2]string) (*Homoglyph, error) {
	pairs := append(append([][2]string{}, DefaultHomoglyphs...), extra...)
	h := &Homoglyph{table: make([]confusable, 0, 2*len(pairs))}
	seen := make(map[string]bool, 2*len(pairs))
	for _, pair := range pairs {
		a, b := Normalize(pair[0]), Normalize(pair[1])
		if a == "" || b == "" {
			return nil, fmt.Errorf("invalid homoglyph pair %q/%q: both sides must be non-empty", pair[0], pair[1])
		}
		if a == b {
			continue
		}
		for _, c := range []confusable{{[]rune(a), []rune(b)}, {[]rune(b), []rune(a)}} {
			key := string(c.from) + "\x00" + string(c.to)
			if seen[key] {
				continue
			}
			seen[key] = true
			h.table = append(h.table, c)
		}
	}
	return h, nil
}

func (*Homoglyph) Name() string { return CheckHomoglyph }

func (h *Homoglyph) Match(candidate, reference Name) (string, bool) {
	if candidate.Equal(reference) {
		return "", false
	}
	for _, c := range h.table {
		if _, ok := replacedOnce(candidate.runes, reference.runes, c.from, c.to); ok {
			return fmt.Sprintf("uses %s in place of the lookalike %s", quoteRunes(c.to), quoteRunes(c.from)), true
		}
	}
	return "", false
}

// quoteRunes quotes a sequence and names any non-ASCII code points so a
// reviewer can tell a Cyrillic "\u0435" from a Latin "e" in a plain-text mail.
func quoteRunes(rs []rune) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%q", string(rs)))
	for _, r := range rs {
		if r > 0x7f {
			sb.WriteString(fmt.Sprintf(" (U+%04X)", r))
		}
	}
	return sb.String()
}
