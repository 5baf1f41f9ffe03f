package similarity

import (
	"fmt"
	"slices"
)

// Check decides whether a candidate name is a typosquat of a reference
// name. Match must be side-effect free and never match identical names.
// The detail string explains the match to a human reviewer.
type Check interface {
	Name() string
	Match(candidate, reference Name) (detail string, ok bool)
}

// Check names, in execution order.
const (
	CheckOmitted      = "omitted"
	CheckRepeated     = "repeated"
	CheckSwapped      = "swapped"
	CheckSubstituted  = "substituted"
	CheckTypos        = "typos"
	CheckBitflip      = "bitflip"
	CheckHomoglyph    = "homoglyph"
	CheckSeparators   = "separators"
	CheckSwappedWords = "swapped_words"
	CheckAffixes      = "affixes"
)

var checkOrder = []string{
	CheckOmitted,
	CheckRepeated,
	CheckSwapped,
	CheckSubstituted,
	CheckTypos,
	CheckBitflip,
	CheckHomoglyph,
	CheckSeparators,
	CheckSwappedWords,
	CheckAffixes,
}

// disabledByDefault lists checks that must be turned on explicitly.
// Any single substitution is too broad to run against thousands of
// short names without drowning reviewers.
var disabledByDefault = map[string]bool{
	CheckSubstituted: true,
}

// DefaultAffixes are the prefixes and suffixes people commonly glue onto an
// existing name when publishing a lookalike.
var DefaultAffixes = []string{"api", "cli", "core", "lib", "rs", "rust", "sys"}

// Options selects and tunes the checks returned by Build.
type Options struct {
	// Enabled turns on checks that are off by default.
	Enabled []string
	// Disabled turns off checks. Disabled wins over Enabled.
	Disabled []string
	// ExtraHomoglyphs adds confusable pairs to the built-in table.
	ExtraHomoglyphs [][2]string
	// Affixes overrides DefaultAffixes when non-empty.
	Affixes []string
}

// Names returns every known check name in execution order.
func Names() []string {
	return slices.Clone(checkOrder)
}

// DefaultEnabled reports whether a check runs without explicit opt-in.
func DefaultEnabled(name string) bool {
	return !disabledByDefault[name]
}

// Build returns the enabled checks in execution order. Unknown names in
// opts are an error so that a typo in configuration is not silently ignored.
func Build(opts Options) ([]Check, error) {
	for _, name := range append(slices.Clone(opts.Enabled), opts.Disabled...) {
		if !slices.Contains(checkOrder, name) {
			return nil, fmt.Errorf("unknown similarity check %q", name)
		}
	}

	var checks []Check
	for _, name := range checkOrder {
		if slices.Contains(opts.Disabled, name) {
			continue
		}
		if disabledByDefault[name] && !slices.Contains(opts.Enabled, name) {
			continue
		}
		c, err := newCheck(name, opts)
		if err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, nil
}

func newCheck(name string, opts Options) (Check, error) {
	switch name {
	case CheckOmitted:
		return Omitted{}, nil
	case CheckRepeated:
		return Repeated{}, nil
	case CheckSwapped:
		return Swapped{}, nil
	case CheckSubstituted:
		return Substituted{}, nil
	case CheckTypos:
		return Typos{}, nil
	case CheckBitflip:
		return Bitflip{}, nil
	case CheckHomoglyph:
		return NewHomoglyph(opts.ExtraHomoglyphs)
	case CheckSeparators:
		return Separators{}, nil
	case CheckSwappedWords:
		return SwappedWords{}, nil
	case CheckAffixes:
		affixes := opts.Affixes
		if len(affixes) == 0 {
			affixes = DefaultAffixes
		}
		return NewAffixes(affixes), nil
	}
	return nil, fmt.Errorf("unknown similarity check %q", name)
}
