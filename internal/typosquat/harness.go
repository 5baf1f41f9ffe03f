package typosquat

import (
	"fmt"

	"github.com/tsukumogami/squatwatch/internal/similarity"
)

// Squat is one check firing for one reference package.
type Squat struct {
	Package   string // reference package the candidate resembles
	Check     string // name of the check that fired
	Candidate string // candidate name as published
	Detail    string // human-readable explanation
}

// String renders the squat for reviewers, e.g.
// `serde: "serd" omits the character 'e' at position 5 (omitted)`.
func (s Squat) String() string {
	return fmt.Sprintf("%s: %q %s (%s)", s.Package, s.Candidate, s.Detail, s.Check)
}

type reference struct {
	name similarity.Name
	pkg  *Package
}

// Harness runs a fixed list of checks against a fixed reference set.
// It is immutable and safe for concurrent use.
type Harness struct {
	checks []similarity.Check
	refs   []reference
}

// NewHarness compiles checks and packages into a harness. Packages keep
// their order; a later package whose name normalizes to an earlier one is
// dropped so that each (check, reference) pair can fire at most once.
func NewHarness(checks []similarity.Check, packages []Package) *Harness {
	h := &Harness{
		checks: checks,
		refs:   make([]reference, 0, len(packages)),
	}
	seen := make(map[string]bool, len(packages))
	for i := range packages {
		name := similarity.NewName(packages[i].Name)
		if name.Len() == 0 || seen[name.String()] {
			continue
		}
		seen[name.String()] = true
		h.refs = append(h.refs, reference{name: name, pkg: &packages[i]})
	}
	return h
}

// CheckPackage runs every check against every reference and returns the
// squats in check order, then reference order. The reference equal to the
// candidate and references sharing an owner with pkg are skipped. pkg may
// be nil when only the name is known.
func (h *Harness) CheckPackage(name string, pkg *Package) []Squat {
	candidate := similarity.NewName(name)
	if candidate.Len() == 0 {
		return nil
	}

	skip := make([]bool, len(h.refs))
	for i, ref := range h.refs {
		skip[i] = ref.name.Equal(candidate) || pkg.SharesOwner(ref.pkg)
	}

	var squats []Squat
	for _, check := range h.checks {
		for i, ref := range h.refs {
			if skip[i] {
				continue
			}
			if detail, ok := check.Match(candidate, ref.name); ok {
				squats = append(squats, Squat{
					Package:   ref.pkg.Name,
					Check:     check.Name(),
					Candidate: name,
					Detail:    detail,
				})
			}
		}
	}
	return squats
}

// Checks returns the names of the compiled checks in execution order.
func (h *Harness) Checks() []string {
	names := make([]string, len(h.checks))
	for i, c := range h.checks {
		names[i] = c.Name()
	}
	return names
}

// Len returns the number of reference packages.
func (h *Harness) Len() int {
	return len(h.refs)
}
