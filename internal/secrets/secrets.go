// Package secrets resolves the credentials squatwatch needs at run time.
//
// A secret is looked up in environment variables first, then in a value
// taken from the config file. Each known secret is defined in the knownKeys
// table (specs.go), which maps a canonical name to its environment variable
// aliases. Requesting an unknown key is an error.
package secrets

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// KeyInfo describes a registered secret for external consumers.
type KeyInfo struct {
	// Name is the canonical key name (e.g., "github_token").
	Name string

	// EnvVars lists environment variables checked, in priority order.
	EnvVars []string

	// Desc is a human-readable description.
	Desc string
}

// NotSetError reports a secret that no source provides.
type NotSetError struct {
	Name    string
	EnvVars []string
}

func (e *NotSetError) Error() string {
	return fmt.Sprintf("%s not configured", e.Name)
}

// Suggestion tells the user where the secret can come from.
func (e *NotSetError) Suggestion() string {
	return fmt.Sprintf("Set the %s environment variable", strings.Join(e.EnvVars, " or "))
}

// Resolver looks secrets up. The zero value is not usable; call
// NewResolver.
type Resolver struct {
	getenv    func(string) string
	preferred map[string][]string
	fallback  map[string]string
}

// NewResolver creates a resolver reading the environment through getenv,
// usually os.Getenv.
func NewResolver(getenv func(string) string) *Resolver {
	return &Resolver{
		getenv:    getenv,
		preferred: make(map[string][]string),
		fallback:  make(map[string]string),
	}
}

// PreferEnv makes name check env before its default variables. Empty env
// is ignored.
func (r *Resolver) PreferEnv(name, env string) *Resolver {
	if env != "" {
		r.preferred[name] = append(r.preferred[name], env)
	}
	return r
}

// Fallback sets the value used when no environment variable is set,
// normally from the config file.
func (r *Resolver) Fallback(name, value string) *Resolver {
	r.fallback[name] = value
	return r
}

// envVars returns the variables checked for name, in order and without
// duplicates.
func (r *Resolver) envVars(name string) []string {
	var vars []string
	for _, env := range append(slices.Clone(r.preferred[name]), knownKeys[name].EnvVars...) {
		if !slices.Contains(vars, env) {
			vars = append(vars, env)
		}
	}
	return vars
}

// Get resolves a secret by name. Returns the first non-empty value, or a
// *NotSetError when no source has one.
func (r *Resolver) Get(name string) (string, error) {
	if _, ok := knownKeys[name]; !ok {
		return "", fmt.Errorf("unknown secret key: %q", name)
	}
	vars := r.envVars(name)
	for _, env := range vars {
		if val := r.getenv(env); val != "" {
			return val, nil
		}
	}
	if val := r.fallback[name]; val != "" {
		return val, nil
	}
	return "", &NotSetError{Name: name, EnvVars: vars}
}

// Lookup is Get for optional secrets: an unset secret is "".
func (r *Resolver) Lookup(name string) string {
	val, _ := r.Get(name)
	return val
}

// IsSet checks whether a secret is available without returning its value.
// Returns false for unknown keys.
func (r *Resolver) IsSet(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// KnownKeys returns metadata for all registered secrets, sorted by name.
func KnownKeys() []KeyInfo {
	keys := make([]KeyInfo, 0, len(knownKeys))
	for name, spec := range knownKeys {
		keys = append(keys, KeyInfo{
			Name:    name,
			EnvVars: spec.EnvVars,
			Desc:    spec.Desc,
		})
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Name < keys[j].Name
	})
	return keys
}
