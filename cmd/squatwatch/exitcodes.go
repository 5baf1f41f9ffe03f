package main

import (
	"errors"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/squatwatch/internal/store"
)

// Exit codes let scripts tell failure modes apart.
const (
	ExitSuccess = 0
	ExitGeneral = 1
	ExitUsage   = 2

	// ExitSquatsFound means `check` found potential typosquatting.
	ExitSquatsFound = 3

	// ExitNotFound means a named package is not in the store.
	ExitNotFound = 4

	ExitNetwork = 5
	ExitConfig  = 6
)

// errSquatsFound is returned by `check` after it has printed its findings.
var errSquatsFound = errors.New("potential typosquatting found")

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type configError struct{ err error }

func (e configError) Error() string { return "configuration: " + e.err.Error() }
func (e configError) Unwrap() error { return e.err }

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return usageArgs(cobra.ExactArgs(n))
}

func minimumArgs(n int) cobra.PositionalArgs {
	return usageArgs(cobra.MinimumNArgs(n))
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func exitCodeFor(err error) int {
	var (
		usage  usageError
		conf   configError
		netErr net.Error
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errSquatsFound):
		return ExitSquatsFound
	case errors.As(err, &usage):
		return ExitUsage
	case errors.As(err, &conf):
		return ExitConfig
	case store.IsNotFound(err):
		return ExitNotFound
	case errors.As(err, &netErr):
		return ExitNetwork
	default:
		return ExitGeneral
	}
}

func exitWithCode(code int) {
	os.Exit(code)
}
