package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/tsukumogami/squatwatch/internal/errmsg"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	okColor    = color.New(color.FgGreen)
	dimColor   = color.New(color.Faint)
)

// stdout is where command results go. Tests replace it.
var stdout io.Writer = os.Stdout

// printInfo prints a status message unless --quiet is set.
func printInfo(a ...any) {
	if !quietFlag {
		fmt.Fprintln(stdout, a...)
	}
}

func printInfof(format string, a ...any) {
	if !quietFlag {
		fmt.Fprintf(stdout, format, a...)
	}
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// errorContext names what the failing command was working on, for
// suggestions.
var errorContext *errmsg.ErrorContext

// printError prints err to stderr with likely causes and suggestions.
func printError(err error) {
	fprintError(os.Stderr, err)
}

func fprintError(w io.Writer, err error) {
	errorColor.Fprint(w, "Error: ")
	msg := errmsg.Format(err, errorContext)
	if msg != err.Error() {
		fmt.Fprint(w, msg)
		return
	}
	fmt.Fprintln(w, msg)

	var s interface{ Suggestion() string }
	if errors.As(err, &s) {
		if suggestion := s.Suggestion(); suggestion != "" {
			dimColor.Fprintf(w, "  %s\n", suggestion)
		}
	}
}
