package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/squatwatch/internal/similarity"
)

var (
	cacheList bool
	cacheJSON bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show the popular package set new packages are checked against",
	Long: `Build the typosquat cache the way the worker does and describe it:
how many reference packages it holds, which checks run, and who is
notified.`,
	Args: exactArgs(0),
	RunE: runCache,
}

func init() {
	cacheCmd.Flags().BoolVar(&cacheList, "list", false, "List every reference package")
	cacheCmd.Flags().BoolVar(&cacheJSON, "json", false, "Print as JSON")
	rootCmd.AddCommand(cacheCmd)
}

type cacheInfo struct {
	Packages   int       `json:"packages"`
	Checks     []string  `json:"checks"`
	Disabled   []string  `json:"disabled_checks"`
	Recipients []string  `json:"recipients"`
	BuiltAt    time.Time `json:"built_at"`
	References []string  `json:"references,omitempty"`
}

func runCache(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.provider.Get(ctx, a.store)
	if err != nil {
		return err
	}

	info := cacheInfo{
		Packages:   len(c.Packages()),
		Checks:     []string{},
		Recipients: slices.Collect(c.Emails()),
		BuiltAt:    c.BuiltAt(),
	}
	if h := c.Harness(); h != nil {
		info.Checks = h.Checks()
	}
	for _, name := range similarity.Names() {
		if !slices.Contains(info.Checks, name) {
			info.Disabled = append(info.Disabled, name)
		}
	}
	if cacheList {
		for _, p := range c.Packages() {
			info.References = append(info.References, p.Name)
		}
	}

	if cacheJSON {
		return printJSON(info)
	}

	fmt.Fprintf(stdout, "reference packages: %d\n", info.Packages)
	fmt.Fprintf(stdout, "checks:             %s\n", joinOrNone(info.Checks))
	fmt.Fprintf(stdout, "disabled checks:    %s\n", joinOrNone(info.Disabled))
	fmt.Fprintf(stdout, "recipients:         %s\n", joinOrNone(info.Recipients))
	if info.Packages == 0 {
		warnColor.Fprintln(stdout, "the store has no packages; run `squatwatch seed` first")
	}
	if cacheList {
		for _, p := range c.Packages() {
			fmt.Fprintf(stdout, "  %-40s %12d\n", p.Name, p.Downloads)
		}
	}
	return nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return dimColor.Sprint("(none)")
	}
	return strings.Join(items, ", ")
}
