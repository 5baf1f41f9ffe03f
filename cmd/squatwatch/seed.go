package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/squatwatch/internal/progress"
	"github.com/tsukumogami/squatwatch/internal/seed"
)

var seedLimit int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import popular packages into the store",
	Long: `Import package names, download counts, owners and versions into the
store. The typosquat check compares new packages against the most
downloaded of these.`,
}

var seedCratesCmd = &cobra.Command{
	Use:     "crates",
	Short:   "Import the most downloaded crates from the crates.io API",
	Example: `  squatwatch seed crates --limit 3000`,
	Args:    exactArgs(0),
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit := seedLimit
		if limit <= 0 {
			limit = cfg.Typosquat.TopPackages
		}
		return runSeed(cmd, &seed.CratesIOSource{}, limit)
	},
}

var seedHomebrewCmd = &cobra.Command{
	Use:   "homebrew",
	Short: "Import the most installed Homebrew formulae",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSeed(cmd, &seed.HomebrewSource{}, seedLimit)
	},
}

var seedFileCmd = &cobra.Command{
	Use:   "file <packages.yaml>",
	Short: "Import a curated package list from a YAML file",
	Long: `Import packages from a YAML file of the form:

  packages:
    - name: serde
      downloads: 500000000
      owners: ["user:1", "team:7"]
      versions: ["1.0.210"]`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd, &seed.FileSource{Path: args[0]}, seedLimit)
	},
}

var seedDumpCmd = &cobra.Command{
	Use:   "dump <db-dump.tar.gz>",
	Short: "Import a registry database dump",
	Long: `Import a crates.io style database dump: a tar archive, optionally
compressed with gzip, zstd, xz or lzip, holding crates.csv,
crate_downloads.csv, crate_owners.csv and versions.csv.`,
	Example: `  squatwatch seed dump db-dump.tar.gz --limit 10000`,
	Args:    exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := &seed.DumpSource{Path: args[0]}
		if !quietFlag && progress.IsTerminal(os.Stderr) {
			src.Progress = os.Stderr
		}
		return runSeed(cmd, src, seedLimit)
	},
}

func init() {
	seedCmd.PersistentFlags().IntVar(&seedLimit, "limit", 0, "Import at most this many packages, most popular first (0 for all)")
	seedCmd.AddCommand(seedCratesCmd, seedHomebrewCmd, seedFileCmd, seedDumpCmd)
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, src seed.Source, limit int) error {
	ctx := cmd.Context()
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	var spin *progress.Spinner
	if _, isDump := src.(*seed.DumpSource); !isDump && !quietFlag {
		spin = progress.NewSpinner(os.Stderr)
		spin.Start(fmt.Sprintf("Fetching packages from %s", src.Name()))
	}
	res, err := seed.Import(ctx, src, s, limit, logger)
	if spin != nil {
		spin.Stop("")
	}
	if err != nil {
		return err
	}

	okColor.Fprintf(stdout, "imported %d of %d package(s) from %s\n", res.Imported, res.Fetched, res.Source)
	return nil
}
