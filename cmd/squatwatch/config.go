package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/squatwatch/internal/config"
	"github.com/tsukumogami/squatwatch/internal/secrets"
)

var configJSON bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage squatwatch configuration",
	Long: `Manage squatwatch configuration settings.

Configuration is stored in $XDG_CONFIG_HOME/squatwatch/config.toml, or
$SQUATWATCH_HOME/config.toml when SQUATWATCH_HOME is set. Use --config to
point at another file. Run 'squatwatch config keys' to list settings.`,
	Example: `  squatwatch config show
  squatwatch config set typosquat.emails security@example.com,ops@example.com
  squatwatch config get worker.concurrency`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show every setting after environment overrides. Secrets are redacted.`,
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, _ []string) error {
		entries := cfg.Entries()
		if configJSON {
			m := make(map[string]string, len(entries))
			for _, e := range entries {
				m[e.Key] = e.Value
			}
			return printJSON(m)
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\n", e.Key, e.Value)
		}
		return tw.Flush()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, ok := cfg.Get(args[0])
		if !ok {
			return unknownKey(args[0])
		}
		fmt.Fprintln(stdout, value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save it to the config file. Lists are
comma-separated; durations use Go syntax such as 30m or 6h.`,
	Example: `  squatwatch config set typosquat.top_packages 5000
  squatwatch config set typosquat.cache_ttl 1h`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		// Environment overrides must not end up in the file.
		c, err := config.LoadFile(path)
		if err != nil {
			return configError{err}
		}
		if _, ok := c.Get(args[0]); !ok {
			return unknownKey(args[0])
		}
		if err := c.Set(args[0], args[1]); err != nil {
			return usageError{err}
		}
		if err := c.Save(path); err != nil {
			return err
		}
		logger.Info("Saved configuration", "path", path, "key", args[0])
		value, _ := c.Get(args[0])
		printInfof("%s = %s\n", args[0], value)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, _ []string) error {
		printAvailableKeys(stdout)
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&configJSON, "json", false, "Print as JSON")
	configCmd.AddCommand(configShowCmd, configGetCmd, configSetCmd, configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

// configPath is the file `config set` writes.
func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	return config.DefaultPath()
}

func unknownKey(name string) error {
	fmt.Fprintf(os.Stderr, "Available keys:\n")
	printAvailableKeys(os.Stderr)
	return usageError{fmt.Errorf("unknown config key: %s", name)}
}

func printAvailableKeys(w io.Writer) {
	keys := config.AvailableKeys()
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	slices.Sort(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", k, keys[k])
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\nSecrets (read from the environment):\n")
	for _, k := range secrets.KnownKeys() {
		fmt.Fprintf(tw, "  %s\t%s\n", strings.Join(k.EnvVars, ", "), k.Desc)
	}
	_ = tw.Flush()
}
