package main

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tsukumogami/squatwatch/internal/config"
	"github.com/tsukumogami/squatwatch/internal/log"
	"github.com/tsukumogami/squatwatch/internal/progress"
)

var (
	configFlag  string
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool

	// cfg is loaded before any subcommand runs.
	cfg      *config.Config
	logger   log.Logger = log.NewNoop()
	closeLog            = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "squatwatch",
	Short: "Typosquat detection for package registries",
	Long: `squatwatch checks newly published package names against the most
popular packages in a registry and notifies operators when a name looks
like a typosquat.

Seed the store with popular packages, then either check names directly or
enqueue them for the background worker:

  squatwatch seed crates --limit 3000
  squatwatch check serd
  squatwatch enqueue serd && squatwatch worker --once`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default $XDG_CONFIG_HOME/squatwatch/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log what squatwatch is doing")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log internal detail")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
}

// setup configures logging and loads the configuration.
func setup(cmd *cobra.Command, _ []string) error {
	if os.Getenv("NO_COLOR") != "" || !progress.IsTerminal(os.Stdout) {
		color.NoColor = true
	}

	level := determineLogLevel()
	l, closeFn, err := log.Setup(log.Options{Level: level})
	if err != nil {
		return err
	}
	log.SetDefault(l)

	path := configFlag
	if path == "" {
		path = config.DefaultPath()
	}
	c, err := config.Load(path)
	if err != nil {
		return configError{err}
	}
	cfg = c

	if cfg.LogFile != "" {
		l, closeFn, err = log.Setup(log.Options{Level: level, File: cfg.LogFile})
		if err != nil {
			return configError{err}
		}
		log.SetDefault(l)
	}
	logger, closeLog = l, closeFn
	logger.Debug("Loaded configuration", "path", path, "command", cmd.CommandPath())
	return nil
}

// determineLogLevel picks the log level from flags, then environment
// variables. Within each, debug beats verbose beats quiet.
func determineLogLevel() slog.Level {
	switch {
	case debugFlag:
		return slog.LevelDebug
	case verboseFlag:
		return slog.LevelInfo
	case quietFlag:
		return slog.LevelError
	case isTruthy(os.Getenv("SQUATWATCH_DEBUG")):
		return slog.LevelDebug
	case isTruthy(os.Getenv("SQUATWATCH_VERBOSE")):
		return slog.LevelInfo
	case isTruthy(os.Getenv("SQUATWATCH_QUIET")):
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func main() {
	err := rootCmd.Execute()
	_ = closeLog()
	if err == nil {
		return
	}
	if !errors.Is(err, errSquatsFound) {
		printError(err)
	}
	exitWithCode(exitCodeFor(err))
}
