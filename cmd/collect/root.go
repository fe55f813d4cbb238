package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"redditcollector/pkg/config"
	"redditcollector/pkg/logger"
	"redditcollector/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile        string
	subreddit         string
	dataDir           string
	logLevel          string
	metricsFile       string
	requestsPerMinute int
	noColor           bool
	quiet             bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "collect",
	Short: "Incrementally collect Reddit users and their posts",
	Long: `collect discovers the authors active in a subreddit and harvests their
comments and submissions into CSV tables.

Runs are incremental:
  - discovered users are appended to users.csv
  - posts already stored are never written twice
  - an interrupted run resumes after the last processed user`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetColor(!noColor)
		if quiet {
			return
		}
		if cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
}

// exitInterrupted is the shell convention for a process stopped by SIGINT
const exitInterrupted = 130

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if code := exitCode(rootCmd.Execute()); code != 0 {
		os.Exit(code)
	}
}

// exitCode maps a command error to the process exit status. An interrupted
// run already printed its resume hint.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		ui.PrintError("Error", err)
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is "+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVarP(&subreddit, "subreddit", "s", "", "subreddit to collect from (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding users.csv, posts.csv and checkpoint.json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
	rootCmd.PersistentFlags().IntVar(&requestsPerMinute, "requests-per-minute", 0, "Reddit API request budget")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "do not print the logo")

	rootCmd.SetVersionTemplate(`collect {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the config file, environment and global flags, then
// initializes the global logger from the result
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{
		"subreddit":           subreddit,
		"data-dir":            dataDir,
		"log-level":           logLevel,
		"metrics-file":        metricsFile,
		"requests-per-minute": requestsPerMinute,
	}
	maps.Copy(flags, extra)

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
