package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"redditcollector/pkg/config"
	"redditcollector/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage collector configuration.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (REDDIT_COLLECTOR_*)
  - .env in the working directory
  - Configuration file (JSON or YAML)
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every option set to its default",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and check it.

Besides the value checks done on every run, this command verifies that the
data directory can be created and reports whether the member count
allow-list is present.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = filepath.Join(filepath.Dir(config.DefaultConfigPath), "collection_config.yaml")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	cfg := config.DefaultConfig()
	cfg.Reddit.CollectionConfigs.Subreddit = subreddit
	if cfg.Reddit.CollectionConfigs.Subreddit == "" {
		cfg.Reddit.CollectionConfigs.Subreddit = "politics"
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Set reddit.collection_configs.subreddit")
	fmt.Fprintln(ui.Output, "2. Run 'collect auth login' to store API credentials")
	fmt.Fprintln(ui.Output, "3. Run 'collect config validate', then 'collect run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))

	fmt.Fprintln(ui.Output, "\nCredentials are not part of the configuration; see 'collect auth list'.")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	var problems []string
	if err := os.MkdirAll(cfg.Storage.DataDirectory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create data directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Fprintf(ui.Output, "  - %s\n", p)
		}
		return fmt.Errorf("%d configuration problem(s)", len(problems))
	}

	allowList := cfg.Storage.Path(cfg.Storage.AllowListFile)
	if _, err := os.Stat(allowList); err != nil {
		ui.PrintWarning("Allow-list not found, --members will fail", allowList)
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	fmt.Fprintf(ui.Output, "  Subreddit: r/%s\n", cfg.Reddit.CollectionConfigs.Subreddit)
	fmt.Fprintf(ui.Output, "  Data directory: %s\n", cfg.Storage.DataDirectory)
	fmt.Fprintf(ui.Output, "  Users limit: %d\n", cfg.Collection.UsersLimit)
	fmt.Fprintf(ui.Output, "  Posts limit: %d\n", cfg.Collection.PostsLimit)
	fmt.Fprintf(ui.Output, "  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Fprintf(ui.Output, "  Max retries: %d\n", cfg.Retry.MaxAttempts)
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
