package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"redditcollector/pkg/checkpoint"
	"redditcollector/pkg/collector"
	"redditcollector/pkg/logger"
	"redditcollector/pkg/store"
	"redditcollector/pkg/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store sizes and where the next posts run resumes",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	st, err := store.NewManager(cfg.Storage, log)
	if err != nil {
		return err
	}
	cps, err := checkpoint.NewManager(cfg.Storage.Path(cfg.Storage.CheckpointFile), log)
	if err != nil {
		return err
	}

	stats, err := st.Stats()
	if err != nil {
		return err
	}
	pos, err := collector.NewRunner(cfg, nil, st, cps, nil, log).ResumePosition()
	if err != nil {
		return err
	}

	ui.PrintHighlight("Store")
	ui.PrintInfo("  Users file", st.UsersPath())
	ui.PrintInfo("  User rows", stats.UserRows)
	ui.PrintInfo("  Unique users", stats.UniqueUsers)
	ui.PrintInfo("  Posts file", st.PostsPath())
	ui.PrintInfo("  Post rows", stats.PostRows)

	fmt.Fprintln(ui.Output)
	ui.PrintHighlight("Resume position")
	if pos.LastUsername == "" {
		ui.PrintInfo("  Last processed user", "(none)")
	} else {
		ui.PrintInfo("  Last processed user", pos.LastUsername)
	}
	ui.PrintInfo("  Next user index", pos.Offset)
	ui.PrintInfo("  Users remaining", pos.Users-pos.Offset)

	if !cps.Exists() {
		ui.PrintInfo("  Checkpoint", "(none)")
		return nil
	}
	if pos.StaleCheckpoint {
		ui.PrintWarning("  Checkpoint ignored, posts.csv is empty; the next posts run discards it")
	}
	cp, err := cps.Load()
	if err != nil {
		ui.PrintWarning("  Checkpoint unreadable", err)
		return nil
	}
	if cp != nil {
		ui.PrintInfo("  Checkpoint run", cp.RunID)
		ui.PrintInfo("  Checkpoint age", cp.Age().Round(time.Second).String())
	}
	return nil
}
