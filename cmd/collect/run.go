package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"redditcollector/pkg/auth"
	"redditcollector/pkg/checkpoint"
	"redditcollector/pkg/collector"
	"redditcollector/pkg/config"
	"redditcollector/pkg/logger"
	"redditcollector/pkg/metrics"
	"redditcollector/pkg/reddit"
	"redditcollector/pkg/store"
	"redditcollector/pkg/ui"
)

var (
	// Run command flags
	contentMode string
	usersLimit  int
	postsLimit  int
	withMembers bool
	accountName string
	notify      bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover users and collect their posts",
	Long: `Run one collection pass against the configured subreddit.

Content modes:
  all    discover up to --users new authors, then collect their posts
  posts  collect posts for stored users, resuming after the last one processed
  skip   collect nothing; only deduplicate and rewrite posts.csv

Every mode finishes with a pass over posts.csv that removes duplicate rows.
With --members, posts in allow-listed subreddits get the subreddit's member count.

Press Ctrl+C to stop. The current user is flushed and the next run resumes.`,
	Example: `  # Discover 500 users in r/politics and collect everything they posted
  collect run --subreddit politics --users 500

  # Resume post collection, at most 200 items per user
  collect run --content posts --posts 200

  # Only deduplicate and attach member counts
  collect run --content skip --members`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&contentMode, "content", string(collector.ModeAll), "what to collect: all, posts or skip")
	runCmd.Flags().IntVar(&usersLimit, "users", 0, "maximum number of users to discover (default from config)")
	runCmd.Flags().IntVar(&postsLimit, "posts", 0, "maximum items per user, 0 for no limit (default from config)")
	runCmd.Flags().BoolVar(&withMembers, "members", false, "attach member counts for allow-listed subreddits")
	runCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	runCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")
}

func runRun(cmd *cobra.Command, args []string) error {
	mode, err := collector.ParseMode(contentMode)
	if err != nil {
		return err
	}

	extra := map[string]interface{}{}
	if cmd.Flags().Changed("users") {
		extra["users"] = usersLimit
	}
	if cmd.Flags().Changed("posts") {
		extra["posts"] = postsLimit
	}
	cfg, err := loadConfig(extra)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()

	var source collector.Source
	if mode != collector.ModeSkip || withMembers {
		client, err := newRedditClient(cfg, log)
		if err != nil {
			return err
		}
		client.SetMetrics(registry)
		source = client
	}

	st, err := store.NewManager(cfg.Storage, log)
	if err != nil {
		return err
	}
	cps, err := checkpoint.NewManager(cfg.Storage.Path(cfg.Storage.CheckpointFile), log)
	if err != nil {
		return err
	}

	ui.PrintInfo("Subreddit", "r/"+cfg.Reddit.CollectionConfigs.Subreddit)
	ui.PrintInfo("Mode", mode)
	ui.PrintInfo("Data directory", cfg.Storage.DataDirectory)

	runner := collector.NewRunner(cfg, source, st, cps, registry, log)
	summary, runErr := runner.Run(ctx, collector.Options{
		Mode:       mode,
		UsersLimit: cfg.Collection.UsersLimit,
		PostsLimit: cfg.Collection.PostsLimit,
		Members:    withMembers,
	})

	if err := registry.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		log.WithError(err).Warn("Failed to write metrics textfile")
	}

	printSummary(summary)

	notifier := ui.NewNotifier(notify)
	switch {
	case errors.Is(runErr, context.Canceled):
		ui.PrintWarning("Interrupted. Run `collect run --content posts` to resume")
		return runErr
	case runErr != nil:
		notifier.Failure("Collection failed", runErr.Error())
		return runErr
	}
	notifier.Success("Collection finished", fmt.Sprintf("%d users, %d posts appended",
		summary.UsersProcessed, summary.PostsAppended))
	return nil
}

func newRedditClient(cfg *config.Config, log logger.Logger) (*reddit.Client, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	creds, err := manager.Retrieve(accountName)
	if err != nil {
		return nil, fmt.Errorf("%w (set %s or run `collect auth login`)", err, auth.CredentialsEnvVar)
	}
	return reddit.NewClient(cfg, creds, log)
}

func printSummary(s *collector.Summary) {
	if s == nil {
		return
	}
	fmt.Fprintln(ui.Output)
	ui.PrintHighlight("Run summary")
	ui.PrintInfo("  Run", s.RunID)
	if s.Mode == collector.ModeAll {
		ui.PrintInfo("  Users discovered", s.UsersDiscovered)
	}
	if s.Mode == collector.ModePosts {
		ui.PrintInfo("  Resumed at", s.ResumeOffset)
	}
	ui.PrintInfo("  Users processed", s.UsersProcessed)
	ui.PrintInfo("  Users skipped", s.UsersSkipped)
	ui.PrintInfo("  Posts appended", s.PostsAppended)
	ui.PrintInfo("  Duplicates removed", s.DuplicatesRemoved)
	if s.PostsEnriched > 0 {
		ui.PrintInfo("  Posts with member counts", s.PostsEnriched)
	}
	ui.PrintInfo("  Duration", s.Duration.Round(time.Second))
}
