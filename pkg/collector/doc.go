// Package collector runs discovery and collection against a Source.
//
// Discovery walks the fixed subreddit views and records at most a given
// number of unique authors per run. Collection walks each user's comments
// and submissions, appending the rows and advancing the checkpoint after
// every user so an interrupted batch resumes at the next user. The Runner
// picks the stages for a mode (all, posts or skip), then deduplicates the
// posts table and optionally attaches subreddit member counts.
//
//	runner := collector.NewRunner(cfg, client, st, cps, registry, log)
//	summary, err := runner.Run(ctx, collector.Options{Mode: collector.ModePosts})
package collector
