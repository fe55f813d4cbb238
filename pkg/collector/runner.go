package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"redditcollector/pkg/checkpoint"
	"redditcollector/pkg/config"
	errs "redditcollector/pkg/errors"
	"redditcollector/pkg/logger"
	"redditcollector/pkg/metrics"
	"redditcollector/pkg/store"
)

// Mode selects which stages a run performs
type Mode string

const (
	// ModeSkip only post-processes the stored posts
	ModeSkip Mode = "skip"
	// ModePosts resumes collection over the stored users
	ModePosts Mode = "posts"
	// ModeAll discovers users and then collects the ones it found
	ModeAll Mode = "all"
)

// ParseMode validates a --content value
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSkip, ModePosts, ModeAll:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (want all, posts or skip)", errs.ErrInvalidMode, s)
	}
}

// Options are the per-invocation choices of a run
type Options struct {
	Mode       Mode
	UsersLimit int
	PostsLimit int
	Members    bool
}

// Summary reports what a run did
type Summary struct {
	RunID             string
	Mode              Mode
	Subreddit         string
	UsersDiscovered   int
	UsersProcessed    int
	UsersSkipped      int
	PostsAppended     int
	DuplicatesRemoved int
	PostsEnriched     int
	ResumeOffset      int
	Duration          time.Duration
}

// Fields renders the summary as log fields
func (s *Summary) Fields() map[string]interface{} {
	return map[string]interface{}{
		"run_id":             s.RunID,
		"mode":               string(s.Mode),
		"subreddit":          s.Subreddit,
		"users_discovered":   s.UsersDiscovered,
		"users_processed":    s.UsersProcessed,
		"users_skipped":      s.UsersSkipped,
		"posts_appended":     s.PostsAppended,
		"duplicates_removed": s.DuplicatesRemoved,
		"posts_enriched":     s.PostsEnriched,
		"resume_offset":      s.ResumeOffset,
		"duration":           s.Duration.String(),
	}
}

// Runner ties the engines together for one invocation
type Runner struct {
	cfg         *config.Config
	source      Source
	store       *store.Manager
	checkpoints *checkpoint.Manager
	metrics     metrics.Recorder
	logger      logger.Logger
	newRunID    func() string
}

// NewRunner creates a runner. rec and log may be nil.
func NewRunner(cfg *config.Config, source Source, st *store.Manager, cps *checkpoint.Manager, rec metrics.Recorder, log logger.Logger) *Runner {
	if rec == nil {
		rec = metrics.Nop()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Runner{
		cfg:         cfg,
		source:      source,
		store:       st,
		checkpoints: cps,
		metrics:     rec,
		logger:      log,
		newRunID:    uuid.NewString,
	}
}

// Run performs the stages selected by opts. When ctx is cancelled the
// summary so far is returned together with the context error and
// post-processing is skipped.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()
	subreddit := r.cfg.Reddit.CollectionConfigs.Subreddit
	summary := &Summary{
		RunID:     r.newRunID(),
		Mode:      opts.Mode,
		Subreddit: subreddit,
	}
	log := r.logger.WithFields(map[string]interface{}{
		"run_id":    summary.RunID,
		"subreddit": subreddit,
	})
	log.InfoWithFields("Run started", map[string]interface{}{
		"mode":    string(opts.Mode),
		"members": opts.Members,
	})

	finish := func(err error) (*Summary, error) {
		summary.Duration = time.Since(start)
		if err != nil {
			log.WithError(err).WithFields(summary.Fields()).Warn("Run stopped")
			return summary, err
		}
		log.InfoWithFields("Run finished", summary.Fields())
		return summary, nil
	}

	var err error
	switch opts.Mode {
	case ModeAll:
		err = r.discoverAndCollect(ctx, log, opts, summary)
	case ModePosts:
		err = r.resumeCollection(ctx, log, opts, summary)
	case ModeSkip:
	default:
		return finish(fmt.Errorf("%w: %q", errs.ErrInvalidMode, opts.Mode))
	}
	if err != nil {
		return finish(err)
	}

	posts, err := r.postProcess(log, summary)
	if err != nil {
		return finish(err)
	}

	if opts.Members {
		if err := r.enrich(ctx, log, posts, summary); err != nil {
			return finish(err)
		}
	}

	return finish(nil)
}

func (r *Runner) collection(opts Options, log logger.Logger) *Collection {
	return NewCollection(r.source, r.store, r.checkpoints, opts.PostsLimit, r.metrics, log)
}

func (r *Runner) startCheckpoint(summary *Summary) *checkpoint.Checkpoint {
	if r.checkpoints == nil {
		return nil
	}
	return r.checkpoints.Create(summary.Subreddit, summary.RunID)
}

func (r *Runner) discoverAndCollect(ctx context.Context, log logger.Logger, opts Options, summary *Summary) error {
	discovery := NewDiscovery(r.source, r.store, r.metrics, log)
	users, err := discovery.Run(ctx, summary.Subreddit, opts.UsersLimit)
	summary.UsersDiscovered = len(users)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}

	res, err := r.collection(opts, log).Run(ctx, users, r.startCheckpoint(summary))
	summary.apply(res)
	if err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	return nil
}

func (r *Runner) resumeCollection(ctx context.Context, log logger.Logger, opts Options, summary *Summary) error {
	rows, err := r.store.LoadUsers()
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	users := store.Usernames(rows)
	if len(users) == 0 {
		log.WithField("path", r.store.UsersPath()).Warn("No stored users to collect")
		return nil
	}

	last, stale := r.lastProcessedUsername(log)
	if stale {
		log.WithField("path", r.checkpoints.Path()).Warn("Post store is empty, discarding checkpoint")
		if err := r.checkpoints.Delete(); err != nil {
			return err
		}
	}
	offset := store.ResumeOffset(users, last)
	summary.ResumeOffset = offset
	r.metrics.SetResumeOffset(offset)
	log.InfoWithFields("Resuming collection", map[string]interface{}{
		"last_username": last,
		"offset":        offset,
		"users":         len(users),
	})

	res, err := r.collection(opts, log).Run(ctx, users[offset:], r.startCheckpoint(summary))
	summary.apply(res)
	if err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	return nil
}

// Position is where a posts run resumes in the deduplicated user list
type Position struct {
	LastUsername string
	Offset       int
	Users        int
	// StaleCheckpoint is set when a checkpoint exists but posts.csv is empty
	StaleCheckpoint bool
}

// ResumePosition reports the resume position without collecting anything
func (r *Runner) ResumePosition() (Position, error) {
	rows, err := r.store.LoadUsers()
	if err != nil {
		return Position{}, fmt.Errorf("failed to load users: %w", err)
	}
	users := store.Usernames(rows)
	last, stale := r.lastProcessedUsername(r.logger)
	return Position{
		LastUsername:    last,
		Offset:          store.ResumeOffset(users, last),
		Users:           len(users),
		StaleCheckpoint: stale,
	}, nil
}

// lastProcessedUsername prefers the checkpoint record and falls back to the
// final row of posts.csv. An empty or absent posts.csv means nothing has
// been collected, so any checkpoint left behind is reported as stale and
// ignored.
func (r *Runner) lastProcessedUsername(log logger.Logger) (last string, stale bool) {
	last, err := r.store.LastPostUsername()
	if err != nil {
		log.WithError(err).Warn("Couldn't read last post, starting from the beginning")
		return "", false
	}
	if last == "" {
		return "", r.checkpoints != nil && r.checkpoints.Exists()
	}

	if r.checkpoints != nil {
		cp, err := r.checkpoints.Load()
		if err != nil {
			log.WithError(err).Warn("Checkpoint unreadable, falling back to posts")
		} else if cp != nil && cp.LastProcessedUsername != "" {
			return cp.LastProcessedUsername, false
		}
	}
	return last, false
}

// postProcess drops duplicate rows, recomputes fulltext and persists the table
func (r *Runner) postProcess(log logger.Logger, summary *Summary) ([]store.Post, error) {
	posts, removed, err := r.store.LoadAllPosts()
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	summary.DuplicatesRemoved = removed
	r.metrics.AddDuplicatesRemoved(removed)

	for i := range posts {
		posts[i].Fulltext = posts[i].Title + posts[i].Selftext
	}
	if err := r.store.RewritePosts(posts); err != nil {
		return nil, err
	}

	log.InfoWithFields("Posts processed", map[string]interface{}{
		"posts":              len(posts),
		"duplicates_removed": removed,
	})
	return posts, nil
}

func (r *Runner) enrich(ctx context.Context, log logger.Logger, posts []store.Post, summary *Summary) error {
	allowed, err := store.LoadAllowList(r.cfg.Storage.Path(r.cfg.Storage.AllowListFile))
	if err != nil {
		return err
	}

	counts := NewMemberCounts(r.source, r.cfg.Cache, r.metrics, log)
	n, err := Enrich(ctx, posts, allowed, counts, log)
	summary.PostsEnriched = n
	if err != nil {
		return fmt.Errorf("enrichment: %w", err)
	}

	if err := r.store.RewritePosts(posts); err != nil {
		return err
	}
	log.InfoWithFields("Member counts attached", map[string]interface{}{
		"posts":      n,
		"subreddits": len(allowed),
	})
	return nil
}

func (s *Summary) apply(res CollectResult) {
	s.UsersProcessed += res.Processed
	s.UsersSkipped += res.Skipped
	s.PostsAppended += res.Appended
}
