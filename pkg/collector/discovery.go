package collector

import (
	"context"
	"fmt"
	"strings"

	"redditcollector/pkg/logger"
	"redditcollector/pkg/metrics"
	"redditcollector/pkg/reddit"
	"redditcollector/pkg/store"
)

// Discovery walks a subreddit's views and records unique authors
type Discovery struct {
	source  Source
	store   *store.Manager
	metrics metrics.Recorder
	logger  logger.Logger
}

// NewDiscovery creates a discovery engine writing to st
func NewDiscovery(source Source, st *store.Manager, rec metrics.Recorder, log logger.Logger) *Discovery {
	if rec == nil {
		rec = metrics.Nop()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Discovery{source: source, store: st, metrics: rec, logger: log}
}

// Run records at most limit unique authors from subreddit, walking the views
// in order. Each view's new users are appended once the view is done. A view
// that fails to list is logged and abandoned; only cancellation of ctx ends
// the run with an error. The recorded usernames are returned in order.
func (d *Discovery) Run(ctx context.Context, subreddit string, limit int) ([]string, error) {
	limit = max(limit, 0)
	seen := make(map[string]struct{})
	var recorded []string

	for _, view := range reddit.Views {
		if len(seen) >= limit {
			break
		}

		batch, capped, err := d.walkView(ctx, subreddit, view, limit, seen)
		for _, u := range batch {
			recorded = append(recorded, u.Username)
		}
		if _, flushErr := d.store.AppendUsers(batch); flushErr != nil {
			return recorded, fmt.Errorf("failed to store users for view %s: %w", view, flushErr)
		}
		if err != nil {
			return recorded, err
		}
		if capped {
			d.logger.InfoWithFields("User limit reached", map[string]interface{}{
				"limit": limit,
				"view":  string(view),
			})
			break
		}
	}

	return recorded, nil
}

// walkView consumes one view. It reports whether the limit stopped it and
// returns an error only when ctx was cancelled.
func (d *Discovery) walkView(ctx context.Context, subreddit string, view reddit.View, limit int, seen map[string]struct{}) ([]store.User, bool, error) {
	var batch []store.User
	log := d.logger.WithField("view", string(view))

	for cand, err := range d.source.CandidateAuthors(ctx, subreddit, view) {
		if err != nil {
			if ctx.Err() != nil {
				return batch, false, ctx.Err()
			}
			log.WithError(err).Warn("Failed to list view, moving on")
			return batch, false, nil
		}
		if len(seen) >= limit {
			return batch, true, nil
		}
		if reddit.IsExcludedAuthor(cand.Author) {
			continue
		}

		name := strings.ToLower(strings.TrimSpace(cand.Author))
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		batch = append(batch, store.User{Username: name, Subreddit: subreddit})

		logger.LogUserAdded(d.logger, name, string(view), len(seen))
		d.metrics.IncUsersDiscovered(string(view))
		if len(seen) >= limit {
			return batch, true, nil
		}
	}

	return batch, false, nil
}
