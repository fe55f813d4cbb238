package collector

import (
	"context"
	"fmt"

	"redditcollector/pkg/checkpoint"
	"redditcollector/pkg/logger"
	"redditcollector/pkg/metrics"
	"redditcollector/pkg/reddit"
	"redditcollector/pkg/store"
)

// CollectResult counts what one collection batch did
type CollectResult struct {
	Processed int
	Skipped   int
	Appended  int
}

// Collection fetches the authored history of known users
type Collection struct {
	source      Source
	store       *store.Manager
	checkpoints *checkpoint.Manager
	metrics     metrics.Recorder
	logger      logger.Logger
	postsLimit  int
}

// NewCollection creates a collection engine. postsLimit <= 0 collects every
// item Reddit will return for a user.
func NewCollection(source Source, st *store.Manager, cps *checkpoint.Manager, postsLimit int, rec metrics.Recorder, log logger.Logger) *Collection {
	if rec == nil {
		rec = metrics.Nop()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Collection{
		source:      source,
		store:       st,
		checkpoints: cps,
		metrics:     rec,
		logger:      log,
		postsLimit:  postsLimit,
	}
}

// Run collects usernames in order. After each user its rows are appended
// and cp is advanced. A failing user is logged and skipped. Cancelling ctx
// stops the batch once the user in flight has been flushed.
func (c *Collection) Run(ctx context.Context, usernames []string, cp *checkpoint.Checkpoint) (CollectResult, error) {
	var res CollectResult

	for i, username := range usernames {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rows, walkErr := c.collectUser(ctx, username)

		appended, err := c.store.AppendPosts(rows)
		if err != nil {
			return res, fmt.Errorf("failed to store posts for %s: %w", username, err)
		}
		res.Appended += appended
		c.metrics.AddPostsAppended(appended)

		if walkErr != nil && ctx.Err() != nil {
			// partial rows are kept; the user is collected again next run
			return res, ctx.Err()
		}

		if walkErr != nil {
			logger.LogUserSkipped(c.logger, username, walkErr)
			res.Skipped++
			c.metrics.IncUsersSkipped()
		} else {
			logger.LogUserPosts(c.logger, username, len(rows), i, len(usernames))
			res.Processed++
			c.metrics.IncUsersProcessed()
		}

		if c.checkpoints != nil && cp != nil {
			if err := c.checkpoints.Record(cp, username); err != nil {
				return res, fmt.Errorf("failed to save checkpoint: %w", err)
			}
		}
	}

	return res, nil
}

// collectUser walks every category for one user and returns the rows read
// so far together with the first error.
func (c *Collection) collectUser(ctx context.Context, username string) ([]store.Post, error) {
	var rows []store.Post

	for _, cat := range reddit.Categories {
		if c.postsLimit > 0 && len(rows) >= c.postsLimit {
			break
		}
		for item, err := range c.source.AuthoredItems(ctx, username, cat) {
			if err != nil {
				return rows, fmt.Errorf("%s: %w", cat.Name, err)
			}
			if c.postsLimit > 0 && len(rows) >= c.postsLimit {
				return rows, nil
			}
			rows = append(rows, postFromItem(username, item))
		}
	}

	return rows, nil
}

func postFromItem(username string, item reddit.Item) store.Post {
	return store.Post{
		Username:       username,
		Title:          item.Title,
		Selftext:       item.Body,
		Subreddit:      item.Subreddit,
		Score:          item.Score,
		NumComments:    item.NumComments,
		PostedTime:     item.Created,
		SubmissionType: int(item.Kind),
	}
}
