package collector

import (
	"context"
	"iter"

	"redditcollector/pkg/reddit"
)

// Source defines the Reddit operations the engines depend on
type Source interface {
	CandidateAuthors(ctx context.Context, subreddit string, view reddit.View) iter.Seq2[reddit.Candidate, error]
	AuthoredItems(ctx context.Context, username string, cat reddit.Category) iter.Seq2[reddit.Item, error]
	MemberCount(ctx context.Context, subreddit string) (int, error)
}

var _ Source = (*reddit.Client)(nil)
