package collector

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "redditcollector/pkg/errors"
	"redditcollector/pkg/reddit"
	"redditcollector/pkg/store"
)

func submissionTypes(posts []store.Post) []int {
	out := make([]int, len(posts))
	for i, p := range posts {
		out[i] = p.SubmissionType
	}
	return out
}

func TestCollectionCategoryCompleteness(t *testing.T) {
	env := newTestEnv(t)
	env.source.setHistory("alice",
		[]reddit.Item{commentItem("first", "politics", 1), commentItem("second", "news", 2)},
		[]reddit.Item{commentItem("hot take", "politics", 3)},
		[]reddit.Item{submissionItem("Hello\nthere", "multi\nline", "Politics", 4)},
	)

	c := NewCollection(env.source, env.store, env.cps, 0, nil, env.log)
	res, err := c.Run(context.Background(), []string{"alice"}, env.cps.Create("politics", "run"))
	require.NoError(t, err)
	assert.Equal(t, CollectResult{Processed: 1, Appended: 4}, res)

	posts := env.posts(t)
	require.Len(t, posts, 4)
	assert.Equal(t, []int{1, 1, 1, 0}, submissionTypes(posts))
	assert.Equal(t, "first", posts[0].Selftext)
	assert.Empty(t, posts[0].Title)
	assert.Equal(t, "Hellothere", posts[3].Title)
	assert.Equal(t, "multiline", posts[3].Selftext)
	assert.Equal(t, "politics", posts[3].Subreddit)
	assert.Equal(t, baseTime.Add(4*time.Minute), posts[3].PostedTime)

	assert.Equal(t, 1, env.log.CountMessage("User posts collected"))
}

func TestCollectionPerUserLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "unbounded", limit: 0, want: 4},
		{name: "negative is unbounded", limit: -1, want: 4},
		{name: "within first category", limit: 1, want: 1},
		{name: "spans categories", limit: 3, want: 3},
		{name: "above total", limit: 10, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.source.setHistory("alice",
				[]reddit.Item{commentItem("a", "politics", 1), commentItem("b", "politics", 2)},
				[]reddit.Item{commentItem("c", "politics", 3)},
				[]reddit.Item{submissionItem("d", "", "politics", 4)},
			)

			c := NewCollection(env.source, env.store, nil, tt.limit, nil, env.log)
			res, err := c.Run(context.Background(), []string{"alice"}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Appended)
			assert.Len(t, env.posts(t), tt.want)
		})
	}
}

func TestCollectionFailureIsolation(t *testing.T) {
	env := newTestEnv(t)
	env.source.setHistory("alice", []reddit.Item{commentItem("a", "politics", 1)}, nil, nil)
	env.source.setHistory("bob", []reddit.Item{commentItem("b", "politics", 2)}, nil,
		[]reddit.Item{submissionItem("never read", "", "politics", 3)})
	env.source.itemErrs["bob"] = errs.New(errs.ErrorTypeForbidden, 403, "account suspended")
	env.source.setHistory("carol", nil, nil, []reddit.Item{submissionItem("c", "", "politics", 4)})

	c := NewCollection(env.source, env.store, env.cps, 0, nil, env.log)
	res, err := c.Run(context.Background(), []string{"alice", "bob", "carol"}, env.cps.Create("politics", "run"))
	require.NoError(t, err)
	assert.Equal(t, CollectResult{Processed: 2, Skipped: 1, Appended: 3}, res)

	skipped := env.log.GetMessagesByLevel("WARN")
	require.Len(t, skipped, 1)
	assert.Equal(t, "Couldn't get posts for user", skipped[0].Message)
	assert.Equal(t, "bob", skipped[0].Fields["username"])
	assert.True(t, errs.Is(skipped[0].Error, errs.ErrorTypeForbidden))

	var users []string
	for _, p := range env.posts(t) {
		users = append(users, p.Username)
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, users, "partial rows of the failed user are kept")

	cp, err := env.cps.Load()
	require.NoError(t, err)
	assert.Equal(t, "carol", cp.LastProcessedUsername)
	assert.Equal(t, 3, cp.UsersProcessed)
}

func TestCollectionCheckpointAfterEachUser(t *testing.T) {
	env := newTestEnv(t)
	env.source.setHistory("alice", []reddit.Item{commentItem("a", "politics", 1)}, nil, nil)
	env.source.setHistory("bob", nil, nil, []reddit.Item{submissionItem("b", "", "politics", 2)})

	c := NewCollection(env.source, env.store, env.cps, 0, nil, env.log)
	_, err := c.Run(context.Background(), []string{"alice"}, env.cps.Create("politics", "run"))
	require.NoError(t, err)

	cp, err := env.cps.Load()
	require.NoError(t, err)
	assert.Equal(t, "alice", cp.LastProcessedUsername)

	_, err = c.Run(context.Background(), []string{"bob"}, cp)
	require.NoError(t, err)

	cp, err = env.cps.Load()
	require.NoError(t, err)
	assert.Equal(t, "bob", cp.LastProcessedUsername)
	assert.Equal(t, 2, cp.UsersProcessed)
}

func TestCollectionCancelledMidUser(t *testing.T) {
	env := newTestEnv(t)
	env.source.setHistory("alice", []reddit.Item{commentItem("a", "politics", 1)}, nil, nil)
	env.source.setHistory("bob", []reddit.Item{commentItem("b", "politics", 2)}, nil,
		[]reddit.Item{submissionItem("late", "", "politics", 3)})
	env.source.setHistory("carol", []reddit.Item{commentItem("c", "politics", 4)}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelling := &cancelOnCategory{fakeSource: env.source, user: "bob", cancel: cancel}

	c := NewCollection(cancelling, env.store, env.cps, 0, nil, env.log)
	res, err := c.Run(ctx, []string{"alice", "bob", "carol"}, env.cps.Create("politics", "run"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 2, res.Appended, "alice's row and bob's partial row are flushed")

	cp, err := env.cps.Load()
	require.NoError(t, err)
	assert.Equal(t, "alice", cp.LastProcessedUsername, "interrupted user is collected again next run")
	assert.NotContains(t, env.source.usersAsked, "carol")
}

// cancelOnCategory cancels the run when user's controversial comments are requested
type cancelOnCategory struct {
	*fakeSource
	user   string
	cancel context.CancelFunc
}

func (c *cancelOnCategory) AuthoredItems(ctx context.Context, username string, cat reddit.Category) iter.Seq2[reddit.Item, error] {
	if username == c.user && cat.Name == reddit.CategoryCommentsControversial.Name {
		c.cancel()
	}
	return c.fakeSource.AuthoredItems(ctx, username, cat)
}
