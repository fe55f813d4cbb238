package collector

import (
	"context"
	"iter"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"redditcollector/pkg/checkpoint"
	"redditcollector/pkg/config"
	"redditcollector/pkg/logger"
	"redditcollector/pkg/reddit"
	"redditcollector/pkg/store"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeSource serves canned views, histories and member counts
type fakeSource struct {
	mu sync.Mutex

	views     map[reddit.View][]reddit.Candidate
	viewErrs  map[reddit.View]error
	items     map[string]map[string][]reddit.Item // username -> category name -> items
	itemErrs  map[string]error                    // raised after the user's comments_new items
	counts    map[string]int
	countErrs map[string]error

	viewCalls  []reddit.View
	yielded    int
	usersAsked []string
	countCalls map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		views:      map[reddit.View][]reddit.Candidate{},
		viewErrs:   map[reddit.View]error{},
		items:      map[string]map[string][]reddit.Item{},
		itemErrs:   map[string]error{},
		counts:     map[string]int{},
		countErrs:  map[string]error{},
		countCalls: map[string]int{},
	}
}

func (f *fakeSource) CandidateAuthors(ctx context.Context, subreddit string, view reddit.View) iter.Seq2[reddit.Candidate, error] {
	return func(yield func(reddit.Candidate, error) bool) {
		f.mu.Lock()
		f.viewCalls = append(f.viewCalls, view)
		cands := f.views[view]
		viewErr := f.viewErrs[view]
		f.mu.Unlock()

		for _, c := range cands {
			if err := ctx.Err(); err != nil {
				yield(reddit.Candidate{}, err)
				return
			}
			f.mu.Lock()
			f.yielded++
			f.mu.Unlock()
			if !yield(c, nil) {
				return
			}
		}
		if viewErr != nil {
			yield(reddit.Candidate{}, viewErr)
		}
	}
}

func (f *fakeSource) AuthoredItems(ctx context.Context, username string, cat reddit.Category) iter.Seq2[reddit.Item, error] {
	return func(yield func(reddit.Item, error) bool) {
		f.mu.Lock()
		if cat.Name == reddit.CategoryCommentsNew.Name {
			f.usersAsked = append(f.usersAsked, username)
		}
		items := f.items[username][cat.Name]
		itemErr := f.itemErrs[username]
		f.mu.Unlock()

		for _, it := range items {
			if err := ctx.Err(); err != nil {
				yield(reddit.Item{}, err)
				return
			}
			if !yield(it, nil) {
				return
			}
		}
		if itemErr != nil && cat.Name == reddit.CategoryCommentsNew.Name {
			yield(reddit.Item{}, itemErr)
		}
	}
}

func (f *fakeSource) MemberCount(ctx context.Context, subreddit string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls[subreddit]++
	if err := f.countErrs[subreddit]; err != nil {
		return 0, err
	}
	return f.counts[subreddit], nil
}

func (f *fakeSource) setHistory(username string, comments, controversial, submissions []reddit.Item) {
	f.items[username] = map[string][]reddit.Item{
		reddit.CategoryCommentsNew.Name:           comments,
		reddit.CategoryCommentsControversial.Name: controversial,
		reddit.CategorySubmissionsNew.Name:        submissions,
	}
}

func candidates(names ...string) []reddit.Candidate {
	out := make([]reddit.Candidate, len(names))
	for i, n := range names {
		out[i] = reddit.Candidate{Author: n, SubmissionID: "s1", FromComment: i > 0}
	}
	return out
}

func commentItem(body, subreddit string, minute int) reddit.Item {
	return reddit.Item{
		Kind:        reddit.KindComment,
		Body:        body,
		Subreddit:   subreddit,
		Score:       minute,
		NumComments: 4,
		Created:     baseTime.Add(time.Duration(minute) * time.Minute),
	}
}

func submissionItem(title, body, subreddit string, minute int) reddit.Item {
	it := commentItem(body, subreddit, minute)
	it.Kind = reddit.KindSubmission
	it.Title = title
	return it
}

type testEnv struct {
	cfg    *config.Config
	store  *store.Manager
	cps    *checkpoint.Manager
	log    *logger.TestLogger
	source *fakeSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Reddit.CollectionConfigs.Subreddit = "politics"
	cfg.Storage.DataDirectory = t.TempDir()

	log := logger.NewTestLogger()
	st, err := store.NewManager(cfg.Storage, log)
	require.NoError(t, err)
	cps, err := checkpoint.NewManager(cfg.Storage.Path(cfg.Storage.CheckpointFile), log)
	require.NoError(t, err)

	return &testEnv{cfg: cfg, store: st, cps: cps, log: log, source: newFakeSource()}
}

func (e *testEnv) allowList(t *testing.T, content string) {
	t.Helper()
	path := e.cfg.Storage.Path(e.cfg.Storage.AllowListFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func (e *testEnv) usernamesInStore(t *testing.T) []string {
	t.Helper()
	users, err := e.store.LoadUsers()
	require.NoError(t, err)
	return store.Usernames(users)
}

func (e *testEnv) posts(t *testing.T) []store.Post {
	t.Helper()
	posts, _, err := e.store.LoadAllPosts()
	require.NoError(t, err)
	return posts
}
