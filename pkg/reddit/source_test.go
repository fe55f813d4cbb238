package reddit

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"redditcollector/pkg/config"
)

func collectAuthors(t *testing.T, c *Client, sub string, view View) []string {
	t.Helper()
	var authors []string
	for cand, err := range c.CandidateAuthors(context.Background(), sub, view) {
		require.NoError(t, err)
		authors = append(authors, cand.Author)
	}
	return authors
}

func TestCandidateAuthorsOrderAndExclusion(t *testing.T) {
	f := newFakeReddit(t)
	f.handle("/r/politics/top", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("t"))
		writeJSON(w, listing("", link("l1", "alice"), link("l2", "AutoModerator")))
	})
	f.serveJSON("/comments/l1", []obj{
		listing("", link("l1", "alice")),
		listing("",
			comment("c1", "bob", comment("c2", "carol")),
			comment("c3", "[deleted]"),
			more("m1", "t3_l1", "c4"),
		),
	})
	f.handle("/api/morechildren", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "t3_l1", r.URL.Query().Get("link_id"))
		assert.Equal(t, "c4", r.URL.Query().Get("children"))
		writeJSON(w, obj{"json": obj{"errors": []interface{}{}, "data": obj{"things": []obj{comment("c4", "dave")}}}})
	})
	f.serveJSON("/comments/l2", []obj{
		listing("", link("l2", "AutoModerator")),
		listing("", comment("c5", "automoderator"), comment("c6", "erin")),
	})

	c := f.client(t, nil)
	authors := collectAuthors(t, c, "politics", ViewTop)

	assert.Equal(t, []string{"alice", "bob", "carol", "dave", "erin"}, authors)
}

func TestCandidateAuthorsIsLazy(t *testing.T) {
	f := newFakeReddit(t)
	f.serveJSON("/r/politics/new", listing("", link("l1", "alice"), link("l2", "bob")))
	f.serveJSON("/comments/l1", []obj{listing(""), listing("", comment("c1", "carol"))})
	f.serveJSON("/comments/l2", []obj{listing(""), listing("", comment("c2", "dave"))})

	c := f.client(t, nil)
	for cand, err := range c.CandidateAuthors(context.Background(), "politics", ViewNew) {
		require.NoError(t, err)
		assert.Equal(t, "alice", cand.Author)
		break
	}

	assert.Equal(t, 0, f.hitCount("/comments/l1"))
	assert.Equal(t, 0, f.hitCount("/comments/l2"))
}

func TestCandidateAuthorsPaginatesUpToCap(t *testing.T) {
	f := newFakeReddit(t)
	f.handle("/r/politics/hot", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("t"))
		if r.URL.Query().Get("after") == "" {
			writeJSON(w, listing("t3_l2", link("l1", "alice"), link("l2", "bob")))
			return
		}
		assert.Equal(t, "t3_l2", r.URL.Query().Get("after"))
		writeJSON(w, listing("t3_l4", link("l3", "carol"), link("l4", "dave")))
	})
	for _, id := range []string{"l1", "l2", "l3", "l4"} {
		f.serveJSON("/comments/"+id, []obj{listing(""), listing("")})
	}

	c := f.client(t, func(cfg *config.Config) { cfg.Collection.ViewPageSize = 3 })
	authors := collectAuthors(t, c, "politics", ViewHot)

	assert.Equal(t, []string{"alice", "bob", "carol"}, authors)
	assert.Equal(t, 2, f.hitCount("/r/politics/hot"))
	assert.Equal(t, 0, f.hitCount("/comments/l4"))
}

func TestCandidateAuthorsListingErrorEndsView(t *testing.T) {
	f := newFakeReddit(t)
	f.handle("/r/politics/rising", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	c := f.client(t, nil)
	var errs []error
	for _, err := range c.CandidateAuthors(context.Background(), "politics", ViewRising) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Error(t, errs[0])
}

func TestCommentTreeFailureSkipsOnlyThatSubmission(t *testing.T) {
	f := newFakeReddit(t)
	f.serveJSON("/r/politics/new", listing("", link("l1", "alice"), link("l2", "bob")))
	f.handle("/comments/l1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	f.serveJSON("/comments/l2", []obj{listing(""), listing("", comment("c1", "carol"))})

	c := f.client(t, nil)
	assert.Equal(t, []string{"alice", "bob", "carol"}, collectAuthors(t, c, "politics", ViewNew))
}

func TestMaxMoreRequestsBoundsExpansion(t *testing.T) {
	f := newFakeReddit(t)
	f.serveJSON("/r/politics/new", listing("", link("l1", "alice")))
	f.serveJSON("/comments/l1", []obj{
		listing(""),
		listing("", more("m1", "t3_l1", "c1"), more("m2", "t3_l1", "c2")),
	})
	f.handle("/api/morechildren", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("children")
		writeJSON(w, obj{"json": obj{"data": obj{"things": []obj{comment(id, "user_"+id)}}}})
	})

	c := f.client(t, func(cfg *config.Config) { cfg.Reddit.MaxMoreRequests = 1 })
	authors := collectAuthors(t, c, "politics", ViewNew)

	assert.Equal(t, []string{"alice", "user_c1"}, authors)
	assert.Equal(t, 1, f.hitCount("/api/morechildren"))
}

func TestMoreChildrenBatches(t *testing.T) {
	ids := make([]string, 150)
	for i := range ids {
		ids[i] = "x" + strings.Repeat("a", i%3) + string(rune('a'+i%26))
	}

	f := newFakeReddit(t)
	f.serveJSON("/r/politics/new", listing("", link("l1", "alice")))
	f.serveJSON("/comments/l1", []obj{listing(""), listing("", more("m1", "t3_l1", ids...))})
	var batchSizes []int
	f.handle("/api/morechildren", func(w http.ResponseWriter, r *http.Request) {
		batchSizes = append(batchSizes, len(strings.Split(r.URL.Query().Get("children"), ",")))
		writeJSON(w, obj{"json": obj{"data": obj{"things": []obj{}}}})
	})

	c := f.client(t, nil)
	collectAuthors(t, c, "politics", ViewNew)

	assert.Equal(t, []int{100, 50}, batchSizes)
}

func TestContinueThisThreadStub(t *testing.T) {
	f := newFakeReddit(t)
	f.serveJSON("/r/politics/new", listing("", link("l1", "alice")))
	f.handle("/comments/l1", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("comment") == "deep" {
			writeJSON(w, []obj{listing(""), listing("", comment("deep", "bob", comment("deeper", "carol")))})
			return
		}
		writeJSON(w, []obj{listing(""), listing("", comment("deep", "bob", more("_", "t1_deep")))})
	})

	c := f.client(t, nil)
	assert.Equal(t, []string{"alice", "bob", "carol"}, collectAuthors(t, c, "politics", ViewNew))
	assert.Equal(t, 2, f.hitCount("/comments/l1"))
}

func TestCommentTreeTimeoutUsesPartialTree(t *testing.T) {
	f := newFakeReddit(t)
	f.serveJSON("/r/politics/new", listing("", link("l1", "alice")))
	f.serveJSON("/comments/l1", []obj{
		listing(""),
		listing("", comment("c1", "bob"), more("m1", "t3_l1", "c2")),
	})
	f.handle("/api/morechildren", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeJSON(w, obj{"json": obj{"data": obj{"things": []obj{comment("c2", "late")}}}})
	})

	c := f.client(t, func(cfg *config.Config) { cfg.Reddit.CommentTreeTimeout = 100 * time.Millisecond })
	assert.Equal(t, []string{"alice", "bob"}, collectAuthors(t, c, "politics", ViewNew))
}

func TestAuthoredItems(t *testing.T) {
	f := newFakeReddit(t)
	f.handle("/user/alice/comments", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "controversial", q.Get("sort"))
		assert.Equal(t, "year", q.Get("t"))
		writeJSON(w, listing("", comment("c1", "alice"), comment("c2", "alice")))
	})
	f.handle("/user/alice/submitted", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "new", r.URL.Query().Get("sort"))
		assert.Empty(t, r.URL.Query().Get("t"))
		writeJSON(w, listing("", link("l1", "alice")))
	})

	c := f.client(t, nil)

	var comments []Item
	for item, err := range c.AuthoredItems(context.Background(), "alice", CategoryCommentsControversial) {
		require.NoError(t, err)
		comments = append(comments, item)
	}
	require.Len(t, comments, 2)
	assert.Equal(t, KindComment, comments[0].Kind)
	assert.Equal(t, "", comments[0].Title)
	assert.Equal(t, "text c1", comments[0].Body)
	assert.Equal(t, 7, comments[0].NumComments)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 15, 0, 0, time.UTC), comments[0].Created)

	var subs []Item
	for item, err := range c.AuthoredItems(context.Background(), "alice", CategorySubmissionsNew) {
		require.NoError(t, err)
		subs = append(subs, item)
	}
	require.Len(t, subs, 1)
	assert.Equal(t, KindSubmission, subs[0].Kind)
	assert.Equal(t, "Title l1", subs[0].Title)
	assert.Equal(t, "Body\nof l1", subs[0].Body)
	assert.Equal(t, 3, subs[0].NumComments)
}

func TestIsExcludedAuthor(t *testing.T) {
	for _, name := range []string{"", "  ", "[deleted]", "AutoModerator", "automoderator", "AUTOMODERATOR"} {
		assert.True(t, IsExcludedAuthor(name), name)
	}
	for _, name := range []string{"alice", "automod", "Auto_Moderator"} {
		assert.False(t, IsExcludedAuthor(name), name)
	}
}

func TestEndpointPaths(t *testing.T) {
	path, params := ListingPath("politics", ViewControversial, "t3_x", 5000)
	assert.Equal(t, "/r/politics/controversial", path)
	assert.Equal(t, "100", params.Get("limit"))
	assert.Equal(t, "all", params.Get("t"))
	assert.Equal(t, "t3_x", params.Get("after"))

	path, params = UserListingPath("bob", CategoryCommentsNew, "", 10)
	assert.Equal(t, "/user/bob/comments", path)
	assert.Equal(t, "10", params.Get("limit"))
	assert.Equal(t, "new", params.Get("sort"))

	assert.Equal(t, "/r/politics/about", AboutPath("politics"))
	assert.Equal(t, []View{ViewTop, ViewControversial, ViewNew, ViewHot, ViewRising}, Views)
	assert.Equal(t, []ItemKind{KindComment, KindComment, KindSubmission},
		[]ItemKind{Categories[0].Kind, Categories[1].Kind, Categories[2].Kind})
}
