package reddit

import (
	"context"
	"errors"
	"iter"
	"net/url"

	errs "redditcollector/pkg/errors"
)

// paginate walks a listing page by page, yielding at most limit children.
// Pages are fetched only as iteration reaches them.
func (c *Client) paginate(ctx context.Context, limit int, page func(after string, n int) (string, url.Values)) iter.Seq2[Thing, error] {
	return func(yield func(Thing, error) bool) {
		after := ""
		for fetched := 0; fetched < limit; {
			path, params := page(after, limit-fetched)

			var listing Listing
			if err := c.getJSON(ctx, path, params, &listing); err != nil {
				yield(Thing{}, err)
				return
			}

			for _, child := range listing.Data.Children {
				if fetched >= limit {
					return
				}
				fetched++
				if !yield(child, nil) {
					return
				}
			}

			if listing.Data.After == "" || len(listing.Data.Children) == 0 {
				return
			}
			after = listing.Data.After
		}
	}
}

// CandidateAuthors walks the submissions of one view of a subreddit. For each
// submission it yields the submission author, then the authors of its fully
// expanded comment tree in breadth-first order. Excluded authors are never
// yielded. A submission's comment tree is fetched only when iteration reaches it.
func (c *Client) CandidateAuthors(ctx context.Context, subreddit string, view View) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		listing := c.paginate(ctx, c.viewCap, func(after string, n int) (string, url.Values) {
			return ListingPath(subreddit, view, after, n)
		})

		for th, err := range listing {
			if err != nil {
				yield(Candidate{}, err)
				return
			}
			if th.Kind != KindTagLink {
				continue
			}
			link, err := decodeThing[Link](th)
			if err != nil {
				yield(Candidate{}, err)
				return
			}

			if !IsExcludedAuthor(link.Author) {
				if !yield(Candidate{Author: link.Author, SubmissionID: link.ID}, nil) {
					return
				}
			}
			if !c.walkComments(ctx, link, yield) {
				return
			}
		}
	}
}

// walkComments yields comment authors of one submission breadth-first,
// resolving "more" stubs as the walk reaches them. It returns false when the
// consumer stopped or ctx was cancelled.
func (c *Client) walkComments(ctx context.Context, link *Link, yield func(Candidate, error) bool) bool {
	treeCtx := ctx
	if c.treeTimeout > 0 {
		var cancel context.CancelFunc
		treeCtx, cancel = context.WithTimeout(ctx, c.treeTimeout)
		defer cancel()
	}
	log := c.logger.WithField("submission", link.ID)

	queue, err := c.fetchTree(treeCtx, link.ID, "")
	if err != nil {
		if ctx.Err() != nil {
			yield(Candidate{}, ctx.Err())
			return false
		}
		log.WithError(err).Warn("Couldn't load comment tree")
		return true
	}

	requests := 0
	expanding := true
	for len(queue) > 0 {
		th := queue[0]
		queue = queue[1:]

		switch th.Kind {
		case KindTagComment:
			cm, err := decodeThing[Comment](th)
			if err != nil {
				log.WithError(err).Debug("skipping undecodable comment")
				continue
			}
			if !IsExcludedAuthor(cm.Author) {
				if !yield(Candidate{Author: cm.Author, SubmissionID: link.ID, FromComment: true}, nil) {
					return false
				}
			}
			queue = append(queue, cm.ReplyThings()...)

		case KindTagMore:
			if !expanding {
				continue
			}
			if err := ctx.Err(); err != nil {
				yield(Candidate{}, err)
				return false
			}
			if treeCtx.Err() != nil {
				log.WithField("timeout", c.treeTimeout).Warn("Comment tree expansion timed out, using partial tree")
				expanding = false
				continue
			}
			if c.maxMore > 0 && requests >= c.maxMore {
				log.WithField("max_more_requests", c.maxMore).Debug("Comment tree expansion budget spent")
				expanding = false
				continue
			}

			more, err := decodeThing[More](th)
			if err != nil {
				continue
			}
			things, used, err := c.expandMore(treeCtx, link, more)
			requests += used
			if err != nil {
				if ctx.Err() != nil {
					yield(Candidate{}, ctx.Err())
					return false
				}
				if errors.Is(err, context.DeadlineExceeded) || treeCtx.Err() != nil {
					log.WithField("timeout", c.treeTimeout).Warn("Comment tree expansion timed out, using partial tree")
					expanding = false
				} else {
					log.WithError(err).Warn("Couldn't expand collapsed comments")
				}
			}
			queue = append(queue, things...)
		}
	}
	return true
}

// fetchTree loads the top-level comments of a submission, or the subtree at focus
func (c *Client) fetchTree(ctx context.Context, submissionID, focus string) ([]Thing, error) {
	path, params := CommentsPath(submissionID, focus)
	var pages []Listing
	if err := c.getJSON(ctx, path, params, &pages); err != nil {
		return nil, err
	}
	if len(pages) < 2 {
		return nil, errs.New(errs.ErrorTypeParsing, 0, "comment response for %s has %d listings", submissionID, len(pages))
	}
	return pages[1].Data.Children, nil
}

// expandMore resolves one stub. Stubs with ids are expanded through
// /api/morechildren in batches; an empty "continue this thread" stub reloads
// the tree rooted at its parent comment. It returns the things found and the
// number of requests made.
func (c *Client) expandMore(ctx context.Context, link *Link, more *More) ([]Thing, int, error) {
	if len(more.Children) == 0 {
		if more.ParentID == "" || more.ParentID == link.Name {
			return nil, 0, nil
		}
		focused, err := c.fetchTree(ctx, link.ID, more.ParentID)
		if err != nil {
			return nil, 1, err
		}
		var replies []Thing
		for _, th := range focused {
			if th.Kind != KindTagComment {
				continue
			}
			if parent, err := decodeThing[Comment](th); err == nil {
				replies = append(replies, parent.ReplyThings()...)
			}
		}
		return replies, 1, nil
	}

	linkName := link.Name
	if linkName == "" {
		linkName = "t3_" + link.ID
	}

	var found []Thing
	requests := 0
	for start := 0; start < len(more.Children); start += moreChildrenBatch {
		end := min(start+moreChildrenBatch, len(more.Children))
		path, params := MoreChildrenPath(linkName, more.Children[start:end])

		var resp moreChildrenResponse
		requests++
		if err := c.getJSON(ctx, path, params, &resp); err != nil {
			return found, requests, err
		}
		found = append(found, resp.JSON.Data.Things...)
	}
	return found, requests, nil
}

// AuthoredItems walks one category of a user's history, newest pages first
func (c *Client) AuthoredItems(ctx context.Context, username string, cat Category) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		listing := c.paginate(ctx, c.itemCap, func(after string, n int) (string, url.Values) {
			return UserListingPath(username, cat, after, n)
		})

		for th, err := range listing {
			if err != nil {
				yield(Item{}, err)
				return
			}

			var item Item
			switch th.Kind {
			case KindTagComment:
				cm, err := decodeThing[Comment](th)
				if err != nil {
					yield(Item{}, err)
					return
				}
				item = cm.Item()
			case KindTagLink:
				link, err := decodeThing[Link](th)
				if err != nil {
					yield(Item{}, err)
					return
				}
				item = link.Item()
			default:
				continue
			}

			if !yield(item, nil) {
				return
			}
		}
	}
}

// MemberCount returns a subreddit's subscriber count
func (c *Client) MemberCount(ctx context.Context, subreddit string) (int, error) {
	var about aboutResponse
	if err := c.getJSON(ctx, AboutPath(subreddit), nil, &about); err != nil {
		return 0, err
	}
	if about.Kind != "" && about.Kind != "t5" {
		return 0, errs.New(errs.ErrorTypeNotFound, 0, "r/%s is not a subreddit", subreddit)
	}
	return about.Data.Subscribers, nil
}
