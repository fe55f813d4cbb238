// Package reddit is an OAuth client for the parts of the Reddit API the
// collector reads: subreddit views, comment trees, user histories and
// subreddit metadata.
//
// Listings are exposed as iterators so that pages, and comment trees, are
// fetched only as far as the caller actually iterates:
//
//	client, err := reddit.NewClient(cfg, creds, log)
//	for cand, err := range client.CandidateAuthors(ctx, "politics", reddit.ViewTop) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(cand.Author)
//	}
package reddit
