package reddit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// MaxPageSize is the most items Reddit returns per listing request
	MaxPageSize = 100

	// ListingCap is how deep Reddit lets any listing be paginated
	ListingCap = 1000

	// moreChildrenBatch is the most comment ids accepted by /api/morechildren
	moreChildrenBatch = 100
)

// View is one ranking of a subreddit's submissions
type View string

const (
	ViewTop           View = "top"
	ViewControversial View = "controversial"
	ViewNew           View = "new"
	ViewHot           View = "hot"
	ViewRising        View = "rising"
)

// Views lists the ranking views in discovery order
var Views = []View{ViewTop, ViewControversial, ViewNew, ViewHot, ViewRising}

// Category is one kind of content a user has authored
type Category struct {
	Name       string
	Path       string // comments or submitted
	Sort       string
	TimeFilter string
	Kind       ItemKind
}

var (
	CategoryCommentsNew           = Category{Name: "comments_new", Path: "comments", Sort: "new", Kind: KindComment}
	CategoryCommentsControversial = Category{Name: "comments_controversial", Path: "comments", Sort: "controversial", TimeFilter: "year", Kind: KindComment}
	CategorySubmissionsNew        = Category{Name: "submissions_new", Path: "submitted", Sort: "new", Kind: KindSubmission}
)

// Categories lists the authored content categories in collection order
var Categories = []Category{CategoryCommentsNew, CategoryCommentsControversial, CategorySubmissionsNew}

func pageParams(after string, limit int) url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(min(max(limit, 1), MaxPageSize)))
	params.Set("raw_json", "1")
	if after != "" {
		params.Set("after", after)
	}
	return params
}

// ListingPath returns the path and query for one page of a subreddit view
func ListingPath(subreddit string, view View, after string, limit int) (string, url.Values) {
	params := pageParams(after, limit)
	if view == ViewTop || view == ViewControversial {
		params.Set("t", "all")
	}
	return fmt.Sprintf("/r/%s/%s", url.PathEscape(subreddit), view), params
}

// CommentsPath returns the path and query for a submission's comment tree.
// A non-empty focus roots the tree at that comment id.
func CommentsPath(submissionID, focus string) (string, url.Values) {
	params := url.Values{}
	params.Set("raw_json", "1")
	params.Set("limit", "500")
	params.Set("sort", "confidence")
	if focus != "" {
		params.Set("comment", strings.TrimPrefix(focus, "t1_"))
	}
	return "/comments/" + url.PathEscape(submissionID), params
}

// MoreChildrenPath returns the path and query for expanding a batch of collapsed comments
func MoreChildrenPath(linkFullname string, children []string) (string, url.Values) {
	params := url.Values{}
	params.Set("api_type", "json")
	params.Set("raw_json", "1")
	params.Set("link_id", linkFullname)
	params.Set("children", strings.Join(children, ","))
	return "/api/morechildren", params
}

// UserListingPath returns the path and query for one page of a user's content
func UserListingPath(username string, cat Category, after string, limit int) (string, url.Values) {
	params := pageParams(after, limit)
	params.Set("sort", cat.Sort)
	if cat.TimeFilter != "" {
		params.Set("t", cat.TimeFilter)
	}
	return fmt.Sprintf("/user/%s/%s", url.PathEscape(username), cat.Path), params
}

// AboutPath returns the path of a subreddit's about document
func AboutPath(subreddit string) string {
	return fmt.Sprintf("/r/%s/about", url.PathEscape(subreddit))
}
