package reddit

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Reddit thing kinds
const (
	KindTagComment = "t1"
	KindTagLink    = "t3"
	KindTagMore    = "more"
)

// Thing is the kind/data envelope wrapping every Reddit object
type Thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Listing is a page of things
type Listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []Thing `json:"children"`
	} `json:"data"`
}

// Link is a submission
type Link struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Author      string  `json:"author"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// Comment is a comment. Replies is either "" or a Listing.
type Comment struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Author      string          `json:"author"`
	Body        string          `json:"body"`
	Subreddit   string          `json:"subreddit"`
	Score       int             `json:"score"`
	NumComments int             `json:"num_comments"`
	CreatedUTC  float64         `json:"created_utc"`
	LinkID      string          `json:"link_id"`
	ParentID    string          `json:"parent_id"`
	Replies     json.RawMessage `json:"replies"`
}

// ReplyThings decodes the nested replies listing, if any
func (c *Comment) ReplyThings() []Thing {
	if len(c.Replies) == 0 || c.Replies[0] != '{' {
		return nil
	}
	var l Listing
	if err := json.Unmarshal(c.Replies, &l); err != nil {
		return nil
	}
	return l.Data.Children
}

// More is a stub standing in for collapsed comments
type More struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ParentID string   `json:"parent_id"`
	Count    int      `json:"count"`
	Children []string `json:"children"`
}

type moreChildrenResponse struct {
	JSON struct {
		Errors [][]interface{} `json:"errors"`
		Data   struct {
			Things []Thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

type aboutResponse struct {
	Kind string `json:"kind"`
	Data struct {
		DisplayName string `json:"display_name"`
		Subscribers int    `json:"subscribers"`
	} `json:"data"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
}

// ItemKind distinguishes comments from submissions
type ItemKind int

const (
	KindSubmission ItemKind = 0
	KindComment    ItemKind = 1
)

func (k ItemKind) String() string {
	if k == KindComment {
		return "comment"
	}
	return "submission"
}

// Candidate is an author encountered while walking a subreddit view
type Candidate struct {
	Author       string
	SubmissionID string
	FromComment  bool
}

// Item is one authored comment or submission, flattened
type Item struct {
	Kind        ItemKind
	Author      string
	Title       string
	Body        string
	Subreddit   string
	Score       int
	NumComments int
	Created     time.Time
}

func fromUnix(ts float64) time.Time {
	sec := int64(ts)
	return time.Unix(sec, int64((ts-float64(sec))*1e9)).UTC()
}

func (l *Link) Item() Item {
	return Item{
		Kind:        KindSubmission,
		Author:      l.Author,
		Title:       l.Title,
		Body:        l.Selftext,
		Subreddit:   l.Subreddit,
		Score:       l.Score,
		NumComments: l.NumComments,
		Created:     fromUnix(l.CreatedUTC),
	}
}

func (c *Comment) Item() Item {
	return Item{
		Kind:        KindComment,
		Author:      c.Author,
		Body:        c.Body,
		Subreddit:   c.Subreddit,
		Score:       c.Score,
		NumComments: c.NumComments,
		Created:     fromUnix(c.CreatedUTC),
	}
}

// IsExcludedAuthor reports whether an author name must never be recorded:
// unresolvable names and the AutoModerator bot in any letter case.
func IsExcludedAuthor(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || name == "[deleted]" || strings.EqualFold(name, "automoderator")
}
