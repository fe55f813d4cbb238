package store

import (
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// PostedTimeLayout is how posted_time is rendered in posts.csv (always UTC)
const PostedTimeLayout = "2006-01-02 15:04:05"

// Submission types stored in the submission_type column
const (
	TypeSubmission = 0
	TypeComment    = 1
)

// User is one row of users.csv
type User struct {
	Username  string
	Subreddit string
}

// Post is one row of posts.csv
type Post struct {
	Username       string
	Title          string
	Selftext       string
	Subreddit      string
	Score          int
	NumComments    int
	PostedTime     time.Time
	SubmissionType int
	Fulltext       string
	MemberCount    *int // nil renders as an empty cell
}

var newlines = strings.NewReplacer("\r\n", "", "\n", "", "\r", "")

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// StripNewlines removes every line break from s
func StripNewlines(s string) string {
	return newlines.Replace(s)
}

// Normalize returns u with username and subreddit lowercased and trimmed
func (u User) Normalize() User {
	u.Username = normalizeName(u.Username)
	u.Subreddit = normalizeName(u.Subreddit)
	return u
}

// Normalize applies the write-time rules to a post: lowercase and trim the
// username and subreddit, strip newlines from the text columns, recompute
// fulltext and render the timestamp in UTC at second precision.
func (p Post) Normalize() Post {
	p.Username = normalizeName(p.Username)
	p.Subreddit = normalizeName(p.Subreddit)
	p.Title = StripNewlines(p.Title)
	p.Selftext = StripNewlines(p.Selftext)
	p.Fulltext = p.Title + p.Selftext
	p.PostedTime = p.PostedTime.UTC().Truncate(time.Second)
	return p
}

// Fingerprint hashes the eight base columns of the normalized row.
// Derived columns (fulltext, member_count) do not take part.
func (p Post) Fingerprint() uint64 {
	n := p.Normalize()
	d := xxhash.New()
	for _, field := range []string{
		n.Username,
		n.Title,
		n.Selftext,
		n.Subreddit,
		strconv.Itoa(n.Score),
		strconv.Itoa(n.NumComments),
		formatPostedTime(n.PostedTime),
		strconv.Itoa(n.SubmissionType),
	} {
		// length prefix keeps field boundaries unambiguous
		_, _ = d.WriteString(strconv.Itoa(len(field)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(field)
	}
	return d.Sum64()
}

// formatPostedTime renders t in UTC; an unknown time is blank
func formatPostedTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(PostedTimeLayout)
}

// Usernames returns the distinct usernames of users in first-occurrence order
func Usernames(users []User) []string {
	seen := make(map[string]struct{}, len(users))
	out := make([]string, 0, len(users))
	for _, u := range users {
		name := normalizeName(u.Username)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// ResumeOffset is the index in users right after the first row whose username
// matches last, or 0 when last is empty or absent.
func ResumeOffset(users []string, last string) int {
	last = normalizeName(last)
	if last == "" {
		return 0
	}
	for i, u := range users {
		if normalizeName(u) == last {
			return i + 1
		}
	}
	return 0
}
