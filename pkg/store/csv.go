package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	userHeader = []string{"username", "subreddit"}
	postHeader = []string{
		"username", "title", "selftext", "subreddit", "score",
		"num_comments", "posted_time", "submission_type", "fulltext", "member_count",
	}
	// the oldest posts files carry only these columns
	basePostColumns = postHeader[:8]
)

func encodeUsers(rows []User, header bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if header {
		if err := w.Write(userHeader); err != nil {
			return nil, err
		}
	}
	for _, u := range rows {
		if err := w.Write([]string{u.Username, u.Subreddit}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func postRecord(p Post) []string {
	member := ""
	if p.MemberCount != nil {
		member = strconv.Itoa(*p.MemberCount)
	}
	return []string{
		p.Username,
		p.Title,
		p.Selftext,
		p.Subreddit,
		strconv.Itoa(p.Score),
		strconv.Itoa(p.NumComments),
		formatPostedTime(p.PostedTime),
		strconv.Itoa(p.SubmissionType),
		p.Fulltext,
		member,
	}
}

func writePosts(w io.Writer, rows []Post, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(postHeader); err != nil {
			return err
		}
	}
	for _, p := range rows {
		if err := cw.Write(postRecord(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodePosts(rows []Post, header bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := writePosts(&buf, rows, header); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// table reads a CSV file with a header row and hands each record to fn
// through a column lookup. A missing file is treated as empty.
func table(path string, required []string, fn func(line int, col func(string) string) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return fmt.Errorf("%s: missing column %q", path, name)
		}
	}

	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		col := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}
		if err := fn(line, col); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
}

// parseNumber accepts integers and the float rendering ("12.0") that some
// tools write for integer columns containing blanks.
func parseNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return int(f), nil
}

func decodePost(col func(string) string) (Post, error) {
	p := Post{
		Username:  col("username"),
		Title:     col("title"),
		Selftext:  col("selftext"),
		Subreddit: col("subreddit"),
		Fulltext:  col("fulltext"),
	}

	var err error
	if p.Score, err = parseNumber(col("score")); err != nil {
		return p, fmt.Errorf("score: %w", err)
	}
	if p.NumComments, err = parseNumber(col("num_comments")); err != nil {
		return p, fmt.Errorf("num_comments: %w", err)
	}
	if p.SubmissionType, err = parseNumber(col("submission_type")); err != nil {
		return p, fmt.Errorf("submission_type: %w", err)
	}
	if raw := strings.TrimSpace(col("posted_time")); raw != "" {
		if p.PostedTime, err = time.ParseInLocation(PostedTimeLayout, raw, time.UTC); err != nil {
			return p, fmt.Errorf("posted_time: %w", err)
		}
	}
	if raw := strings.TrimSpace(col("member_count")); raw != "" {
		n, err := parseNumber(raw)
		if err != nil {
			return p, fmt.Errorf("member_count: %w", err)
		}
		p.MemberCount = &n
	}
	return p, nil
}
