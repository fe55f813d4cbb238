// Package store persists discovered users and collected posts as CSV tables.
//
// users.csv holds [username, subreddit]; posts.csv holds the eight base
// columns [username, title, selftext, subreddit, score, num_comments,
// posted_time, submission_type] followed by the derived fulltext and
// member_count columns. Files written by older runs with only the base
// columns are read without complaint.
//
// Appends encode a whole batch into one buffer and write it with a single
// write followed by fsync, so an interrupted run never leaves half a row.
// Posts are deduplicated by an xxhash fingerprint of their normalized base
// columns before they are appended; LoadAllPosts remains the authoritative
// dedup pass and rewrites the table atomically when it removes anything.
// The first rewrite made by a Manager backs the old table up with zstd.
//
//	m, err := store.NewManager(cfg.Storage, log)
//	n, err := m.AppendPosts(rows)
//	users, err := m.LoadUsers()
//	offset := store.ResumeOffset(store.Usernames(users), last)
package store
