// Package checkpoint records the resume position of post collection.
//
// After every user the collector writes checkpoint.json with the username it
// just finished. On the next run that name is looked up in the user store and
// collection resumes at the following index. When no checkpoint exists the
// caller falls back to the last username in posts.csv.
//
// Checkpoint files are written to a temporary sibling, synced and renamed
// into place, so a crash leaves either the old or the new record.
package checkpoint
