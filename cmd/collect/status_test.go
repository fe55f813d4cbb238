package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"redditcollector/pkg/ui"
)

func statusEnv(t *testing.T) (string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("REDDIT_COLLECTOR_DATA_DIR", "")

	subreddit, dataDir = "politics", filepath.Join(dir, "data")
	t.Cleanup(func() { subreddit, dataDir = "", "" })
	require.NoError(t, os.MkdirAll(dataDir, 0755))

	var buf bytes.Buffer
	prev := ui.Output
	ui.Output = &buf
	ui.SetColor(false)
	t.Cleanup(func() {
		ui.Output = prev
		ui.SetColor(true)
	})
	return dataDir, &buf
}

func TestStatusWithoutCheckpoint(t *testing.T) {
	data, buf := statusEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(data, "users.csv"), []byte("username,subreddit\nalice,politics\nbob,politics\n"), 0644))

	require.NoError(t, runStatus(statusCmd, nil))
	out := buf.String()
	assert.Contains(t, out, "Unique users: 2")
	assert.Contains(t, out, "Users remaining: 2")
	assert.Contains(t, out, "Checkpoint: (none)")
}

func TestStatusFlagsStaleCheckpoint(t *testing.T) {
	data, buf := statusEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(data, "users.csv"), []byte("username,subreddit\nalice,politics\nbob,politics\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(data, "checkpoint.json"), []byte(`{"last_processed_username":"alice","users_processed":1}`), 0644))

	require.NoError(t, runStatus(statusCmd, nil))
	out := buf.String()
	assert.Contains(t, out, "Next user index: 0")
	assert.Contains(t, out, "Checkpoint ignored")
	assert.FileExists(t, filepath.Join(data, "checkpoint.json"))
}
