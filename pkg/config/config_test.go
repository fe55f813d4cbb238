package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.RateLimit.RequestsPerMinute != 60 {
		t.Errorf("Expected default requests per minute to be 60, got %d", config.RateLimit.RequestsPerMinute)
	}

	if config.Collection.UsersLimit != 1000 {
		t.Errorf("Expected default users limit to be 1000, got %d", config.Collection.UsersLimit)
	}

	if config.Collection.PostsLimit != 0 {
		t.Errorf("Expected default posts limit to be unbounded, got %d", config.Collection.PostsLimit)
	}

	if config.Storage.DataDirectory != "./data" {
		t.Errorf("Expected default data directory to be ./data, got %s", config.Storage.DataDirectory)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REDDIT_COLLECTOR_SUBREDDIT", "politics")
	t.Setenv("REDDIT_COLLECTOR_REQUESTS_PER_MINUTE", "30")
	t.Setenv("REDDIT_COLLECTOR_DATA_DIR", "/tmp/reddit-data")
	t.Setenv("REDDIT_COLLECTOR_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "politics", config.Reddit.CollectionConfigs.Subreddit)
	assert.Equal(t, 30, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, "/tmp/reddit-data", config.Storage.DataDirectory)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvRejectsBadNumber(t *testing.T) {
	t.Setenv("REDDIT_COLLECTOR_REQUESTS_PER_MINUTE", "fast")

	config := DefaultConfig()
	assert.Error(t, config.LoadFromEnv())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := DefaultConfig()
		c.Reddit.CollectionConfigs.Subreddit = "politics"
		return c
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{
			name:      "valid config",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "missing subreddit",
			mutate:    func(c *Config) { c.Reddit.CollectionConfigs.Subreddit = " " },
			wantError: true,
		},
		{
			name:      "non-positive users limit",
			mutate:    func(c *Config) { c.Collection.UsersLimit = 0 },
			wantError: true,
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "invalid" },
			wantError: true,
		},
		{
			name:      "zero request timeout",
			mutate:    func(c *Config) { c.Reddit.RequestTimeout = 0 },
			wantError: true,
		},
		{
			name:      "unbounded posts limit is allowed",
			mutate:    func(c *Config) { c.Collection.PostsLimit = -1 },
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	flags := map[string]interface{}{
		"subreddit": "neutralpolitics",
		"data-dir":  "/flag/data",
		"users":     50,
		"posts":     200,
		"log-level": "error",
	}

	config.MergeCommandLineFlags(flags)

	assert.Equal(t, "neutralpolitics", config.Reddit.CollectionConfigs.Subreddit)
	assert.Equal(t, "/flag/data", config.Storage.DataDirectory)
	assert.Equal(t, 50, config.Collection.UsersLimit)
	assert.Equal(t, 200, config.Collection.PostsLimit)
	assert.Equal(t, "error", config.Logging.Level)
}

func TestLoadFromJSONFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "collection_config.json")

	content := `{
  "reddit": {
    "collection_configs": {"subreddit": "PoliticalDiscussion"},
    "comment_tree_timeout": "45s"
  }
}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(configPath))

	assert.Equal(t, "PoliticalDiscussion", config.Reddit.CollectionConfigs.Subreddit)
	assert.Equal(t, 45*time.Second, config.Reddit.CommentTreeTimeout)
	// untouched sections keep their defaults
	assert.Equal(t, "users.csv", config.Storage.UsersFile)
}

func TestLoadFromFileMalformed(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"reddit": [`), 0644))

	config := DefaultConfig()
	assert.Error(t, config.LoadFromFile(configPath))
}

func TestSaveAndLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	config := DefaultConfig()
	config.Reddit.CollectionConfigs.Subreddit = "askpolitics"
	config.Collection.UsersLimit = 25

	require.NoError(t, config.Save(configPath))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))

	assert.Equal(t, "askpolitics", loaded.Reddit.CollectionConfigs.Subreddit)
	assert.Equal(t, 25, loaded.Collection.UsersLimit)
	assert.Equal(t, config.Reddit.RequestTimeout, loaded.Reddit.RequestTimeout)
}

func TestStoragePath(t *testing.T) {
	s := StorageConfig{DataDirectory: "data"}
	assert.Equal(t, filepath.Join("data", "users.csv"), s.Path("users.csv"))
	assert.Equal(t, "/abs/posts.csv", s.Path("/abs/posts.csv"))

	s.DataDirectory = ""
	assert.Equal(t, "users.csv", s.Path("users.csv"))
}

func TestLoadRequiresSubreddit(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REDDIT_COLLECTOR_SUBREDDIT", "")

	_, err := Load("", nil)
	assert.Error(t, err)

	cfg, err := Load("", map[string]interface{}{"subreddit": "politics"})
	require.NoError(t, err)
	assert.Equal(t, "politics", cfg.Reddit.CollectionConfigs.Subreddit)
}
