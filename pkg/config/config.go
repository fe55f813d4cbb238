package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where the collection config lives unless overridden
const DefaultConfigPath = "./config/collection_config.json"

// Config holds all configuration options for the collector
type Config struct {
	// Reddit API and collection target
	Reddit RedditConfig `yaml:"reddit" json:"reddit"`

	// On-disk tabular state
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Per-run limits
	Collection CollectionConfig `yaml:"collection" json:"collection"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// HTTP retry configuration
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Member count cache
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CollectionTarget is the opaque per-subreddit collection config
type CollectionTarget struct {
	Subreddit string `yaml:"subreddit" json:"subreddit"`
}

// RedditConfig holds Reddit-specific configuration
type RedditConfig struct {
	CollectionConfigs  CollectionTarget `yaml:"collection_configs" json:"collection_configs"`
	UserAgent          string           `yaml:"user_agent" json:"user_agent"`
	BaseURL            string           `yaml:"base_url" json:"base_url"`
	AuthURL            string           `yaml:"auth_url" json:"auth_url"`
	RequestTimeout     time.Duration    `yaml:"request_timeout" json:"request_timeout"`
	CommentTreeTimeout time.Duration    `yaml:"comment_tree_timeout" json:"comment_tree_timeout"`
	MaxMoreRequests    int              `yaml:"max_more_requests" json:"max_more_requests"`
}

// StorageConfig holds the locations of the persisted tables
type StorageConfig struct {
	DataDirectory   string `yaml:"data_directory" json:"data_directory"`
	UsersFile       string `yaml:"users_file" json:"users_file"`
	PostsFile       string `yaml:"posts_file" json:"posts_file"`
	CheckpointFile  string `yaml:"checkpoint_file" json:"checkpoint_file"`
	AllowListFile   string `yaml:"allow_list_file" json:"allow_list_file"`
	BackupOnRewrite bool   `yaml:"backup_on_rewrite" json:"backup_on_rewrite"`
}

// CollectionConfig holds the per-run limits and page sizes
type CollectionConfig struct {
	UsersLimit   int `yaml:"users_limit" json:"users_limit"`
	PostsLimit   int `yaml:"posts_limit" json:"posts_limit"` // <= 0 means unbounded
	ViewPageSize int `yaml:"view_page_size" json:"view_page_size"`
	ItemPageSize int `yaml:"item_page_size" json:"item_page_size"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds HTTP retry configuration
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// CacheConfig sizes the member count cache
type CacheConfig struct {
	SizeBytes int           `yaml:"size_bytes" json:"size_bytes"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Reddit: RedditConfig{
			UserAgent:          "linux:redditcollector:v1.0 (incremental user collector)",
			BaseURL:            "https://oauth.reddit.com",
			AuthURL:            "https://www.reddit.com/api/v1/access_token",
			RequestTimeout:     30 * time.Second,
			CommentTreeTimeout: 2 * time.Minute,
			MaxMoreRequests:    0, // 0 means resolve every stub
		},
		Storage: StorageConfig{
			DataDirectory:   "./data",
			UsersFile:       "users.csv",
			PostsFile:       "posts.csv",
			CheckpointFile:  "checkpoint.json",
			AllowListFile:   "political_subreddits.csv",
			BackupOnRewrite: true,
		},
		Collection: CollectionConfig{
			UsersLimit:   1000,
			PostsLimit:   0,
			ViewPageSize: 1000,
			ItemPageSize: 1000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    time.Minute,
			Multiplier:  2.0,
		},
		Cache: CacheConfig{
			SizeBytes: 1 << 20,
			TTL:       time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Path joins a store file name with the data directory unless it is already absolute
func (s StorageConfig) Path(name string) string {
	if filepath.IsAbs(name) || s.DataDirectory == "" {
		return name
	}
	return filepath.Join(s.DataDirectory, name)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if sub := os.Getenv("REDDIT_COLLECTOR_SUBREDDIT"); sub != "" {
		c.Reddit.CollectionConfigs.Subreddit = sub
	}
	if ua := os.Getenv("REDDIT_COLLECTOR_USER_AGENT"); ua != "" {
		c.Reddit.UserAgent = ua
	}
	if dir := os.Getenv("REDDIT_COLLECTOR_DATA_DIR"); dir != "" {
		c.Storage.DataDirectory = dir
	}
	if rpm := os.Getenv("REDDIT_COLLECTOR_REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			return fmt.Errorf("invalid REDDIT_COLLECTOR_REQUESTS_PER_MINUTE: %w", err)
		}
		c.RateLimit.RequestsPerMinute = val
	}
	if level := os.Getenv("REDDIT_COLLECTOR_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if path := os.Getenv("REDDIT_COLLECTOR_METRICS_FILE"); path != "" {
		c.Metrics.TextfilePath = path
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// yaml.v3 accepts JSON documents as well
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		DefaultConfigPath,
		"./config/collection_config.yaml",
		"./config/collection_config.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "redditcollector", "config.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Reddit.CollectionConfigs.Subreddit) == "" {
		errs = append(errs, errors.New("reddit.collection_configs.subreddit is required"))
	}
	if c.Reddit.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.Reddit.BaseURL == "" || c.Reddit.AuthURL == "" {
		errs = append(errs, errors.New("reddit base and auth URLs are required"))
	}
	if c.Reddit.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Reddit.MaxMoreRequests < 0 {
		errs = append(errs, errors.New("max more requests cannot be negative"))
	}

	if c.Storage.UsersFile == "" || c.Storage.PostsFile == "" {
		errs = append(errs, errors.New("users and posts files are required"))
	}

	if c.Collection.UsersLimit <= 0 {
		errs = append(errs, errors.New("users limit must be positive"))
	}
	if c.Collection.ViewPageSize <= 0 || c.Collection.ItemPageSize <= 0 {
		errs = append(errs, errors.New("page sizes must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if sub, ok := flags["subreddit"].(string); ok && sub != "" {
		c.Reddit.CollectionConfigs.Subreddit = sub
	}
	if dir, ok := flags["data-dir"].(string); ok && dir != "" {
		c.Storage.DataDirectory = dir
	}
	if users, ok := flags["users"].(int); ok && users > 0 {
		c.Collection.UsersLimit = users
	}
	if posts, ok := flags["posts"].(int); ok {
		c.Collection.PostsLimit = posts
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if metrics, ok := flags["metrics-file"].(string); ok && metrics != "" {
		c.Metrics.TextfilePath = metrics
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".redditcollector.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
