package store

import (
	"fmt"
	"os"
)

// LoadAllowList reads the subreddit column of a CSV file into a set of
// normalized subreddit names. Unlike the tables, a missing file is an error.
func LoadAllowList(path string) (map[string]struct{}, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("allow-list unavailable: %w", err)
	}

	allowed := make(map[string]struct{})
	err := table(path, []string{"subreddit"}, func(_ int, col func(string) string) error {
		if name := normalizeName(col("subreddit")); name != "" {
			allowed[name] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return allowed, nil
}
