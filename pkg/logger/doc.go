// Package logger provides the structured logging interface used by the collector.
//
// It wraps zerolog behind a small Logger interface so that engines can be
// handed a TestLogger or a no-op logger in tests. Console output is colored;
// when a log file is configured events are also written as JSON lines.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("subreddit", "politics")
//	log.InfoWithFields("Run finished", map[string]interface{}{
//	    "users": 120,
//	    "posts": 3400,
//	})
//
// The helpers LogUserAdded, LogUserPosts and LogUserSkipped produce the
// per-user log lines of discovery and collection.
package logger
