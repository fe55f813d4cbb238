package collector

import (
	"context"
	"encoding/binary"
	"strings"

	"github.com/coocood/freecache"
	"redditcollector/pkg/config"
	"redditcollector/pkg/logger"
	"redditcollector/pkg/metrics"
	"redditcollector/pkg/store"
)

// MemberCounts memoizes subreddit member counts so each subreddit is asked
// for at most once per TTL.
type MemberCounts struct {
	source  Source
	cache   *freecache.Cache
	ttl     int // seconds, 0 never expires
	metrics metrics.Recorder
	logger  logger.Logger
	failed  map[string]error
}

// NewMemberCounts creates a memo sized by the cache section of the config
func NewMemberCounts(source Source, cfg config.CacheConfig, rec metrics.Recorder, log logger.Logger) *MemberCounts {
	if rec == nil {
		rec = metrics.Nop()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &MemberCounts{
		source:  source,
		cache:   freecache.NewCache(cfg.SizeBytes),
		ttl:     int(cfg.TTL.Seconds()),
		metrics: rec,
		logger:  log,
		failed:  make(map[string]error),
	}
}

// Get returns the member count of subreddit. A lookup that failed earlier in
// the run fails again without another request.
func (m *MemberCounts) Get(ctx context.Context, subreddit string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(subreddit))
	if err, ok := m.failed[key]; ok {
		return 0, err
	}

	if raw, err := m.cache.Get([]byte(key)); err == nil && len(raw) == 8 {
		m.metrics.IncCacheHits()
		return int(binary.BigEndian.Uint64(raw)), nil
	}
	m.metrics.IncCacheMisses()

	n, err := m.source.MemberCount(ctx, key)
	if err != nil {
		if ctx.Err() == nil {
			m.failed[key] = err
		}
		return 0, err
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	if err := m.cache.Set([]byte(key), buf[:], m.ttl); err != nil {
		m.logger.WithError(err).WithField("subreddit", key).Debug("Member count not cached")
	}
	return n, nil
}

// Enrich attaches member counts to the posts whose subreddit is allow-listed
// and clears it on every other post. It returns how many posts got a count.
// A subreddit whose count cannot be fetched is logged once and left empty.
func Enrich(ctx context.Context, posts []store.Post, allowed map[string]struct{}, counts *MemberCounts, log logger.Logger) (int, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	enriched := 0
	warned := make(map[string]bool)

	for i := range posts {
		sub := strings.ToLower(strings.TrimSpace(posts[i].Subreddit))
		if _, ok := allowed[sub]; !ok {
			posts[i].MemberCount = nil
			continue
		}

		n, err := counts.Get(ctx, sub)
		if err != nil {
			if ctx.Err() != nil {
				return enriched, ctx.Err()
			}
			if !warned[sub] {
				log.WithError(err).WithField("subreddit", sub).Warn("Couldn't get member count")
				warned[sub] = true
			}
			posts[i].MemberCount = nil
			continue
		}

		count := n
		posts[i].MemberCount = &count
		enriched++
	}

	return enriched, nil
}
