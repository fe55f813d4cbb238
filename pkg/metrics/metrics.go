package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives the counters of one collection run
type Recorder interface {
	ObserveRequest(route string, status int, duration time.Duration)
	IncRetries(route string)
	IncUsersDiscovered(view string)
	IncUsersProcessed()
	IncUsersSkipped()
	AddPostsAppended(n int)
	AddDuplicatesRemoved(n int)
	IncCacheHits()
	IncCacheMisses()
	SetResumeOffset(offset int)
}

// Registry is a Recorder backed by its own Prometheus registry, so a run's
// numbers can be written out as a node-exporter textfile.
type Registry struct {
	reg *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	usersDiscovered *prometheus.CounterVec
	usersProcessed  prometheus.Counter
	usersSkipped    prometheus.Counter
	postsAppended   prometheus.Counter
	duplicates      prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	resumeOffset    prometheus.Gauge
	lastRun         prometheus.Gauge
}

// NewRegistry creates a Registry with every collector metric registered
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redditcollector_requests_total",
			Help: "Total number of Reddit API requests",
		}, []string{"route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "redditcollector_request_duration_seconds",
			Help:    "Reddit API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		retriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redditcollector_retries_total",
			Help: "Total number of retried Reddit API requests",
		}, []string{"route"}),
		usersDiscovered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redditcollector_users_discovered_total",
			Help: "Users recorded by discovery, by view",
		}, []string{"view"}),
		usersProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "redditcollector_users_processed_total",
			Help: "Users whose history was collected",
		}),
		usersSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "redditcollector_users_skipped_total",
			Help: "Users skipped after a collection error",
		}),
		postsAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "redditcollector_posts_appended_total",
			Help: "Post rows appended to the store",
		}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "redditcollector_duplicates_removed_total",
			Help: "Duplicate post rows removed during post-processing",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "redditcollector_member_cache_hits_total",
			Help: "Member count lookups served from cache",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "redditcollector_member_cache_misses_total",
			Help: "Member count lookups that hit the API",
		}),
		resumeOffset: factory.NewGauge(prometheus.GaugeOpts{
			Name: "redditcollector_resume_offset",
			Help: "Index in the user list where collection resumed",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "redditcollector_last_run_timestamp_seconds",
			Help: "Unix time the metrics were last written",
		}),
	}
}

func (r *Registry) ObserveRequest(route string, status int, duration time.Duration) {
	r.requestsTotal.WithLabelValues(route, statusBucket(status)).Inc()
	r.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (r *Registry) IncRetries(route string)         { r.retriesTotal.WithLabelValues(route).Inc() }
func (r *Registry) IncUsersDiscovered(view string) { r.usersDiscovered.WithLabelValues(view).Inc() }
func (r *Registry) IncUsersProcessed()             { r.usersProcessed.Inc() }
func (r *Registry) IncUsersSkipped()               { r.usersSkipped.Inc() }
func (r *Registry) AddPostsAppended(n int)         { r.postsAppended.Add(float64(n)) }
func (r *Registry) AddDuplicatesRemoved(n int)     { r.duplicates.Add(float64(n)) }
func (r *Registry) IncCacheHits()                  { r.cacheHits.Inc() }
func (r *Registry) IncCacheMisses()                { r.cacheMisses.Inc() }
func (r *Registry) SetResumeOffset(offset int)     { r.resumeOffset.Set(float64(offset)) }

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile writes every metric in the text exposition format to path.
// The write goes through a temporary file so a scraper never reads half a file.
func (r *Registry) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	r.lastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func statusBucket(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Nop returns a Recorder that discards everything
func Nop() Recorder {
	return noopRecorder{}
}

type noopRecorder struct{}

func (noopRecorder) ObserveRequest(string, int, time.Duration) {}
func (noopRecorder) IncRetries(string)                        {}
func (noopRecorder) IncUsersDiscovered(string)                {}
func (noopRecorder) IncUsersProcessed()                       {}
func (noopRecorder) IncUsersSkipped()                         {}
func (noopRecorder) AddPostsAppended(int)                     {}
func (noopRecorder) AddDuplicatesRemoved(int)                 {}
func (noopRecorder) IncCacheHits()                            {}
func (noopRecorder) IncCacheMisses()                          {}
func (noopRecorder) SetResumeOffset(int)                      {}
