// Package retry re-runs transient Reddit API failures with exponential backoff.
//
// Only errors whose type is retryable (network, rate limit, 5xx) are retried;
// authentication, forbidden and not-found errors surface immediately so the
// collector can skip the affected user. An error that carries a server hint
// through a RetryAfter() method waits at least that long.
//
//	cfg := retry.FromConfig(appCfg.Retry, log)
//	body, err := retry.DoWithResult(ctx, cfg, func() ([]byte, error) {
//		return fetch(ctx, url)
//	})
package retry
