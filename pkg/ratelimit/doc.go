// Package ratelimit paces requests to the Reddit API.
//
// TokenBucket grants a fixed number of requests per period and also listens
// to the quota Reddit reports in its X-Ratelimit-Remaining and
// X-Ratelimit-Reset headers: once the server says the quota is spent, Wait
// blocks until the reported reset regardless of local tokens.
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	resp, err := http.DefaultClient.Do(req)
//	limiter.Observe(remaining, reset)
package ratelimit
