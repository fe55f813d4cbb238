package reddit

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"redditcollector/pkg/auth"
	"redditcollector/pkg/config"
	errs "redditcollector/pkg/errors"
	"redditcollector/pkg/logger"
	"redditcollector/pkg/metrics"
	"redditcollector/pkg/ratelimit"
	"redditcollector/pkg/retry"
)

// tokenSlack renews the access token this long before Reddit expires it
const tokenSlack = 30 * time.Second

// Client is an OAuth Reddit API client. Every API request passes through the
// rate limiter, and transient failures are retried with backoff.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authURL    string
	userAgent  string
	creds      *auth.Credentials
	limiter    ratelimit.Limiter
	retry      *retry.Config
	metrics    metrics.Recorder
	logger     logger.Logger

	viewCap     int
	itemCap     int
	treeTimeout time.Duration
	maxMore     int

	mu     sync.Mutex
	token  string
	expiry time.Time
	now    func() time.Time
}

// NewClient creates a client for the configured Reddit endpoints
func NewClient(cfg *config.Config, creds *auth.Credentials, log logger.Logger) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Reddit.RequestTimeout},
		baseURL:     strings.TrimRight(cfg.Reddit.BaseURL, "/"),
		authURL:     cfg.Reddit.AuthURL,
		userAgent:   cfg.Reddit.UserAgent,
		creds:       creds,
		limiter:     ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute),
		retry:       retry.FromConfig(cfg.Retry, log),
		metrics:     metrics.Nop(),
		logger:      log.WithField("component", "reddit"),
		viewCap:     capListing(cfg.Collection.ViewPageSize),
		itemCap:     capListing(cfg.Collection.ItemPageSize),
		treeTimeout: cfg.Reddit.CommentTreeTimeout,
		maxMore:     cfg.Reddit.MaxMoreRequests,
		now:         time.Now,
	}, nil
}

func capListing(n int) int {
	if n <= 0 || n > ListingCap {
		return ListingCap
	}
	return n
}

// SetLimiter replaces the request limiter
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	c.limiter = l
}

// SetRetry replaces the retry policy
func (c *Client) SetRetry(cfg *retry.Config) {
	c.retry = cfg
}

// SetMetrics routes request counts to m
func (c *Client) SetMetrics(m metrics.Recorder) {
	if m == nil {
		m = metrics.Nop()
	}
	c.metrics = m
}

// accessToken returns a valid bearer token, requesting a new one when needed
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Add(tokenSlack).Before(c.expiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.creds.Username)
	form.Set("password", c.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errs.New(errs.ErrorTypeUnknown, 0, "failed to create token request: %v", err)
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errs.New(errs.ErrorTypeNetwork, 0, "token request failed: %v", err)
	}
	defer resp.Body.Close()

	if apiErr := errs.FromStatus(resp.StatusCode, c.authURL); apiErr != nil {
		return "", apiErr
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse token response: %v", err)
	}
	if tok.Error != "" || tok.AccessToken == "" {
		return "", errs.New(errs.ErrorTypeAuth, resp.StatusCode, "token request rejected: %s", tok.Error)
	}

	c.token = tok.AccessToken
	c.expiry = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.logger.DebugWithFields("obtained access token", map[string]interface{}{
		"expires_in": tok.ExpiresIn,
		"scope":      tok.Scope,
	})
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// getJSON fetches path and decodes the JSON body into target, retrying transient failures
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, target interface{}) error {
	route := routeOf(path)
	attempt := 0
	return retry.Do(ctx, c.retry, func() error {
		if attempt > 0 {
			c.metrics.IncRetries(route)
		}
		attempt++
		return c.fetch(ctx, path, params, target)
	})
}

// fetch performs one GET. An expired token (401) is renewed once in place.
func (c *Client) fetch(ctx context.Context, path string, params url.Values, target interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
		}
		req.Header.Set("Authorization", "bearer "+token)
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.metrics.ObserveRequest(routeOf(path), 0, time.Since(start))
			c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
				"url":   endpoint,
				"error": err.Error(),
			})
			return errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
		}
		logger.LogRequest(c.logger, req.Method, endpoint, resp.StatusCode, time.Since(start))
		c.metrics.ObserveRequest(routeOf(path), resp.StatusCode, time.Since(start))
		c.observeQuota(path, resp.Header)

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			c.invalidateToken()
			continue
		}

		return c.decode(resp, endpoint, target)
	}
}

func (c *Client) decode(resp *http.Response, endpoint string, target interface{}) error {
	defer resp.Body.Close()

	if apiErr := errs.FromStatus(resp.StatusCode, endpoint); apiErr != nil {
		if apiErr.Type == errs.ErrorTypeRateLimit {
			apiErr.Wait = retryAfter(resp.Header)
		}
		return apiErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          endpoint,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}
	return nil
}

// observeQuota forwards Reddit's quota headers to the limiter
func (c *Client) observeQuota(path string, h http.Header) {
	remaining, err := strconv.ParseFloat(h.Get("X-Ratelimit-Remaining"), 64)
	if err != nil {
		return
	}
	resetSec, err := strconv.ParseFloat(h.Get("X-Ratelimit-Reset"), 64)
	if err != nil {
		return
	}
	reset := time.Duration(resetSec * float64(time.Second))
	c.limiter.Observe(remaining, reset)
	if remaining < 1 {
		logger.LogRateLimit(c.logger, path, reset)
	}
}

// routeOf buckets a request path into a low-cardinality metrics label
func routeOf(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/morechildren"):
		return "morechildren"
	case strings.HasPrefix(path, "/comments/"):
		return "comments"
	case strings.HasPrefix(path, "/user/"):
		return "user"
	case strings.HasSuffix(path, "/about"):
		return "about"
	default:
		return "listing"
	}
}

func retryAfter(h http.Header) time.Duration {
	for _, key := range []string{"Retry-After", "X-Ratelimit-Reset"} {
		if secs, err := strconv.Atoi(strings.TrimSpace(h.Get(key))); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func decodeThing[T any](th Thing) (*T, error) {
	var v T
	if err := json.Unmarshal(th.Data, &v); err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, 0, "failed to parse %s: %v", th.Kind, err)
	}
	return &v, nil
}
