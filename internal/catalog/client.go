// Package catalog is a read-only client for the Jikan anime catalog API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://api.jikan.moe/v4"
	defaultCacheTTL = 24 * time.Hour

	// Jikan allows three requests per second per client.
	defaultRate  = 3
	defaultBurst = 3

	// MaxLimit is the largest page size the API accepts.
	MaxLimit = 25
)

var (
	// ErrNotFound is returned when an anime id doesn't exist in the catalog.
	ErrNotFound = errors.New("anime not found")

	// ErrUnavailable is returned for transport failures, throttling, and
	// non-2xx responses. The user may retry.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Client is a Jikan API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache
	limiter    *rate.Limiter
	group      singleflight.Group
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithCacheTTL sets the detail cache TTL. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = newCache(ttl)
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit paces outgoing requests. A non-positive rate disables pacing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new catalog client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:   newCache(defaultCacheTTL),
		limiter: rate.NewLimiter(defaultRate, defaultBurst),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "catalog")
	return c
}

// Search runs a free-text title query. A non-positive limit uses the API default.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Anime, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(min(limit, MaxLimit)))
	}

	var resp listResponse
	if err := c.get(ctx, "/anime", q, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return resp.Data, nil
}

// Anime fetches full metadata for one entry. Results are cached, and
// concurrent requests for the same id share one round-trip. Each call gets
// its own copy.
func (c *Client) Anime(ctx context.Context, malID int64) (*Anime, error) {
	if a, ok := c.cache.get(malID); ok {
		c.logger.Debug("cache hit", "mal_id", malID)
		return &a, nil
	}

	ch := c.group.DoChan(strconv.FormatInt(malID, 10), func() (any, error) {
		// Detached from ctx: other callers may be waiting on this fetch.
		// The HTTP client's timeout still bounds it.
		var resp itemResponse
		if err := c.get(context.WithoutCancel(ctx), fmt.Sprintf("/anime/%d/full", malID), nil, &resp); err != nil {
			return nil, err
		}
		c.cache.set(malID, resp.Data)
		return resp.Data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("get anime %d: %w", malID, res.Err)
		}
		a := cloneAnime(res.Val.(Anime))
		return &a, nil
	}
}

// SeasonNow lists the current broadcast season. Pages start at 1.
func (c *Client) SeasonNow(ctx context.Context, page int) ([]Anime, error) {
	var resp listResponse
	if err := c.get(ctx, "/seasons/now", pageQuery(page), &resp); err != nil {
		return nil, fmt.Errorf("current season: %w", err)
	}
	return resp.Data, nil
}

// TopAnime lists the highest ranked entries. Pages start at 1.
func (c *Client) TopAnime(ctx context.Context, page int) ([]Anime, error) {
	var resp listResponse
	if err := c.get(ctx, "/top/anime", pageQuery(page), &resp); err != nil {
		return nil, fmt.Errorf("top anime: %w", err)
	}
	return resp.Data, nil
}

func pageQuery(page int) url.Values {
	if page <= 1 {
		return nil
	}
	return url.Values{"page": {strconv.Itoa(page)}}
}

// get performs one paced GET and decodes the JSON body into v.
// Context errors are returned unwrapped so callers can tell a superseded
// request from a failed one.
func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limit: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("catalog request", "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrUnavailable, describeError(resp))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	return nil
}

func describeError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Sprintf("%s: %s", resp.Status, apiErr.Message)
	}
	return resp.Status
}
