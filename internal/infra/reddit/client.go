package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"reddit-watch/internal/domain/entity"
)

// Config holds the client configuration.
type Config struct {
	// BaseAddress is the data API base, e.g. "https://oauth.reddit.com".
	BaseAddress string

	Credentials Credentials

	// StartTime is the inclusion cutoff for listing walks: posts created
	// before it are never emitted. The zero value means "when the client was
	// constructed", mirroring process start.
	StartTime time.Time
}

// Client fetches subreddit listings through the rate limiting and
// authenticating transport chain. It is safe for concurrent use; the token
// cache is the only state shared between in-flight requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	startTime  int64 // unix seconds
	logger     *slog.Logger
}

// Option customizes a Client. Options exist mainly as test seams.
type Option func(*clientOptions)

type clientOptions struct {
	baseTransport http.RoundTripper
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
}

// WithBaseTransport replaces the network transport at the bottom of the
// chain. The rate limiting and authenticating layers still wrap it.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.baseTransport = rt }
}

// WithClock replaces the wall clock used for token expiry and delay
// bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

// WithSleep replaces the suspension primitive used for rate limit delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *clientOptions) { o.sleep = sleep }
}

// NewClient builds a Client whose requests travel
// rate limiter -> authenticator -> transport.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg.BaseAddress == "" {
		return nil, fmt.Errorf("%w: base address cannot be empty", entity.ErrInvalidInput)
	}
	if _, err := url.Parse(cfg.BaseAddress); err != nil {
		return nil, fmt.Errorf("%w: base address: %v", entity.ErrInvalidInput, err)
	}

	options := clientOptions{baseTransport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&options)
	}

	auth := newAuthTransport(options.baseTransport, cfg.Credentials, logger)
	limiter := newRateLimitTransport(auth, logger)
	if options.now != nil {
		auth.now = options.now
		limiter.now = options.now
	}
	if options.sleep != nil {
		limiter.sleep = options.sleep
	}

	startTime := cfg.StartTime
	if startTime.IsZero() {
		startTime = time.Now()
	}

	return &Client{
		httpClient: &http.Client{Transport: limiter},
		baseURL:    cfg.BaseAddress,
		startTime:  startTime.Unix(),
		logger:     logger,
	}, nil
}

// StartTime returns the inclusion cutoff in unix seconds.
func (c *Client) StartTime() int64 { return c.startTime }

// Posts starts a walk over the subreddit's "new" listing, newest first,
// yielding posts created at or after the client's start time. Each call
// starts a fresh cursor walk from page one. The context only gates the start
// of the walk; the context passed to Next governs the page fetches.
func (c *Client) Posts(ctx context.Context, subreddit string) (*PostIterator, error) {
	if subreddit == "" {
		return nil, fmt.Errorf("%w: subreddit cannot be empty", entity.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &PostIterator{client: c, subreddit: subreddit}, nil
}

// PostIterator is a pull-based cursor over a subreddit listing. Call Next
// until it returns false, then check Err. Iterators are single-use and not
// safe for concurrent use.
type PostIterator struct {
	client    *Client
	subreddit string

	after string // opaque cursor from the previous page
	count int    // items emitted so far, echoed back to the server

	buf  []entity.Post
	cur  entity.Post
	done bool
	err  error
}

// Next advances the iterator, fetching the next page when the buffered one is
// exhausted. It returns false when the sequence ends, whether normally or
// with an error.
func (it *PostIterator) Next(ctx context.Context) bool {
	for len(it.buf) == 0 {
		if it.done || it.err != nil {
			return false
		}
		it.fetchPage(ctx)
	}
	it.cur = it.buf[0]
	it.buf = it.buf[1:]
	return true
}

// Post returns the post most recently yielded by Next.
func (it *PostIterator) Post() entity.Post { return it.cur }

// Err returns the error that terminated the walk, if any. Upstream
// non-success statuses end the walk without an error; malformed pages and
// authentication failures are reported here.
func (it *PostIterator) Err() error { return it.err }

// listing mirrors the shape of Reddit's listing endpoint response. Pointer
// fields let us distinguish "absent" from "empty" when validating pages.
type listing struct {
	Data *listingData `json:"data"`
}

type listingData struct {
	After    string `json:"after"`
	Children []struct {
		Data *struct {
			Name        string  `json:"name"`
			Subreddit   string  `json:"subreddit"`
			Title       string  `json:"title"`
			Author      string  `json:"author"`
			Permalink   string  `json:"permalink"`
			CreatedUTC  float64 `json:"created_utc"`
			Ups         int     `json:"ups"`
			UpvoteRatio float64 `json:"upvote_ratio"`
		} `json:"data"`
	} `json:"children"`
}

// fetchPage requests one listing page and buffers its fresh-enough entries.
// Paging parameters follow https://www.reddit.com/dev/api#listings: "after"
// is the cursor returned by the previous page and "count" is the running
// total of items already consumed.
func (it *PostIterator) fetchPage(ctx context.Context) {
	c := it.client

	pageURL := fmt.Sprintf("%s/r/%s/new?show=all", c.baseURL, url.PathEscape(it.subreddit))
	if it.count > 0 && it.after != "" {
		pageURL += fmt.Sprintf("&count=%d&after=%s", it.count, url.QueryEscape(it.after))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		it.err = fmt.Errorf("build listing request: %w", err)
		return
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		it.err = fmt.Errorf("fetch listing page: %w", err)
		listingPagesTotal.WithLabelValues("error").Inc()
		return
	}
	defer func() { _ = resp.Body.Close() }()

	// Best effort: a failed page ends the sequence without an error so a
	// transient upstream failure cannot crash a long-running poll loop.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("response status code does not indicate success",
			slog.Int("status_code", resp.StatusCode),
			slog.String("status", resp.Status),
			slog.String("subreddit", it.subreddit))
		listingPagesTotal.WithLabelValues("upstream_error").Inc()
		it.done = true
		return
	}

	var page listing
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&page); err != nil {
		it.err = fmt.Errorf("%w: decode listing page: %v", ErrMalformedResponse, err)
		listingPagesTotal.WithLabelValues("malformed").Inc()
		return
	}
	if page.Data == nil {
		it.err = fmt.Errorf("%w: listing page missing data", ErrMalformedResponse)
		listingPagesTotal.WithLabelValues("malformed").Inc()
		return
	}
	listingPagesTotal.WithLabelValues("ok").Inc()

	// Entries are ordered newest to oldest; the first one older than the
	// start time cuts the page short and ends the whole walk.
	pageFullyConsumed := false
	for _, child := range page.Data.Children {
		if child.Data == nil {
			it.err = fmt.Errorf("%w: listing entry missing data", ErrMalformedResponse)
			return
		}
		created := int64(child.Data.CreatedUTC)
		pageFullyConsumed = created >= c.startTime
		if !pageFullyConsumed {
			break
		}

		it.buf = append(it.buf, entity.Post{
			Name:      child.Data.Name,
			Subreddit: child.Data.Subreddit,
			Title:     child.Data.Title,
			Author:    child.Data.Author,
			Permalink: child.Data.Permalink,
			CreatedAt: time.Unix(created, 0).UTC(),
			UpVotes:   entity.Score(child.Data.Ups, child.Data.UpvoteRatio),
		})
		it.count++
	}

	it.after = page.Data.After

	// A missing "after" means Reddit has no more posts after this page.
	if !pageFullyConsumed || it.after == "" {
		it.done = true
	}
}
