package reddit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Rate limit signalling headers, per Reddit's API rules. Header lookup is
// case-insensitive through http.Header.
const (
	headerRateLimitRemaining = "X-Ratelimit-Remaining"
	headerRateLimitReset     = "X-Ratelimit-Reset"
)

// rateLimitTransport throttles requests based on Reddit's quota headers.
//
// Proactively: if a previous response said the quota was exhausted, the next
// request sleeps until the advertised reset before being sent at all.
//
// Reactively: a 429 response with exhausted quota headers is resolved by
// sleeping for the reset window, cloning the request (a sent request must not
// be reused) and re-issuing it, looping until the server stops throttling.
// The loop has no retry cap; termination relies on the server eventually
// granting quota back.
type rateLimitTransport struct {
	inner  http.RoundTripper
	logger *slog.Logger

	// now and sleep are replaceable in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// delayUntil is shared between callers. A stale read only skews a delay
	// by one window, so a plain mutex around the field is all it needs.
	mu         sync.Mutex
	delayUntil time.Time
}

func newRateLimitTransport(inner http.RoundTripper, logger *slog.Logger) *rateLimitTransport {
	return &rateLimitTransport{
		inner:  inner,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

func (t *rateLimitTransport) pendingDelay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delayUntil.Sub(t.now())
}

func (t *rateLimitTransport) setDelayUntil(until time.Time) {
	t.mu.Lock()
	t.delayUntil = until
	t.mu.Unlock()
}

// RoundTrip sends the request through the inner transport, honoring any delay
// a previous response demanded and transparently retrying throttled requests.
func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if wait := t.pendingDelay(); wait > 0 {
		t.logger.Info("delaying request because the previous response exhausted the rate limit",
			slog.Duration("delay", wait))
		throttleDelaySeconds.Observe(wait.Seconds())
		if err := t.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	for {
		remaining, reset, ok := quotaHeaders(resp)
		if !ok || remaining >= 1 {
			return resp, nil
		}

		// Prime the next request to wait, even when this one succeeded: the
		// server told us it was the last one before throttling begins.
		t.setDelayUntil(t.now().Add(reset))

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// The request itself was throttled. Wait out the window, then re-issue
		// an equivalent request.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		t.logger.Info("request was throttled, retrying after the rate limit resets",
			slog.Duration("delay", reset))
		throttledRequestsTotal.Inc()
		throttleDelaySeconds.Observe(reset.Seconds())

		if err := t.sleep(ctx, reset); err != nil {
			return nil, err
		}

		clone, err := cloneRequest(req)
		if err != nil {
			return nil, err
		}
		req = clone

		resp, err = t.inner.RoundTrip(req)
		if err != nil {
			return nil, err
		}
	}
}

// quotaHeaders extracts the remaining-requests count and the reset window from
// the response. Absent or non-numeric values disable rate limit handling for
// this response entirely.
func quotaHeaders(resp *http.Response) (remaining float64, reset time.Duration, ok bool) {
	remainingRaw := resp.Header.Get(headerRateLimitRemaining)
	resetRaw := resp.Header.Get(headerRateLimitReset)
	if remainingRaw == "" || resetRaw == "" {
		return 0, 0, false
	}

	remaining, err := strconv.ParseFloat(remainingRaw, 64)
	if err != nil {
		return 0, 0, false
	}
	resetSeconds, err := strconv.ParseFloat(resetRaw, 64)
	if err != nil {
		return 0, 0, false
	}

	return remaining, time.Duration(resetSeconds * float64(time.Second)), true
}

// sleepContext blocks for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
