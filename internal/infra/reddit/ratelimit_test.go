package reddit

import (
	"context"
	"net/http"
	"testing"
	"time"
)

// scriptedTransport replays a fixed sequence of responses and records the
// requests it receives.
type scriptedTransport struct {
	responses []*http.Response
	requests  []*http.Request
}

func (s *scriptedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	s.requests = append(s.requests, r)
	if len(s.responses) == 0 {
		panic("scriptedTransport: out of responses")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func quotaResponse(status int, remaining, reset string) *http.Response {
	resp := jsonResponse(status, `{}`)
	if remaining != "" {
		resp.Header.Set(headerRateLimitRemaining, remaining)
	}
	if reset != "" {
		resp.Header.Set(headerRateLimitReset, reset)
	}
	return resp
}

// newTestLimiter wires a rate limit transport with a fake clock and a sleep
// that records durations and advances the clock instead of blocking.
func newTestLimiter(inner http.RoundTripper) (*rateLimitTransport, *[]time.Duration) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sleeps := &[]time.Duration{}

	tr := newRateLimitTransport(inner, testLogger())
	tr.now = func() time.Time { return now }
	tr.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		now = now.Add(d)
		return nil
	}
	return tr, sleeps
}

func TestRateLimitPassThroughWhenQuotaRemains(t *testing.T) {
	inner := &scriptedTransport{responses: []*http.Response{
		quotaResponse(http.StatusOK, "55", "120"),
	}}
	tr, sleeps := newTestLimiter(inner)

	req, _ := http.NewRequest(http.MethodGet, "https://oauth.example/r/golang/new", nil)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	resp.Body.Close()

	if len(inner.requests) != 1 {
		t.Errorf("inner requests = %d, want 1", len(inner.requests))
	}
	if len(*sleeps) != 0 {
		t.Errorf("sleeps = %v, want none", *sleeps)
	}
}

func TestRateLimitRetriesThrottledRequest(t *testing.T) {
	inner := &scriptedTransport{responses: []*http.Response{
		quotaResponse(http.StatusTooManyRequests, "0", "2"),
		quotaResponse(http.StatusOK, "60", "600"),
	}}
	tr, sleeps := newTestLimiter(inner)

	req, _ := http.NewRequest(http.MethodGet, "https://oauth.example/r/golang/new", nil)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("final status = %d, want 200", resp.StatusCode)
	}
	if len(inner.requests) != 2 {
		t.Fatalf("inner requests = %d, want 2", len(inner.requests))
	}
	if inner.requests[0] == inner.requests[1] {
		t.Error("retry reused the already-sent request instead of a clone")
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 2*time.Second {
		t.Errorf("sleeps = %v, want [2s]", *sleeps)
	}
}

func TestRateLimitRetriesUntilQuotaGranted(t *testing.T) {
	inner := &scriptedTransport{responses: []*http.Response{
		quotaResponse(http.StatusTooManyRequests, "0", "1"),
		quotaResponse(http.StatusTooManyRequests, "0", "3"),
		quotaResponse(http.StatusTooManyRequests, "0", "5"),
		quotaResponse(http.StatusOK, "10", "60"),
	}}
	tr, sleeps := newTestLimiter(inner)

	req, _ := http.NewRequest(http.MethodGet, "https://oauth.example/r/golang/new", nil)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	resp.Body.Close()

	if len(inner.requests) != 4 {
		t.Errorf("inner requests = %d, want 4", len(inner.requests))
	}
	want := []time.Duration{time.Second, 3 * time.Second, 5 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *sleeps, want)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("sleep[%d] = %v, want %v", i, (*sleeps)[i], d)
		}
	}
}

func TestRateLimitPrimesDelayForNextRequest(t *testing.T) {
	// The response succeeds but reports the quota as spent. The next request
	// must wait out the advertised reset before being sent.
	inner := &scriptedTransport{responses: []*http.Response{
		quotaResponse(http.StatusOK, "0", "5"),
		quotaResponse(http.StatusOK, "60", "600"),
	}}
	tr, sleeps := newTestLimiter(inner)

	first, _ := http.NewRequest(http.MethodGet, "https://oauth.example/r/golang/new", nil)
	resp, err := tr.RoundTrip(first)
	if err != nil {
		t.Fatalf("first RoundTrip() error = %v", err)
	}
	resp.Body.Close()
	if len(*sleeps) != 0 {
		t.Fatalf("first request slept %v, want no sleep", *sleeps)
	}

	second, _ := http.NewRequest(http.MethodGet, "https://oauth.example/r/golang/new", nil)
	resp, err = tr.RoundTrip(second)
	if err != nil {
		t.Fatalf("second RoundTrip() error = %v", err)
	}
	resp.Body.Close()

	if len(*sleeps) != 1 || (*sleeps)[0] != 5*time.Second {
		t.Errorf("sleeps = %v, want [5s]", *sleeps)
	}
}

func TestQuotaHeaders(t *testing.T) {
	tests := []struct {
		name          string
		remaining     string
		reset         string
		wantOK        bool
		wantRemaining float64
		wantReset     time.Duration
	}{
		{"both present", "42", "120", true, 42, 120 * time.Second},
		{"fractional remaining", "0.5", "30", true, 0.5, 30 * time.Second},
		{"missing remaining", "", "120", false, 0, 0},
		{"missing reset", "42", "", false, 0, 0},
		{"non-numeric remaining", "lots", "120", false, 0, 0},
		{"non-numeric reset", "42", "soon", false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := quotaResponse(http.StatusOK, tt.remaining, tt.reset)
			remaining, reset, ok := quotaHeaders(resp)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if remaining != tt.wantRemaining || reset != tt.wantReset {
				t.Errorf("quotaHeaders() = (%v, %v), want (%v, %v)",
					remaining, reset, tt.wantRemaining, tt.wantReset)
			}
		})
	}
}

func TestSleepContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepContext(ctx, time.Minute); err != context.Canceled {
		t.Errorf("sleepContext() error = %v, want context.Canceled", err)
	}

	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() error = %v, want nil", err)
	}
}
