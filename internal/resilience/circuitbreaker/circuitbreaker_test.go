package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

var errUpstreamRejected = errors.New("upstream rejected the request")

// testConfig trips at a 60% failure ratio once five calls are counted.
func testConfig() Config {
	return Config{
		Name:             "fetch",
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

func failNTimes(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, errUpstreamRejected
		})
	}
}

func TestNewStartsClosed(t *testing.T) {
	cb := New(testConfig())

	if cb.Name() != "fetch" {
		t.Errorf("Name() = %q, want %q", cb.Name(), "fetch")
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want Closed", cb.State())
	}
	if cb.IsOpen() {
		t.Error("IsOpen() = true for a fresh breaker")
	}
}

func TestExecutePassesThroughResults(t *testing.T) {
	cb := New(testConfig())

	result, err := cb.Execute(func() (interface{}, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result != 7 {
		t.Errorf("Execute() = %v, want 7", result)
	}

	_, err = cb.Execute(func() (interface{}, error) {
		return nil, errUpstreamRejected
	})
	if !errors.Is(err, errUpstreamRejected) {
		t.Errorf("Execute() error = %v, want the function's own error", err)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want Closed below the trip threshold", cb.State())
	}
}

func TestBreakerTripsAndFailsFast(t *testing.T) {
	cb := New(testConfig())

	// Five failures: past MinRequests with a 100% failure ratio.
	failNTimes(cb, 5)

	if !cb.IsOpen() {
		t.Fatalf("State() = %v, want Open after sustained failures", cb.State())
	}

	_, err := cb.Execute(func() (interface{}, error) {
		t.Error("function ran while the circuit was open")
		return nil, nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Execute() error = %v, want ErrOpenState", err)
	}
}

func TestBreakerStaysClosedBelowMinRequests(t *testing.T) {
	cfg := testConfig()
	cfg.MinRequests = 10
	cb := New(cfg)

	failNTimes(cb, 9)

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want Closed with fewer than MinRequests calls", cb.State())
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	cb := New(cfg)

	failNTimes(cb, 5)
	if !cb.IsOpen() {
		t.Fatalf("State() = %v, want Open", cb.State())
	}

	// Wait out the cool-down, then succeed on the half-open probe request.
	time.Sleep(cfg.Timeout + 20*time.Millisecond)

	_, err := cb.Execute(func() (interface{}, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Execute() after cool-down error = %v", err)
	}
	if cb.State() == gobreaker.StateOpen {
		t.Errorf("State() = Open after a successful recovery request")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("outbound")

	if cfg.Name != "outbound" {
		t.Errorf("Name = %q, want %q", cfg.Name, "outbound")
	}
	if cfg.MaxRequests != 3 || cfg.MinRequests != 5 {
		t.Errorf("request bounds = %d/%d, want 3/5", cfg.MaxRequests, cfg.MinRequests)
	}
	if cfg.Interval != 30*time.Second || cfg.Timeout != 60*time.Second {
		t.Errorf("windows = %v/%v, want 30s/60s", cfg.Interval, cfg.Timeout)
	}
	if cfg.FailureThreshold != 0.6 {
		t.Errorf("FailureThreshold = %v, want 0.6", cfg.FailureThreshold)
	}
}

func TestRedditFetchConfig(t *testing.T) {
	cfg := RedditFetchConfig()

	if cfg.Name != "reddit-fetch" {
		t.Errorf("Name = %q, want %q", cfg.Name, "reddit-fetch")
	}
	if cfg.MaxRequests != 2 {
		t.Errorf("MaxRequests = %d, want 2", cfg.MaxRequests)
	}
	if cfg.Timeout != 10*time.Minute {
		t.Errorf("Timeout = %v, want 10m", cfg.Timeout)
	}
	if cfg.MinRequests != 3 {
		t.Errorf("MinRequests = %d, want 3", cfg.MinRequests)
	}
}
