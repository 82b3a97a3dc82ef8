// Package circuitbreaker wraps github.com/sony/gobreaker for outbound calls.
// A tripped breaker fails fast instead of queueing more work behind an
// upstream that is already rejecting us.
package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Config tunes a single circuit breaker.
type Config struct {
	// Name identifies the breaker in logs.
	Name string

	// MaxRequests caps probe requests while half-open.
	MaxRequests uint32

	// Interval resets the closed-state counters periodically.
	Interval time.Duration

	// Timeout is the open-state cool-down before probing again.
	Timeout time.Duration

	// FailureThreshold trips the breaker once this failure ratio is reached.
	FailureThreshold float64

	// MinRequests is how many requests must be counted before the ratio
	// is evaluated at all.
	MinRequests uint32
}

// DefaultConfig returns a general-purpose breaker configuration.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// RedditFetchConfig returns configuration for subreddit listing syncs. The
// open-state timeout is generous because a tripped breaker usually means the
// upstream is rejecting us (bad credentials, hard throttle) and hammering it
// would only burn quota.
func RedditFetchConfig() Config {
	return Config{
		Name:             "reddit-fetch",
		MaxRequests:      2,
		Interval:         5 * time.Minute,
		Timeout:          10 * time.Minute,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// CircuitBreaker is a thin wrapper that fixes the trip rule and logging.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New builds a breaker from cfg. State transitions are logged at warn level
// since an opening circuit usually deserves an operator's attention.
func New(cfg Config) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Execute runs fn through the breaker, returning gobreaker.ErrOpenState
// without calling fn when the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

// State reports the breaker's current state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the breaker's configured name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen reports whether the breaker is currently rejecting calls.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}
