// Package resilience provides fault tolerance patterns for the application.
// It wraps outbound Reddit fetches in a circuit breaker so a persistently
// failing upstream cannot keep burning quota and log volume.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.RedditFetchConfig())
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return fetchPosts()
//	})
package resilience
