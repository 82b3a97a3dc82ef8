// Package entity defines the core domain entities and validation logic for the
// application. It contains the fundamental business objects such as Post, along
// with their validation rules and domain-specific errors.
package entity

import (
	"math"
	"time"
)

// Post represents a single subreddit submission tracked by the system.
// Posts are keyed by Name (Reddit's "fullname", e.g. "t3_abc123") and are
// replaced wholesale on upsert; only UpVotes is expected to drift between
// sightings of the same post.
type Post struct {
	Name      string
	Subreddit string
	Title     string
	Author    string
	Permalink string
	CreatedAt time.Time
	UpVotes   int
}

// Score converts Reddit's raw vote signals into the display score stored on a
// post. The upvote ratio reported by the API can be negative, so the result is
// a ranking heuristic rather than a true vote tally.
func Score(ups int, upvoteRatio float64) int {
	return int(math.Round(float64(ups) * upvoteRatio))
}

// Validate checks that the post carries the fields the repository keys on.
func (p *Post) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Message: "cannot be empty"}
	}
	if p.Author == "" {
		return &ValidationError{Field: "author", Message: "cannot be empty"}
	}
	return nil
}
