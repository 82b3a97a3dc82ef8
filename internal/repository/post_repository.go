package repository

import (
	"context"

	"reddit-watch/internal/domain/entity"
)

// AuthorPosts groups the tracked posts belonging to one author.
type AuthorPosts struct {
	Author string
	Posts  []entity.Post
}

// PostCount returns the number of posts in the group.
func (a AuthorPosts) PostCount() int { return len(a.Posts) }

// PostRepository stores posts keyed by their Reddit fullname and serves the
// ranked views the API exposes.
type PostRepository interface {
	// Upsert inserts the post or, when a post with the same name exists,
	// replaces its vote count.
	Upsert(ctx context.Context, post entity.Post) error

	// TopByUpVotes returns up to n posts ordered by vote count, highest first.
	// n must be positive.
	TopByUpVotes(ctx context.Context, n int) ([]entity.Post, error)

	// TopAuthorsByPostCount returns up to n authors ordered by how many posts
	// they have, most prolific first. n must be positive.
	TopAuthorsByPostCount(ctx context.Context, n int) ([]AuthorPosts, error)
}
