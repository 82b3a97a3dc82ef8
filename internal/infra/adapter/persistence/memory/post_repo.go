// Package memory provides an in-memory PostRepository. It is the default
// store: the ranked view only ever covers posts seen since process start, so
// nothing needs to survive a restart.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"reddit-watch/internal/domain/entity"
	"reddit-watch/internal/repository"
)

type PostRepo struct {
	mu     sync.RWMutex
	posts  map[string]entity.Post
	logger *slog.Logger
}

func NewPostRepo(logger *slog.Logger) *PostRepo {
	return &PostRepo{
		posts:  make(map[string]entity.Post),
		logger: logger,
	}
}

// Upsert adds the post or refreshes the vote count of a post already seen.
func (r *PostRepo) Upsert(ctx context.Context, post entity.Post) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous, exists := r.posts[post.Name]
	if !exists {
		r.posts[post.Name] = post
		r.logger.Info("added post",
			slog.String("name", post.Name),
			slog.String("author", post.Author),
			slog.Int("up_votes", post.UpVotes))
		return nil
	}

	if previous.UpVotes != post.UpVotes {
		r.logger.Info("updated post",
			slog.String("name", post.Name),
			slog.String("author", post.Author),
			slog.Int("previous_up_votes", previous.UpVotes),
			slog.Int("up_votes", post.UpVotes))
		previous.UpVotes = post.UpVotes
		r.posts[post.Name] = previous
	}
	return nil
}

func (r *PostRepo) TopByUpVotes(ctx context.Context, n int) ([]entity.Post, error) {
	if n <= 0 {
		return nil, fmt.Errorf("TopByUpVotes: %w: n must be positive", entity.ErrInvalidInput)
	}

	r.mu.RLock()
	posts := make([]entity.Post, 0, len(r.posts))
	for _, p := range r.posts {
		posts = append(posts, p)
	}
	r.mu.RUnlock()

	sort.Slice(posts, func(i, j int) bool {
		if posts[i].UpVotes != posts[j].UpVotes {
			return posts[i].UpVotes > posts[j].UpVotes
		}
		return posts[i].Name < posts[j].Name
	})
	if len(posts) > n {
		posts = posts[:n]
	}
	return posts, nil
}

func (r *PostRepo) TopAuthorsByPostCount(ctx context.Context, n int) ([]repository.AuthorPosts, error) {
	if n <= 0 {
		return nil, fmt.Errorf("TopAuthorsByPostCount: %w: n must be positive", entity.ErrInvalidInput)
	}

	r.mu.RLock()
	byAuthor := make(map[string][]entity.Post)
	for _, p := range r.posts {
		byAuthor[p.Author] = append(byAuthor[p.Author], p)
	}
	r.mu.RUnlock()

	authors := make([]repository.AuthorPosts, 0, len(byAuthor))
	for author, posts := range byAuthor {
		sort.Slice(posts, func(i, j int) bool { return posts[i].Name < posts[j].Name })
		authors = append(authors, repository.AuthorPosts{Author: author, Posts: posts})
	}
	sort.Slice(authors, func(i, j int) bool {
		if len(authors[i].Posts) != len(authors[j].Posts) {
			return len(authors[i].Posts) > len(authors[j].Posts)
		}
		return authors[i].Author < authors[j].Author
	})
	if len(authors) > n {
		authors = authors[:n]
	}
	return authors, nil
}
