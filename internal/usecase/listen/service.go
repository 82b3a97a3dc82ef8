// Package listen implements the subreddit synchronization use case: drain the
// lazy post sequence produced by the Reddit client and upsert each post into
// the repository.
package listen

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"reddit-watch/internal/domain/entity"
	"reddit-watch/internal/repository"
	"reddit-watch/internal/resilience/circuitbreaker"
)

// upsertParallelism bounds concurrent repository writes per sync run.
const upsertParallelism = 8

// PostIterator yields posts from one walk over a subreddit listing.
type PostIterator interface {
	Next(ctx context.Context) bool
	Post() entity.Post
	Err() error
}

// PostSource starts a listing walk. Implemented by the Reddit client.
type PostSource interface {
	Posts(ctx context.Context, subreddit string) (PostIterator, error)
}

// Service synchronizes one subreddit's new posts into the post repository.
type Service struct {
	source    PostSource
	repo      repository.PostRepository
	subreddit string
	breaker   *circuitbreaker.CircuitBreaker
	logger    *slog.Logger
}

// SyncStats describes one synchronization run.
type SyncStats struct {
	Posts    int64
	Duration time.Duration
}

func NewService(source PostSource, repo repository.PostRepository, subreddit string, logger *slog.Logger) *Service {
	return &Service{
		source:    source,
		repo:      repo,
		subreddit: subreddit,
		breaker:   circuitbreaker.New(circuitbreaker.RedditFetchConfig()),
		logger:    logger,
	}
}

// SyncPosts drains the post sequence for the configured subreddit and upserts
// every post. Fetch failures (authentication, malformed pages) abort the run
// and count against the circuit breaker; the caller is expected to log the
// error and try again on its next scheduled invocation, never to crash.
func (s *Service) SyncPosts(ctx context.Context) (*SyncStats, error) {
	start := time.Now()
	s.logger.Debug("synchronizing posts", slog.String("subreddit", s.subreddit))

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.drain(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("sync %q posts: %w", s.subreddit, err)
	}

	stats := result.(*SyncStats)
	stats.Duration = time.Since(start)
	s.logger.Info("synchronized posts",
		slog.String("subreddit", s.subreddit),
		slog.Int64("posts", stats.Posts),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

func (s *Service) drain(ctx context.Context) (*SyncStats, error) {
	it, err := s.source.Posts(ctx, s.subreddit)
	if err != nil {
		return nil, err
	}

	stats := &SyncStats{}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(upsertParallelism)

	for it.Next(ctx) {
		post := it.Post()
		eg.Go(func() error {
			if err := s.repo.Upsert(egCtx, post); err != nil {
				return fmt.Errorf("upsert post %q: %w", post.Name, err)
			}
			atomic.AddInt64(&stats.Posts, 1)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
