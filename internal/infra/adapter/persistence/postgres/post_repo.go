// Package postgres provides the PostgreSQL-backed PostRepository, for
// deployments where the ranked view should survive restarts.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"reddit-watch/internal/domain/entity"
	"reddit-watch/internal/repository"
)

type PostRepo struct {
	db *sql.DB
}

func NewPostRepo(db *sql.DB) repository.PostRepository {
	return &PostRepo{db: db}
}

// Upsert inserts the post or refreshes the mutable fields of an existing one.
// Posts are keyed by name, so a re-sighting only bumps the vote count.
func (repo *PostRepo) Upsert(ctx context.Context, post entity.Post) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	const query = `
INSERT INTO posts
       (name, subreddit, title, author, permalink, created_at, up_votes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (name) DO UPDATE SET up_votes = EXCLUDED.up_votes`
	_, err := repo.db.ExecContext(ctx, query,
		post.Name, post.Subreddit, post.Title, post.Author,
		post.Permalink, post.CreatedAt, post.UpVotes,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (repo *PostRepo) TopByUpVotes(ctx context.Context, n int) ([]entity.Post, error) {
	if n <= 0 {
		return nil, fmt.Errorf("TopByUpVotes: %w: n must be positive", entity.ErrInvalidInput)
	}

	const query = `
SELECT name, subreddit, title, author, permalink, created_at, up_votes
FROM posts
ORDER BY up_votes DESC, name
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("TopByUpVotes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	posts := make([]entity.Post, 0, n)
	for rows.Next() {
		var post entity.Post
		if err := rows.Scan(&post.Name, &post.Subreddit, &post.Title,
			&post.Author, &post.Permalink, &post.CreatedAt, &post.UpVotes); err != nil {
			return nil, fmt.Errorf("TopByUpVotes: Scan: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (repo *PostRepo) TopAuthorsByPostCount(ctx context.Context, n int) ([]repository.AuthorPosts, error) {
	if n <= 0 {
		return nil, fmt.Errorf("TopAuthorsByPostCount: %w: n must be positive", entity.ErrInvalidInput)
	}

	// One round trip: fetch every post belonging to the top-n authors, then
	// group in memory. The author ordering is recomputed here because the
	// subquery's ordering is lost in the outer scan.
	const query = `
SELECT name, subreddit, title, author, permalink, created_at, up_votes
FROM posts
WHERE author IN (
	SELECT author FROM posts
	GROUP BY author
	ORDER BY COUNT(*) DESC, author
	LIMIT $1
)
ORDER BY author, name`
	rows, err := repo.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("TopAuthorsByPostCount: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byAuthor := make(map[string][]entity.Post)
	order := make([]string, 0, n)
	for rows.Next() {
		var post entity.Post
		if err := rows.Scan(&post.Name, &post.Subreddit, &post.Title,
			&post.Author, &post.Permalink, &post.CreatedAt, &post.UpVotes); err != nil {
			return nil, fmt.Errorf("TopAuthorsByPostCount: Scan: %w", err)
		}
		if _, seen := byAuthor[post.Author]; !seen {
			order = append(order, post.Author)
		}
		byAuthor[post.Author] = append(byAuthor[post.Author], post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("TopAuthorsByPostCount: rows.Err: %w", err)
	}

	authors := make([]repository.AuthorPosts, 0, len(order))
	for _, author := range order {
		authors = append(authors, repository.AuthorPosts{Author: author, Posts: byAuthor[author]})
	}
	sort.Slice(authors, func(i, j int) bool {
		if len(authors[i].Posts) != len(authors[j].Posts) {
			return len(authors[i].Posts) > len(authors[j].Posts)
		}
		return authors[i].Author < authors[j].Author
	})
	return authors, nil
}
