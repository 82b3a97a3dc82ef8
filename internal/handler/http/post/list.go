// Package post exposes the ranked post views over HTTP.
package post

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"reddit-watch/internal/domain/entity"
	"reddit-watch/internal/handler/http/respond"
	"reddit-watch/internal/repository"
)

const (
	defaultListCount = 10
	maxListCount     = 100
)

// ListPosts handles GET /r/{subreddit}/posts?count=N, returning posts ranked
// by up votes. The store only ever holds posts of the monitored subreddit, so
// the path segment names the collection rather than filtering it.
func ListPosts(repo repository.PostRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := countParam(r)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, err)
			return
		}

		posts, err := repo.TopByUpVotes(r.Context(), n)
		if err != nil {
			if errors.Is(err, entity.ErrInvalidInput) {
				respond.Error(w, http.StatusBadRequest, err)
				return
			}
			respond.InternalError(w, err)
			return
		}

		dtos := toPostDTOs(posts)
		respond.JSON(w, http.StatusOK, Listing[PostDTO]{Count: len(dtos), Data: dtos})
	}
}

// ListAuthors handles GET /r/{subreddit}/posts/users?count=N, returning
// authors ranked by how many posts they have.
func ListAuthors(repo repository.PostRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := countParam(r)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, err)
			return
		}

		authors, err := repo.TopAuthorsByPostCount(r.Context(), n)
		if err != nil {
			if errors.Is(err, entity.ErrInvalidInput) {
				respond.Error(w, http.StatusBadRequest, err)
				return
			}
			respond.InternalError(w, err)
			return
		}

		dtos := toAuthorPostsDTOs(authors)
		respond.JSON(w, http.StatusOK, Listing[AuthorPostsDTO]{Count: len(dtos), Data: dtos})
	}
}

// countParam parses the optional count query parameter.
func countParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("count")
	if raw == "" {
		return defaultListCount, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: must be an integer", raw)
	}
	if n <= 0 || n > maxListCount {
		return 0, fmt.Errorf("invalid count %d: must be between 1 and %d", n, maxListCount)
	}
	return n, nil
}
