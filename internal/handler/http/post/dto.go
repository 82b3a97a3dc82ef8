package post

import (
	"time"

	"reddit-watch/internal/domain/entity"
	"reddit-watch/internal/repository"
)

// Listing is the envelope wrapped around every ranked view response.
type Listing[T any] struct {
	Count int `json:"count"`
	Data  []T `json:"data"`
}

// PostDTO is the JSON shape of a tracked post.
type PostDTO struct {
	Name      string    `json:"name"`
	Subreddit string    `json:"subreddit"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Permalink string    `json:"permalink"`
	CreatedAt time.Time `json:"created_at"`
	UpVotes   int       `json:"up_votes"`
}

// AuthorPostsDTO is the JSON shape of one author's post group.
type AuthorPostsDTO struct {
	Author    string    `json:"author"`
	PostCount int       `json:"post_count"`
	Posts     []PostDTO `json:"posts"`
}

func toPostDTO(p entity.Post) PostDTO {
	return PostDTO{
		Name:      p.Name,
		Subreddit: p.Subreddit,
		Title:     p.Title,
		Author:    p.Author,
		Permalink: p.Permalink,
		CreatedAt: p.CreatedAt,
		UpVotes:   p.UpVotes,
	}
}

func toPostDTOs(posts []entity.Post) []PostDTO {
	out := make([]PostDTO, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostDTO(p))
	}
	return out
}

func toAuthorPostsDTOs(authors []repository.AuthorPosts) []AuthorPostsDTO {
	out := make([]AuthorPostsDTO, 0, len(authors))
	for _, a := range authors {
		out = append(out, AuthorPostsDTO{
			Author:    a.Author,
			PostCount: a.PostCount(),
			Posts:     toPostDTOs(a.Posts),
		})
	}
	return out
}
