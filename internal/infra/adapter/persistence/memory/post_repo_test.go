package memory_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"reddit-watch/internal/domain/entity"
	"reddit-watch/internal/infra/adapter/persistence/memory"
)

func newRepo() *memory.PostRepo {
	return memory.NewPostRepo(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func post(name, author string, upVotes int) entity.Post {
	return entity.Post{
		Name:      name,
		Subreddit: "golang",
		Title:     "title of " + name,
		Author:    author,
		Permalink: "/r/golang/comments/" + name + "/",
		CreatedAt: time.Unix(1700000000, 0),
		UpVotes:   upVotes,
	}
}

func TestUpsertValidatesPost(t *testing.T) {
	repo := newRepo()

	err := repo.Upsert(context.Background(), entity.Post{Author: "alice"})
	if err == nil {
		t.Error("Upsert accepted a post without a name")
	}
	err = repo.Upsert(context.Background(), entity.Post{Name: "t3_a"})
	if err == nil {
		t.Error("Upsert accepted a post without an author")
	}
}

func TestUpsertRefreshesVoteCount(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	if err := repo.Upsert(ctx, post("t3_a", "alice", 5)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(ctx, post("t3_a", "alice", 9)); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	posts, err := repo.TopByUpVotes(ctx, 10)
	if err != nil {
		t.Fatalf("TopByUpVotes: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}
	if posts[0].UpVotes != 9 {
		t.Errorf("up votes = %d, want 9", posts[0].UpVotes)
	}
}

func TestUpsertPreservesPostFields(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	want := post("t3_a", "alice", 5)
	if err := repo.Upsert(ctx, want); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	posts, err := repo.TopByUpVotes(ctx, 1)
	if err != nil {
		t.Fatalf("TopByUpVotes: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}
	if diff := cmp.Diff(want, posts[0]); diff != "" {
		t.Errorf("stored post mismatch (-want +got):\n%s", diff)
	}
}

func TestTopByUpVotes(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()
	for _, p := range []entity.Post{
		post("t3_a", "alice", 5),
		post("t3_b", "bob", 20),
		post("t3_c", "carol", 20),
		post("t3_d", "dave", 1),
	} {
		if err := repo.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	posts, err := repo.TopByUpVotes(ctx, 3)
	if err != nil {
		t.Fatalf("TopByUpVotes: %v", err)
	}

	wantOrder := []string{"t3_b", "t3_c", "t3_a"}
	if len(posts) != len(wantOrder) {
		t.Fatalf("got %d posts, want %d", len(posts), len(wantOrder))
	}
	for i, name := range wantOrder {
		if posts[i].Name != name {
			t.Errorf("posts[%d] = %q, want %q", i, posts[i].Name, name)
		}
	}

	if _, err := repo.TopByUpVotes(ctx, 0); !errors.Is(err, entity.ErrInvalidInput) {
		t.Errorf("TopByUpVotes(0) error = %v, want ErrInvalidInput", err)
	}
}

func TestTopAuthorsByPostCount(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()
	for _, p := range []entity.Post{
		post("t3_a", "alice", 1),
		post("t3_b", "alice", 2),
		post("t3_c", "alice", 3),
		post("t3_d", "bob", 4),
		post("t3_e", "bob", 5),
		post("t3_f", "carol", 6),
	} {
		if err := repo.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	authors, err := repo.TopAuthorsByPostCount(ctx, 2)
	if err != nil {
		t.Fatalf("TopAuthorsByPostCount: %v", err)
	}

	if len(authors) != 2 {
		t.Fatalf("got %d authors, want 2", len(authors))
	}
	if authors[0].Author != "alice" || authors[0].PostCount() != 3 {
		t.Errorf("authors[0] = %q with %d posts, want alice with 3", authors[0].Author, authors[0].PostCount())
	}
	if authors[1].Author != "bob" || authors[1].PostCount() != 2 {
		t.Errorf("authors[1] = %q with %d posts, want bob with 2", authors[1].Author, authors[1].PostCount())
	}
	// Posts within an author group come back in a stable name order.
	if got := authors[0].Posts[0].Name; got != "t3_a" {
		t.Errorf("first post of alice = %q, want t3_a", got)
	}

	if _, err := repo.TopAuthorsByPostCount(ctx, -1); !errors.Is(err, entity.ErrInvalidInput) {
		t.Errorf("TopAuthorsByPostCount(-1) error = %v, want ErrInvalidInput", err)
	}
}
