package service

import (
	"context"
	"errors"
	"testing"

	"github.com/user/cinelog/internal/model"
	"github.com/user/cinelog/internal/testutil"
)

func newIngestFixture(t *testing.T) (*testutil.MemStore, *testutil.FakeMetadata, *Ingestor) {
	t.Helper()
	mem := testutil.NewMemStore()
	meta := testutil.NewFakeMetadata()
	meta.Add("603", "The Matrix", 8.2)
	return mem, meta, NewIngestor(newStores(mem), meta, true)
}

func defaultLists(mem *testutil.MemStore, ownerID int) int {
	return mem.CountLists(func(l model.List) bool {
		return l.OwnerID == ownerID && l.Title == DefaultListTitle && !l.IsDeleted
	})
}

func TestAddMovieToWatchlistPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("Anonymous", func(t *testing.T) {
		_, _, s := newIngestFixture(t)
		_, err := s.AddMovieToWatchlist(ctx, Anonymous, "603", "")
		if !errors.Is(err, ErrAuthRequired) || Message(err) != "You must be logged in." {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("MissingMovieID", func(t *testing.T) {
		mem, _, s := newIngestFixture(t)
		u := mem.AddUser("a@example.com", "A")
		_, err := s.AddMovieToWatchlist(ctx, Authenticated(u.ID), "  ", "")
		if !errors.Is(err, ErrValidation) || Message(err) != "Movie ID is missing." {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("UpstreamFailure", func(t *testing.T) {
		mem, meta, s := newIngestFixture(t)
		u := mem.AddUser("a@example.com", "A")
		meta.Err = errors.New("timeout")

		_, err := s.AddMovieToWatchlist(ctx, Authenticated(u.ID), "603", "")
		if !errors.Is(err, ErrUpstream) || Message(err) != "Failed to fetch movie details from TMDB." {
			t.Errorf("unexpected error %v", err)
		}
		if mem.Writes() != 0 {
			t.Error("nothing may be written when metadata fails")
		}
	})
}

// 未指定清单时创建 "Watchlist"，重复添加只提示已存在
func TestAddMovieToDefaultWatchlist(t *testing.T) {
	ctx := context.Background()
	mem, _, s := newIngestFixture(t)
	a := mem.AddUser("a@example.com", "A")
	caller := Authenticated(a.ID)

	msg, err := s.AddMovieToWatchlist(ctx, caller, "603", "")
	if err != nil {
		t.Fatal(err)
	}
	if msg != `"The Matrix" added to watchlist!` {
		t.Errorf("unexpected message %q", msg)
	}

	if n := defaultLists(mem, a.ID); n != 1 {
		t.Fatalf("expected one default list, got %d", n)
	}
	list, _ := mem.Lists.FindByOwnerAndTitle(ctx, a.ID, DefaultListTitle)
	if !list.IsPrivate {
		t.Error("default list should be private by default")
	}
	if mem.CountHistory(list.ID) != 1 {
		t.Fatal("expected one history item")
	}
	items, _ := mem.History.ListByList(ctx, list.ID, 10, 0)
	if items[0].TMDBScore == nil || *items[0].TMDBScore != 8.2 {
		t.Errorf("tmdb_score should be copied from vote_average, got %v", items[0].TMDBScore)
	}

	msg, err = s.AddMovieToWatchlist(ctx, caller, "603", "")
	if err != nil {
		t.Fatal(err)
	}
	if msg != `"The Matrix" is already in that watchlist.` {
		t.Errorf("unexpected message %q", msg)
	}
	if mem.CountHistory(list.ID) != 1 || defaultLists(mem, a.ID) != 1 {
		t.Error("repeat call must not create new rows")
	}
	if mem.Movies.MovieCount() != 1 {
		t.Errorf("movie should be created once, got %d", mem.Movies.MovieCount())
	}
}

func TestAddMovieDefaultListConfigurable(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemStore()
	meta := testutil.NewFakeMetadata()
	meta.Add("603", "The Matrix", 0)
	s := NewIngestor(newStores(mem), meta, false)
	a := mem.AddUser("a@example.com", "A")

	if _, err := s.AddMovieToWatchlist(ctx, Authenticated(a.ID), "603", ""); err != nil {
		t.Fatal(err)
	}
	list, _ := mem.Lists.FindByOwnerAndTitle(ctx, a.ID, DefaultListTitle)
	if list.IsPrivate {
		t.Error("default list should follow the configured privacy")
	}
	items, _ := mem.History.ListByList(ctx, list.ID, 10, 0)
	if items[0].TMDBScore != nil {
		t.Error("zero vote_average must not be copied")
	}
}

func TestAddMovieReusesExistingWatchlistTitle(t *testing.T) {
	ctx := context.Background()
	mem, _, s := newIngestFixture(t)
	a := mem.AddUser("a@example.com", "A")
	existing := mem.AddList(a.ID, DefaultListTitle, false)

	if _, err := s.AddMovieToWatchlist(ctx, Authenticated(a.ID), "603", ""); err != nil {
		t.Fatal(err)
	}
	if mem.CountHistory(existing.ID) != 1 {
		t.Error("movie should go into the existing Watchlist")
	}
	if defaultLists(mem, a.ID) != 1 {
		t.Error("no second Watchlist may be created")
	}
}

func TestAddMovieRecreatesDeletedDefaultList(t *testing.T) {
	ctx := context.Background()
	mem, _, s := newIngestFixture(t)
	a := mem.AddUser("a@example.com", "A")
	caller := Authenticated(a.ID)

	if _, err := s.AddMovieToWatchlist(ctx, caller, "603", ""); err != nil {
		t.Fatal(err)
	}
	old, _ := mem.Lists.FindDefault(ctx, a.ID)
	old.IsDeleted = true
	if err := mem.Lists.Update(ctx, old); err != nil {
		t.Fatal(err)
	}

	msg, err := s.AddMovieToWatchlist(ctx, caller, "603", "")
	if err != nil {
		t.Fatal(err)
	}
	if msg != `"The Matrix" added to watchlist!` {
		t.Errorf("unexpected message %q", msg)
	}
	current, _ := mem.Lists.FindDefault(ctx, a.ID)
	if current == nil || current.ID == old.ID || current.IsDeleted {
		t.Fatalf("expected a fresh default list, got %+v", current)
	}
	if defaultLists(mem, a.ID) != 1 {
		t.Error("expected exactly one live default list")
	}
}

func TestAddMovieAfterDefaultListRenamed(t *testing.T) {
	ctx := context.Background()
	mem, meta, s := newIngestFixture(t)
	meta.Add("604", "The Matrix Reloaded", 7.0)
	a := mem.AddUser("a@example.com", "A")
	caller := Authenticated(a.ID)

	if _, err := s.AddMovieToWatchlist(ctx, caller, "603", ""); err != nil {
		t.Fatal(err)
	}
	renamed, _ := mem.Lists.FindDefault(ctx, a.ID)
	renamed.Title = "Favorites"
	renamed.IsPrivate = false
	if err := mem.Lists.Update(ctx, renamed); err != nil {
		t.Fatal(err)
	}

	msg, err := s.AddMovieToWatchlist(ctx, caller, "604", "")
	if err != nil {
		t.Fatal(err)
	}
	if msg != `"The Matrix Reloaded" added to watchlist!` {
		t.Errorf("unexpected message %q", msg)
	}
	if n := mem.CountHistory(renamed.ID); n != 1 {
		t.Errorf("renamed list should keep only its original movie, got %d", n)
	}
	current, _ := mem.Lists.FindDefault(ctx, a.ID)
	if current == nil || current.ID == renamed.ID || current.Title != DefaultListTitle || !current.IsPrivate {
		t.Fatalf("expected a fresh private default list, got %+v", current)
	}
	if n := mem.CountHistory(current.ID); n != 1 {
		t.Errorf("expected the new movie in the fresh default list, got %d", n)
	}
	if defaultLists(mem, a.ID) != 1 {
		t.Error("expected exactly one live default list")
	}
}

func TestAddMovieToExplicitList(t *testing.T) {
	ctx := context.Background()

	t.Run("OwnerAndMember", func(t *testing.T) {
		mem, _, s := newIngestFixture(t)
		owner := mem.AddUser("o@example.com", "O")
		member := mem.AddUser("m@example.com", "M")
		list := mem.AddList(owner.ID, "Shared", true)
		mem.AddMembership(list.ID, member.ID, model.PermissionView)

		if _, err := s.AddMovieToWatchlist(ctx, Authenticated(member.ID), "603", idStr(list.ID)); err != nil {
			t.Fatal(err)
		}
		msg, err := s.AddMovieToWatchlist(ctx, Authenticated(owner.ID), "603", idStr(list.ID))
		if err != nil {
			t.Fatal(err)
		}
		if msg != `"The Matrix" is already in that watchlist.` {
			t.Errorf("unexpected message %q", msg)
		}
		if mem.CountHistory(list.ID) != 1 {
			t.Error("expected exactly one history item")
		}
	})

	t.Run("Denied", func(t *testing.T) {
		mem, _, s := newIngestFixture(t)
		owner := mem.AddUser("o@example.com", "O")
		stranger := mem.AddUser("s@example.com", "S")
		public := mem.AddList(owner.ID, "Public", false)

		for _, id := range []string{idStr(public.ID), "424242", "x"} {
			_, err := s.AddMovieToWatchlist(ctx, Authenticated(stranger.ID), "603", id)
			if !errors.Is(err, ErrAccessDenied) || Message(err) != "List not found or access denied" {
				t.Errorf("list %q: unexpected error %v", id, err)
			}
		}
		if mem.Movies.MovieCount() != 0 || mem.CountHistory(public.ID) != 0 {
			t.Error("denied calls must not write")
		}
	})
}

func TestAddMovieDefaults(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemStore()
	meta := testutil.NewFakeMetadata()
	meta.Movies["42"] = &model.MovieMetadata{ID: 42}
	s := NewIngestor(newStores(mem), meta, true)
	a := mem.AddUser("a@example.com", "A")

	msg, err := s.AddMovieToWatchlist(ctx, Authenticated(a.ID), "42", "")
	if err != nil {
		t.Fatal(err)
	}
	if msg != `"Unknown" added to watchlist!` {
		t.Errorf("unexpected message %q", msg)
	}
	m, _ := mem.Movies.FindByTMDBID(ctx, "42")
	if m.Title != "Unknown" || m.OriginalLanguage != "en" || m.Status != "Released" || m.Runtime != 0 || m.PosterPath != "" {
		t.Errorf("defaults not applied: %+v", m)
	}
}

func TestAddMovieStoreFailure(t *testing.T) {
	ctx := context.Background()
	mem, _, s := newIngestFixture(t)
	a := mem.AddUser("a@example.com", "A")
	mem.Fail["history.Create"] = errors.New("disk full")

	_, err := s.AddMovieToWatchlist(ctx, Authenticated(a.ID), "603", "")
	if !errors.Is(err, ErrInternal) || Message(err) != "Failed to add to watchlist." {
		t.Errorf("unexpected error %v", err)
	}
}
