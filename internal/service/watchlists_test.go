package service

import (
	"context"
	"errors"
	"testing"

	"github.com/user/cinelog/internal/model"
	"github.com/user/cinelog/internal/testutil"
)

func TestListForUser(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemStore()
	a := mem.AddUser("a@example.com", "A")
	b := mem.AddUser("b@example.com", "B")
	own1 := mem.AddList(a.ID, "Mine", true)
	own2 := mem.AddList(a.ID, "Mine too", false)
	shared := mem.AddList(b.ID, "Shared", true)
	gone := mem.AddList(b.ID, "Gone", true)
	mem.AddMembership(shared.ID, a.ID, model.PermissionView)
	mem.AddMembership(gone.ID, a.ID, model.PermissionView)
	mem.AddMembership(own1.ID, a.ID, model.PermissionEdit)
	g, _ := mem.Lists.FindActive(ctx, gone.ID)
	g.IsDeleted = true
	_ = mem.Lists.Update(ctx, g)

	s := NewWatchlistService(newStores(mem))
	lists, err := s.ListForUser(ctx, Authenticated(a.ID))
	if err != nil {
		t.Fatal(err)
	}
	ids := []int{}
	for _, l := range lists {
		ids = append(ids, l.ID)
	}
	want := []int{own2.ID, own1.ID, shared.ID}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}

	lists, err = s.ListForUser(ctx, Anonymous)
	if err != nil || len(lists) != 0 {
		t.Errorf("anonymous caller should get no lists, got %v %v", lists, err)
	}
}

func TestCreateList(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemStore()
	a := mem.AddUser("a@example.com", "A")
	s := NewWatchlistService(newStores(mem))

	l, err := s.Create(ctx, Authenticated(a.ID), "  Horror  ", "scary", true)
	if err != nil {
		t.Fatal(err)
	}
	if l.Title != "Horror" || l.OwnerID != a.ID || l.IsPrivate {
		t.Errorf("unexpected list %+v", l)
	}

	if _, err := s.Create(ctx, Authenticated(a.ID), "", "", false); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := s.Create(ctx, Anonymous, "x", "", false); !errors.Is(err, ErrAuthRequired) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestMoviesPagination(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemStore()
	a := mem.AddUser("a@example.com", "A")
	l := mem.AddList(a.ID, "List", false)
	var last *model.WatchedHistoryItem
	for i := 0; i < 5; i++ {
		m := mem.AddMovie(idStr(i+1), "Movie", "")
		last = mem.AddHistory(l.ID, m.ID)
	}
	s := NewWatchlistService(newStores(mem))

	page, err := s.Movies(ctx, l.ID, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 || !page.HasMore {
		t.Fatalf("unexpected first page %+v", page)
	}
	if page.Items[0].HistoryID != last.ID {
		t.Error("newest item should come first")
	}

	page, _ = s.Movies(ctx, l.ID, 3, 2)
	if len(page.Items) != 1 || page.HasMore {
		t.Errorf("unexpected last page %+v", page)
	}

	page, _ = s.Movies(ctx, l.ID, 0, 1000)
	if page.Page != 1 || page.Limit != MaxPageLimit || len(page.Items) != 5 || page.HasMore {
		t.Errorf("page and limit should be clamped, got %+v", page)
	}

	page, _ = s.Movies(ctx, l.ID, 1, 0)
	if page.Limit != DefaultPageLimit {
		t.Errorf("expected default limit, got %d", page.Limit)
	}
}

func TestAttachAttendance(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemStore()
	a := mem.AddUser("a@example.com", "A")
	b := mem.AddUser("b@example.com", "B")
	l := mem.AddList(a.ID, "List", false)
	m1 := mem.AddMovie("1", "One", "")
	m2 := mem.AddMovie("2", "Two", "")
	h1 := mem.AddHistory(l.ID, m1.ID)
	mem.AddHistory(l.ID, m2.ID)
	mem.AddAttendance(h1.ID, a.ID, 8, "good")
	mem.AddAttendance(h1.ID, b.ID, 4, "")
	s := NewWatchlistService(newStores(mem))

	page, _ := s.Movies(ctx, l.ID, 1, 10)
	if err := s.AttachAttendance(ctx, page.Items); err != nil {
		t.Fatal(err)
	}
	for _, e := range page.Items {
		switch e.HistoryID {
		case h1.ID:
			if len(e.Attendance) != 2 || e.Attendance[a.ID].Review != "good" || e.Attendance[b.ID].Rating != 4 {
				t.Errorf("unexpected attendance %+v", e.Attendance)
			}
		default:
			if len(e.Attendance) != 0 {
				t.Errorf("unexpected attendance on other row %+v", e.Attendance)
			}
		}
	}
}

func TestMembersAndCandidates(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemStore()
	owner := mem.AddUser("o@example.com", "Owner")
	v := mem.AddUser("v@example.com", "Viewer")
	e := mem.AddUser("e@example.com", "")
	mem.AddUser("x@example.com", "Other")
	l := mem.AddList(owner.ID, "List", true)
	mem.AddMembership(l.ID, v.ID, model.PermissionView)
	mem.AddMembership(l.ID, e.ID, model.PermissionEdit)
	mem.AddMembership(l.ID, owner.ID, model.PermissionView)
	s := NewWatchlistService(newStores(mem))

	members, err := s.Members(ctx, l)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 3 || !members[0].IsOwner || members[0].ID != owner.ID {
		t.Fatalf("owner should come first without duplicates, got %+v", members)
	}

	cands, err := s.InviteCandidates(ctx, l, Authenticated(owner.ID), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 3 {
		t.Fatalf("expected all users except the owner, got %+v", cands)
	}
	byEmail := map[string]model.InviteCandidate{}
	for _, c := range cands {
		byEmail[c.Email] = c
	}
	if !byEmail["v@example.com"].IsInvited || byEmail["v@example.com"].CurrentPermission != "view" {
		t.Errorf("viewer should be marked invited: %+v", byEmail["v@example.com"])
	}
	if byEmail["e@example.com"].CurrentPermission != "edit" {
		t.Errorf("editor permission missing: %+v", byEmail["e@example.com"])
	}
	if byEmail["x@example.com"].IsInvited {
		t.Error("uninvited user marked invited")
	}

	cands, _ = s.InviteCandidates(ctx, l, Authenticated(v.ID), false)
	if len(cands) != 0 {
		t.Error("non-owners get no candidates")
	}
}

func TestProfileUpdate(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemStore()
	u := mem.AddUser("a@example.com", "Old")
	s := NewProfileService(mem.Users)

	got, err := s.Update(ctx, Authenticated(u.ID), ProfileInput{Bio: "hi", Avatar: "https://img.example.com/a.png"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Old" || got.Bio != "hi" || got.Avatar != "https://img.example.com/a.png" {
		t.Errorf("unexpected profile %+v", got)
	}

	if _, err := s.Update(ctx, Authenticated(u.ID), ProfileInput{Avatar: "javascript:alert(1)"}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for avatar, got %v", err)
	}
	if _, err := s.Update(ctx, Anonymous, ProfileInput{Name: "x"}); !errors.Is(err, ErrAuthRequired) {
		t.Errorf("expected auth error, got %v", err)
	}
}
