package service

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/user/cinelog/internal/model"
	"github.com/user/cinelog/internal/testutil"
)

func newStores(mem *testutil.MemStore) Stores {
	return Stores{
		Users:       mem.Users,
		Lists:       mem.Lists,
		Memberships: mem.Memberships,
		Movies:      mem.Movies,
		History:     mem.History,
		Attendance:  mem.Attendance,
		Feed:        mem.Feed,
	}
}

func idStr(id int) string {
	return strconv.Itoa(id)
}

func TestAccessResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("PublicListVisibleToAnyone", func(t *testing.T) {
		mem := testutil.NewMemStore()
		owner := mem.AddUser("owner@example.com", "Owner")
		stranger := mem.AddUser("stranger@example.com", "Stranger")
		list := mem.AddList(owner.ID, "Public", false)
		r := NewAccessResolver(mem.Lists, mem.Memberships)

		for name, caller := range map[string]Caller{
			"anonymous": Anonymous,
			"stranger":  Authenticated(stranger.ID),
			"owner":     Authenticated(owner.ID),
		} {
			access, err := r.Resolve(ctx, idStr(list.ID), caller)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", name, err)
			}
			if !access.HasAccess {
				t.Errorf("%s: expected access to public list", name)
			}
			if access.Err() != nil {
				t.Errorf("%s: Err() should be nil when access is granted", name)
			}
		}
	})

	t.Run("PrivateListDeniedForStranger", func(t *testing.T) {
		mem := testutil.NewMemStore()
		owner := mem.AddUser("owner@example.com", "Owner")
		stranger := mem.AddUser("stranger@example.com", "Stranger")
		list := mem.AddList(owner.ID, "Secret", true)
		r := NewAccessResolver(mem.Lists, mem.Memberships)

		for name, caller := range map[string]Caller{
			"anonymous": Anonymous,
			"stranger":  Authenticated(stranger.ID),
		} {
			access, err := r.Resolve(ctx, idStr(list.ID), caller)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", name, err)
			}
			if access.HasAccess || access.IsOwner {
				t.Errorf("%s: expected no access, got %+v", name, access)
			}
			if access.Reason != "You do not have permission to view this list." {
				t.Errorf("%s: unexpected reason %q", name, access.Reason)
			}
			if !errors.Is(access.Err(), ErrAccessDenied) {
				t.Errorf("%s: Err() should be ErrAccessDenied", name)
			}
		}
	})

	t.Run("OwnerAndMember", func(t *testing.T) {
		mem := testutil.NewMemStore()
		owner := mem.AddUser("owner@example.com", "Owner")
		member := mem.AddUser("member@example.com", "Member")
		list := mem.AddList(owner.ID, "Secret", true)
		mem.AddMembership(list.ID, member.ID, model.PermissionView)
		r := NewAccessResolver(mem.Lists, mem.Memberships)

		access, err := r.Resolve(ctx, idStr(list.ID), Authenticated(owner.ID))
		if err != nil {
			t.Fatal(err)
		}
		if !access.HasAccess || !access.IsOwner {
			t.Errorf("owner should have access and ownership, got %+v", access)
		}

		access, err = r.Resolve(ctx, idStr(list.ID), Authenticated(member.ID))
		if err != nil {
			t.Fatal(err)
		}
		if !access.HasAccess || access.IsOwner {
			t.Errorf("member should have access without ownership, got %+v", access)
		}
		if !r.IsMember(ctx, list.ID, Authenticated(member.ID)) {
			t.Error("IsMember should report the membership")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		mem := testutil.NewMemStore()
		owner := mem.AddUser("owner@example.com", "Owner")
		list := mem.AddList(owner.ID, "Gone", false)
		deleted := *list
		deleted.IsDeleted = true
		if err := mem.Lists.Update(ctx, &deleted); err != nil {
			t.Fatal(err)
		}
		r := NewAccessResolver(mem.Lists, mem.Memberships)

		for _, id := range []string{idStr(list.ID), "999", "abc", "", "-1"} {
			_, err := r.Resolve(ctx, id, Authenticated(owner.ID))
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("id %q: expected ErrNotFound, got %v", id, err)
			}
			if Message(err) != "List not found." {
				t.Errorf("id %q: unexpected message %q", id, Message(err))
			}
		}
	})

	t.Run("MembershipLookupFailureDenies", func(t *testing.T) {
		mem := testutil.NewMemStore()
		owner := mem.AddUser("owner@example.com", "Owner")
		member := mem.AddUser("member@example.com", "Member")
		list := mem.AddList(owner.ID, "Secret", true)
		mem.AddMembership(list.ID, member.ID, model.PermissionView)
		mem.Fail["memberships.Find"] = errors.New("connection reset")
		r := NewAccessResolver(mem.Lists, mem.Memberships)

		access, err := r.Resolve(ctx, idStr(list.ID), Authenticated(member.ID))
		if err != nil {
			t.Fatalf("lookup failure must not surface as error: %v", err)
		}
		if access.HasAccess {
			t.Error("lookup failure must be treated as no membership")
		}
		if access.Reason != PermissionDeniedMessage {
			t.Errorf("unexpected reason %q", access.Reason)
		}
	})
}

// 所有者创建私有清单 -> 陌生人被拒 -> 邀请后可见 -> 删除后所有人都找不到
func TestAccessScenarioInviteThenDelete(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemStore()
	o := mem.AddUser("o@example.com", "O")
	u := mem.AddUser("u@example.com", "U")
	stores := newStores(mem)
	resolver := NewAccessResolver(mem.Lists, mem.Memberships)
	dispatcher := NewDispatcher(stores, nil)
	watchlists := NewWatchlistService(stores)

	list, err := watchlists.Create(ctx, Authenticated(o.ID), "Favorites", "", false)
	if err != nil {
		t.Fatal(err)
	}
	if !list.IsPrivate {
		t.Fatal("list created without is_public should be private")
	}

	access, err := resolver.Resolve(ctx, idStr(list.ID), Authenticated(u.ID))
	if err != nil {
		t.Fatal(err)
	}
	if access.HasAccess || access.Reason != PermissionDeniedMessage {
		t.Fatalf("expected denial before invite, got %+v", access)
	}

	res := dispatcher.Dispatch(ctx, ActionInviteUser, list, true, Authenticated(o.ID), Params{"email": u.Email, "permission": "view"})
	if res.Error != "" {
		t.Fatalf("invite failed: %s", res.Error)
	}

	access, err = resolver.Resolve(ctx, idStr(list.ID), Authenticated(u.ID))
	if err != nil {
		t.Fatal(err)
	}
	if !access.HasAccess || access.IsOwner {
		t.Fatalf("expected access without ownership after invite, got %+v", access)
	}

	res = dispatcher.Dispatch(ctx, ActionDeleteList, list, true, Authenticated(o.ID), Params{})
	if res.Redirect != "/watchlists" {
		t.Fatalf("expected redirect to /watchlists, got %+v", res)
	}

	for _, caller := range []Caller{Authenticated(o.ID), Authenticated(u.ID), Anonymous} {
		if _, err := resolver.Resolve(ctx, idStr(list.ID), caller); !errors.Is(err, ErrNotFound) {
			t.Errorf("caller %+v: expected ErrNotFound after delete, got %v", caller, err)
		}
	}
}
