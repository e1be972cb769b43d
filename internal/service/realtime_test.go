package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/user/cinelog/internal/model"
	"github.com/user/cinelog/internal/testutil"
)

func receive(t *testing.T, s *Subscription) (HubMessage, bool) {
	t.Helper()
	select {
	case m, ok := <-s.C:
		return m, ok
	case <-time.After(100 * time.Millisecond):
		return HubMessage{}, false
	}
}

func TestHub(t *testing.T) {
	t.Run("TopicMatching", func(t *testing.T) {
		h := NewHub()
		one := h.Subscribe(AttendanceTopic(1))
		all := h.Subscribe(AttendanceWildcardTopic)
		defer one.Close()
		defer all.Close()

		if err := h.Publish(AttendanceTopic(1), RealtimeEvent{Action: RealtimeCreate, Record: map[string]int{"id": 1}}); err != nil {
			t.Fatal(err)
		}
		msg, ok := receive(t, one)
		if !ok || msg.Topic != "watch_history_user/1" {
			t.Fatalf("record subscriber missed message: %+v", msg)
		}
		var ev struct {
			Action string         `json:"action"`
			Record map[string]int `json:"record"`
		}
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			t.Fatal(err)
		}
		if ev.Action != "create" || ev.Record["id"] != 1 {
			t.Errorf("unexpected payload %+v", ev)
		}

		if _, ok := receive(t, all); ok {
			t.Error("wildcard subscriber only receives wildcard publishes")
		}

		_ = h.Publish(AttendanceWildcardTopic, RealtimeEvent{Action: RealtimeDelete})
		if _, ok := receive(t, all); !ok {
			t.Error("wildcard subscriber missed wildcard message")
		}
	})

	t.Run("SlowSubscriberSkipped", func(t *testing.T) {
		h := NewHub()
		s := h.Subscribe("t")
		defer s.Close()

		done := make(chan struct{})
		go func() {
			for i := 0; i < 100; i++ {
				_ = h.Publish("t", i)
			}
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish blocked on a full subscriber")
		}
		if len(s.C) != cap(s.C) {
			t.Errorf("expected a full buffer, got %d/%d", len(s.C), cap(s.C))
		}
	})

	t.Run("Close", func(t *testing.T) {
		h := NewHub()
		s := h.Subscribe("t")
		if h.Subscribers() != 1 {
			t.Fatal("expected one subscriber")
		}
		s.Close()
		s.Close()
		if h.Subscribers() != 0 {
			t.Error("subscriber not removed")
		}
		if _, ok := <-s.C; ok {
			t.Error("channel should be closed")
		}
		if err := h.Publish("t", "x"); err != nil {
			t.Error(err)
		}
	})

	t.Run("RawPayloadPassThrough", func(t *testing.T) {
		h := NewHub()
		s := h.Subscribe("t")
		defer s.Close()
		_ = h.Publish("t", json.RawMessage(`{"action":"update"}`))
		msg, _ := receive(t, s)
		if string(msg.Data) != `{"action":"update"}` {
			t.Errorf("raw payload should be forwarded as is, got %s", msg.Data)
		}
	})
}

func TestRealtimeGate(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemStore()
	owner := mem.AddUser("owner@example.com", "Owner")
	guest := mem.AddUser("guest@example.com", "Guest")
	stranger := mem.AddUser("stranger@example.com", "Stranger")
	private := mem.AddList(owner.ID, "Secret", true)
	public := mem.AddList(owner.ID, "Open", false)
	mem.AddMembership(private.ID, guest.ID, model.PermissionView)
	movie := mem.AddMovie("603", "The Matrix", "")
	hidden := mem.AddHistory(private.ID, movie.ID)
	shown := mem.AddHistory(public.ID, movie.ID)

	stores := newStores(mem)
	gate := NewRealtimeGate(stores.History, NewAccessResolver(stores.Lists, stores.Memberships))

	hub := NewHub()
	sub := hub.Subscribe(AttendanceWildcardTopic)
	defer sub.Close()
	message := func(historyID int) HubMessage {
		t.Helper()
		a := &model.Attendance{ID: 1, WatchedHistoryID: historyID, UserID: owner.ID, Review: "secret"}
		if err := hub.Publish(AttendanceWildcardTopic, RealtimeEvent{Action: RealtimeCreate, Record: a}); err != nil {
			t.Fatal(err)
		}
		msg, ok := receive(t, sub)
		if !ok {
			t.Fatal("message not delivered")
		}
		return msg
	}

	privateMsg := message(hidden.ID)
	publicMsg := message(shown.ID)

	cases := []struct {
		name   string
		msg    HubMessage
		caller Caller
		want   bool
	}{
		{"OwnerSeesPrivate", privateMsg, Authenticated(owner.ID), true},
		{"MemberSeesPrivate", privateMsg, Authenticated(guest.ID), true},
		{"StrangerMissesPrivate", privateMsg, Authenticated(stranger.ID), false},
		{"StrangerSeesPublic", publicMsg, Authenticated(stranger.ID), true},
		{"UnknownHistory", message(9999), Authenticated(owner.ID), false},
		{"Malformed", HubMessage{Data: json.RawMessage(`"x"`)}, Authenticated(owner.ID), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := gate.Allow(ctx, tc.msg, tc.caller); got != tc.want {
				t.Errorf("Allow = %v, want %v", got, tc.want)
			}
		})
	}
}
