package core

import (
	"errors"
	"testing"

	"github.com/dkeye/meshcall/internal/domain"
)

type fakeConn struct {
	frames []Frame
	full   bool
}

func (c *fakeConn) TrySend(f Frame) error {
	if c.full {
		return errors.New("backpressure")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func addMember(r RoomService, id domain.ParticipantID, c *fakeConn) {
	r.AddMember(NewMemberSession(domain.NewMember(id, r.Room().Name), c))
}

func TestRoomBroadcastSkipsSender(t *testing.T) {
	room := NewRoomService(&domain.Room{Name: "main"})
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{full: true}
	addMember(room, "a", a)
	addMember(room, "b", b)
	addMember(room, "c", c)

	res := room.Broadcast("a", Frame("hi"))
	if res.SendTo != 1 || len(res.Dropped) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(a.frames) != 0 || len(b.frames) != 1 {
		t.Fatalf("sender must be skipped: a=%d b=%d", len(a.frames), len(b.frames))
	}
	if res.Dropped[0].Meta().ID != "c" {
		t.Fatalf("expected c dropped, got %s", res.Dropped[0].Meta().ID)
	}
}

func TestRoomSendTo(t *testing.T) {
	room := NewRoomService(&domain.Room{Name: "main"})
	a := &fakeConn{}
	addMember(room, "a", a)

	if res := room.SendTo("a", Frame("x")); res.SendTo != 1 {
		t.Fatalf("expected delivery, got %+v", res)
	}
	if res := room.SendTo("ghost", Frame("x")); res.SendTo != 0 || len(res.Dropped) != 0 {
		t.Fatalf("unknown member must be a no-op, got %+v", res)
	}

	room.RemoveMember("a")
	if room.MemberCount() != 0 {
		t.Fatalf("expected empty room")
	}
}

func TestRoomMemberIDsSorted(t *testing.T) {
	room := NewRoomService(&domain.Room{Name: "main"})
	for _, id := range []domain.ParticipantID{"c", "a", "b"} {
		addMember(room, id, &fakeConn{})
	}
	ids := room.MemberIDs()
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Fatalf("unexpected ids %v", ids)
	}
}
