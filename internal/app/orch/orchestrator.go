// Package orch coordinates relay membership and message fan-out.
package orch

import (
	"fmt"
	"sync"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/dkeye/meshcall/internal/metrics"
	"github.com/dkeye/meshcall/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Delivery selects how signal frames reach their recipient.
type Delivery int

const (
	// DeliverDirect sends a signal only to its addressee.
	DeliverDirect Delivery = iota
	// DeliverBroadcast fans a signal out to the whole room; clients filter by "to".
	DeliverBroadcast
)

func ParseDelivery(s string) (Delivery, error) {
	switch s {
	case "", "direct":
		return DeliverDirect, nil
	case "broadcast":
		return DeliverBroadcast, nil
	}
	return DeliverDirect, fmt.Errorf("unknown signal delivery %q", s)
}

type Orchestrator struct {
	Members  *Members
	Rooms    core.RoomManager
	Policy   Policy
	Delivery Delivery
	Metrics  *metrics.Relay

	// membership changes are serialized so rosters and announcements agree
	mu sync.Mutex
}

func New(rooms core.RoomManager, policy Policy, delivery Delivery, m *metrics.Relay) *Orchestrator {
	return &Orchestrator{
		Members:  NewMembers(),
		Rooms:    rooms,
		Policy:   policy,
		Delivery: delivery,
		Metrics:  m,
	}
}

// Join introduces the member to its room and announces it to the others.
// The introduction is queued before any other frame can reach the member.
func (o *Orchestrator) Join(sess core.MemberSession, cancel func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	meta := sess.Meta()
	room := o.Rooms.GetOrCreate(meta.Room)
	others := room.MemberIDs()

	intro, err := protocol.Encode(protocol.Introduction(meta.ID, others))
	if err != nil {
		return err
	}
	if err := sess.Signal().TrySend(intro); err != nil {
		return err
	}

	o.Members.Bind(sess, cancel)
	room.AddMember(sess)
	o.updateRooms()

	announce, _ := protocol.Encode(protocol.NewUserConnected(meta.ID))
	o.handleResult(room, room.Broadcast(meta.ID, announce))
	log.Info().Str("module", "orch").Str("id", string(meta.ID)).Str("room", string(meta.Room)).Int("others", len(others)).Msg("joined")
	return nil
}

// Leave removes the member and tells the room. Unknown ids are ignored.
func (o *Orchestrator) Leave(id domain.ParticipantID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	roomName, ok := o.Members.RoomOf(id)
	if !ok {
		return
	}
	o.Members.Unbind(id)
	room, ok := o.Rooms.Get(roomName)
	if !ok {
		return
	}
	room.RemoveMember(id)

	gone, _ := protocol.Encode(protocol.UserDisconnected(id))
	o.handleResult(room, room.Broadcast(id, gone))
	o.Rooms.StopRoom(roomName)
	o.updateRooms()
	log.Info().Str("module", "orch").Str("id", string(id)).Str("room", string(roomName)).Msg("left")
}

// Relay forwards a signal from a member. The sender is stamped by the relay,
// whatever the client put in "from".
func (o *Orchestrator) Relay(from domain.ParticipantID, msg protocol.Message) {
	roomName, ok := o.Members.RoomOf(from)
	if !ok {
		return
	}
	room, ok := o.Rooms.Get(roomName)
	if !ok {
		return
	}
	msg.From = from
	frame, err := protocol.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode signal")
		return
	}

	var res core.PublishResult
	if o.Delivery == DeliverDirect {
		res = room.SendTo(msg.To, frame)
		if res.SendTo == 0 && len(res.Dropped) == 0 {
			log.Debug().Str("module", "orch").Str("from", string(from)).Str("to", string(msg.To)).Msg("signal recipient not in room")
			o.Metrics.Dropped.Inc()
		}
	} else {
		res = room.Broadcast(from, frame)
	}
	o.handleResult(room, res)
}

func (o *Orchestrator) handleResult(room core.RoomService, res core.PublishResult) {
	if len(res.Dropped) == 0 {
		return
	}
	o.Metrics.Dropped.Add(float64(len(res.Dropped)))
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case KickMember:
			id := slow.Meta().ID
			log.Warn().Str("module", "orch").Str("id", string(id)).Msg("kicking slow member")
			o.Metrics.Kicked.Inc()
			o.Members.Cancel(id)
		case MarkSlow, DropFrame, NoAction:
		}
	}
}

func (o *Orchestrator) updateRooms() {
	o.Metrics.Rooms.Set(float64(len(o.Rooms.List())))
}
