package app

import (
	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/dkeye/meshcall/internal/protocol"
)

type event interface{}

// API calls.
type (
	joinRequest   struct{}
	leaveRequest  struct{}
	toggleRequest struct {
		kind    domain.TrackKind // empty means every track
		enabled bool
	}
)

type joinResult struct {
	gen   uint64
	self  domain.ParticipantID
	local core.LocalStream
	err   error
}

// Channel events carry the session generation they belong to.
type (
	rosterEvent struct {
		gen uint64
		ids []domain.ParticipantID
	}
	participantJoinedEvent struct {
		gen uint64
		id  domain.ParticipantID
	}
	participantLeftEvent struct {
		gen uint64
		id  domain.ParticipantID
	}
	signalEvent struct {
		gen      uint64
		to, from domain.ParticipantID
		payload  protocol.Payload
	}
	channelClosedEvent struct {
		gen uint64
		err error
	}
)

// Peer events carry the emitting connection.
type (
	peerSignalEvent struct {
		gen     uint64
		conn    core.PeerConnection
		payload protocol.Payload
	}
	peerConnectedEvent struct {
		gen  uint64
		conn core.PeerConnection
	}
	peerStreamEvent struct {
		gen    uint64
		conn   core.PeerConnection
		stream core.StreamHandle
	}
	peerFailedEvent struct {
		gen  uint64
		conn core.PeerConnection
		err  error
	}
)

// sessionSink turns channel callbacks into mailbox events.
type sessionSink struct {
	box *mailbox
	gen uint64
}

func (s sessionSink) Roster(ids []domain.ParticipantID) {
	s.box.post(rosterEvent{gen: s.gen, ids: ids})
}

func (s sessionSink) ParticipantJoined(id domain.ParticipantID) {
	s.box.post(participantJoinedEvent{gen: s.gen, id: id})
}

func (s sessionSink) ParticipantLeft(id domain.ParticipantID) {
	s.box.post(participantLeftEvent{gen: s.gen, id: id})
}

func (s sessionSink) Signal(to, from domain.ParticipantID, payload protocol.Payload) {
	s.box.post(signalEvent{gen: s.gen, to: to, from: from, payload: payload})
}

func (s sessionSink) ChannelClosed(err error) {
	s.box.post(channelClosedEvent{gen: s.gen, err: err})
}

// peerObserver turns peer callbacks into mailbox events.
type peerObserver struct {
	box *mailbox
	gen uint64
}

func (o peerObserver) PeerSignal(p core.PeerConnection, payload protocol.Payload) {
	o.box.post(peerSignalEvent{gen: o.gen, conn: p, payload: payload})
}

func (o peerObserver) PeerConnected(p core.PeerConnection) {
	o.box.post(peerConnectedEvent{gen: o.gen, conn: p})
}

func (o peerObserver) PeerRemoteStream(p core.PeerConnection, stream core.StreamHandle) {
	o.box.post(peerStreamEvent{gen: o.gen, conn: p, stream: stream})
}

func (o peerObserver) PeerFailed(p core.PeerConnection, err error) {
	o.box.post(peerFailedEvent{gen: o.gen, conn: p, err: err})
}
