package core

import (
	"context"

	"github.com/dkeye/meshcall/internal/domain"
	"github.com/dkeye/meshcall/internal/protocol"
)

// Frame is a raw encoded relay message.
type Frame []byte

// SignalConnection abstracts the relay-side messaging transport of one member.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// SignalingChannel is the client side of the relay connection.
type SignalingChannel interface {
	// Connect opens the channel and returns the id the relay assigned to us.
	// Events are delivered to sink until Disconnect or connection loss.
	Connect(ctx context.Context, endpoint string, sink SignalSink) (domain.ParticipantID, error)
	SendSignal(to, from domain.ParticipantID, payload protocol.Payload) error
	// Disconnect is idempotent.
	Disconnect()
}

// SignalSink receives inbound relay events in delivery order.
type SignalSink interface {
	Roster(ids []domain.ParticipantID)
	ParticipantJoined(id domain.ParticipantID)
	ParticipantLeft(id domain.ParticipantID)
	Signal(to, from domain.ParticipantID, payload protocol.Payload)
	ChannelClosed(err error)
}
