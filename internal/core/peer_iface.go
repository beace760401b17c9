package core

import (
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/dkeye/meshcall/internal/protocol"
)

// PeerConnection is one point-to-point media link to a single remote participant.
type PeerConnection interface {
	ID() domain.ParticipantID
	Role() domain.Role
	State() domain.NegotiationState
	// Start begins negotiation. Responders ignore it and wait for IngestSignal.
	Start() error
	// IngestSignal feeds a remote negotiation payload. No-op once closed.
	IngestSignal(payload protocol.Payload)
	// Close is idempotent; no events are emitted afterwards.
	Close()
}

// PeerObserver receives the callbacks of a PeerConnection. Calls may come
// from any goroutine.
type PeerObserver interface {
	PeerSignal(p PeerConnection, payload protocol.Payload)
	PeerConnected(p PeerConnection)
	PeerRemoteStream(p PeerConnection, stream StreamHandle)
	PeerFailed(p PeerConnection, err error)
}

type PeerSpec struct {
	Self     domain.ParticipantID
	Remote   domain.ParticipantID
	Role     domain.Role
	Local    LocalStream
	Observer PeerObserver
}

type PeerFactory interface {
	NewPeer(spec PeerSpec) (PeerConnection, error)
}
