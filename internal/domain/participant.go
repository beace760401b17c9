// Package domain contains entities without logic, just meta-data
package domain

import "github.com/google/uuid"

// ParticipantID identifies one endpoint of a call. Assigned by the relay,
// unique per relay connection.
type ParticipantID string

func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.NewString())
}

func (id ParticipantID) String() string { return string(id) }

type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "responder"
}

type NegotiationState int32

const (
	NegotiationNew NegotiationState = iota
	NegotiationNegotiating
	NegotiationConnected
	NegotiationClosed
)

func (s NegotiationState) String() string {
	switch s {
	case NegotiationNew:
		return "new"
	case NegotiationNegotiating:
		return "negotiating"
	case NegotiationConnected:
		return "connected"
	case NegotiationClosed:
		return "closed"
	}
	return "unknown"
}

type SessionState int

const (
	SessionIdle SessionState = iota
	SessionJoining
	SessionActive
	SessionLeaving
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionJoining:
		return "joining"
	case SessionActive:
		return "active"
	case SessionLeaving:
		return "leaving"
	}
	return "unknown"
}

type TrackKind string

const (
	TrackAudio TrackKind = "audio"
	TrackVideo TrackKind = "video"
)
