package core

import (
	"errors"

	"github.com/dkeye/meshcall/internal/domain"
)

var ErrNotMember = errors.New("not a room member")

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// RoomService is the core-facing API of a relay room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	MemberIDs() []domain.ParticipantID

	AddMember(ms MemberSession)
	RemoveMember(id domain.ParticipantID)
	Broadcast(from domain.ParticipantID, data Frame) PublishResult
	SendTo(to domain.ParticipantID, data Frame) PublishResult
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}

type RoomManager interface {
	GetOrCreate(name domain.RoomName) RoomService
	Get(name domain.RoomName) (RoomService, bool)
	List() []RoomInfo
	// StopRoom drops the room if it has no members left.
	StopRoom(name domain.RoomName)
}
