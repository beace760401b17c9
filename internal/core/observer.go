package core

import "github.com/dkeye/meshcall/internal/domain"

// Observer is the UI collaborator. Every method is invoked from the session
// controller loop, one at a time.
type Observer interface {
	ParticipantJoined(id domain.ParticipantID)
	ParticipantLeft(id domain.ParticipantID)
	RemoteStreamUpdated(id domain.ParticipantID, stream StreamHandle)
	LocalStreamReady(stream StreamHandle)
	Error(kind domain.ErrorKind, detail string)
	StateChanged(state domain.SessionState)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) ParticipantJoined(domain.ParticipantID)                 {}
func (NopObserver) ParticipantLeft(domain.ParticipantID)                   {}
func (NopObserver) RemoteStreamUpdated(domain.ParticipantID, StreamHandle) {}
func (NopObserver) LocalStreamReady(StreamHandle)                          {}
func (NopObserver) Error(domain.ErrorKind, string)                         {}
func (NopObserver) StateChanged(domain.SessionState)                       {}
