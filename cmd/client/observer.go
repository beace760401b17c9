package main

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
)

// logObserver prints session events. idle fires once the session drops back
// to Idle after a join attempt.
type logObserver struct {
	onLocal func()
	idle    chan struct{}
	joined  bool
}

func newLogObserver() *logObserver {
	return &logObserver{idle: make(chan struct{}, 1)}
}

func (o *logObserver) ParticipantJoined(id domain.ParticipantID) {
	log.Info().Str("module", "client").Str("id", string(id)).Msg("participant joined")
}

func (o *logObserver) ParticipantLeft(id domain.ParticipantID) {
	log.Info().Str("module", "client").Str("id", string(id)).Msg("participant left")
}

func (o *logObserver) RemoteStreamUpdated(id domain.ParticipantID, stream core.StreamHandle) {
	log.Info().Str("module", "client").Str("id", string(id)).Str("stream", stream.ID()).Msg("remote stream")
}

func (o *logObserver) LocalStreamReady(stream core.StreamHandle) {
	log.Info().Str("module", "client").Str("stream", stream.ID()).Msg("local stream ready")
	if o.onLocal != nil {
		o.onLocal()
	}
}

func (o *logObserver) Error(kind domain.ErrorKind, detail string) {
	log.Error().Str("module", "client").Str("kind", string(kind)).Msg(detail)
}

func (o *logObserver) StateChanged(state domain.SessionState) {
	log.Info().Str("module", "client").Str("state", state.String()).Msg("session state")
	switch state {
	case domain.SessionJoining:
		o.joined = true
	case domain.SessionIdle:
		if !o.joined {
			return
		}
		select {
		case o.idle <- struct{}{}:
		default:
		}
	}
}
