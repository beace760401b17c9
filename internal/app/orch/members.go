package orch

import (
	"context"
	"sync"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/rs/zerolog/log"
)

type memberEntry struct {
	Room    domain.RoomName
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Members maps connected participants to their room and transport.
type Members struct {
	mu   sync.RWMutex
	byID map[domain.ParticipantID]*memberEntry
}

func NewMembers() *Members {
	return &Members{byID: make(map[domain.ParticipantID]*memberEntry)}
}

func (r *Members) Bind(sess core.MemberSession, cancel context.CancelFunc) {
	meta := sess.Meta()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[meta.ID] = &memberEntry{Room: meta.Room, Session: sess, Cancel: cancel}
	log.Info().Str("module", "orch.members").Str("id", string(meta.ID)).Str("room", string(meta.Room)).Msg("bound member")
}

func (r *Members) Get(id domain.ParticipantID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byID[id]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Members) RoomOf(id domain.ParticipantID) (domain.RoomName, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return e.Room, true
}

// Unbind reports whether the member was bound.
func (r *Members) Unbind(id domain.ParticipantID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	log.Info().Str("module", "orch.members").Str("id", string(id)).Msg("unbound member")
	return true
}

// Cancel stops the member's connection pumps.
func (r *Members) Cancel(id domain.ParticipantID) bool {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "orch.members").Str("id", string(id)).Msg("canceled member")
	return true
}

func (r *Members) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
