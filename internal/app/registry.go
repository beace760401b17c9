package app

import (
	"sort"
	"sync"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/dkeye/meshcall/internal/protocol"
	"github.com/rs/zerolog/log"
)

type peerEntry struct {
	Conn   core.PeerConnection
	Stream core.StreamHandle
}

// PeerRegistry holds at most one PeerConnection per remote participant.
type PeerRegistry struct {
	factory  core.PeerFactory
	self     domain.ParticipantID
	local    core.LocalStream
	observer core.PeerObserver

	mu    sync.RWMutex
	peers map[domain.ParticipantID]*peerEntry
}

func NewPeerRegistry(factory core.PeerFactory, self domain.ParticipantID, local core.LocalStream, observer core.PeerObserver) *PeerRegistry {
	return &PeerRegistry{
		factory:  factory,
		self:     self,
		local:    local,
		observer: observer,
		peers:    make(map[domain.ParticipantID]*peerEntry),
	}
}

// getOrCreate reports whether a new connection was inserted.
func (r *PeerRegistry) getOrCreate(id domain.ParticipantID, role domain.Role) (core.PeerConnection, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.peers[id]; ok {
		return e.Conn, false, nil
	}
	conn, err := r.factory.NewPeer(core.PeerSpec{
		Self:     r.self,
		Remote:   id,
		Role:     role,
		Local:    r.local,
		Observer: r.observer,
	})
	if err != nil {
		return nil, false, err
	}
	r.peers[id] = &peerEntry{Conn: conn}
	log.Info().Str("module", "app.registry").Str("id", string(id)).Str("role", role.String()).Msg("peer added")
	return conn, true, nil
}

// UpsertInitiator creates and starts an initiator for id unless one exists.
func (r *PeerRegistry) UpsertInitiator(id domain.ParticipantID) (bool, error) {
	conn, created, err := r.getOrCreate(id, domain.RoleInitiator)
	if err != nil || !created {
		return false, err
	}
	if err := conn.Start(); err != nil {
		r.Evict(id, conn)
		return false, err
	}
	return true, nil
}

// UpsertResponderOnSignal forwards payload to the connection for id,
// creating a responder first when none exists.
func (r *PeerRegistry) UpsertResponderOnSignal(id domain.ParticipantID, payload protocol.Payload) (bool, error) {
	conn, created, err := r.getOrCreate(id, domain.RoleResponder)
	if err != nil {
		return false, err
	}
	conn.IngestSignal(payload)
	return created, nil
}

func (r *PeerRegistry) Get(id domain.ParticipantID) (core.PeerConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.peers[id]; ok {
		return e.Conn, true
	}
	return nil, false
}

// Owns reports whether conn is the live entry for its id.
func (r *PeerRegistry) Owns(conn core.PeerConnection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.peers[conn.ID()]
	return ok && e.Conn == conn
}

// AttachStream records the remote stream of a live connection.
func (r *PeerRegistry) AttachStream(conn core.PeerConnection, stream core.StreamHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.peers[conn.ID()]
	if !ok || e.Conn != conn {
		return false
	}
	e.Stream = stream
	return true
}

func (r *PeerRegistry) Stream(id domain.ParticipantID) (core.StreamHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.peers[id]
	if !ok || e.Stream == nil {
		return nil, false
	}
	return e.Stream, true
}

// Remove closes and evicts id. Unknown ids are a no-op.
func (r *PeerRegistry) Remove(id domain.ParticipantID) bool {
	r.mu.Lock()
	e, ok := r.peers[id]
	delete(r.peers, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	e.Conn.Close()
	log.Info().Str("module", "app.registry").Str("id", string(id)).Msg("peer removed")
	return true
}

// Evict removes id only while conn is still its entry.
func (r *PeerRegistry) Evict(id domain.ParticipantID, conn core.PeerConnection) bool {
	r.mu.Lock()
	e, ok := r.peers[id]
	if !ok || e.Conn != conn {
		r.mu.Unlock()
		return false
	}
	delete(r.peers, id)
	r.mu.Unlock()
	conn.Close()
	log.Info().Str("module", "app.registry").Str("id", string(id)).Msg("peer evicted")
	return true
}

// RemoveAll closes every connection and returns the evicted ids, sorted.
func (r *PeerRegistry) RemoveAll() []domain.ParticipantID {
	r.mu.Lock()
	old := r.peers
	r.peers = make(map[domain.ParticipantID]*peerEntry)
	r.mu.Unlock()

	ids := make([]domain.ParticipantID, 0, len(old))
	for id, e := range old {
		e.Conn.Close()
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > 0 {
		log.Info().Str("module", "app.registry").Int("count", len(ids)).Msg("all peers removed")
	}
	return ids
}

func (r *PeerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// IDs returns a sorted snapshot.
func (r *PeerRegistry) IDs() []domain.ParticipantID {
	r.mu.RLock()
	out := make([]domain.ParticipantID, 0, len(r.peers))
	for id := range r.peers {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
