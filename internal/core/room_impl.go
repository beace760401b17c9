package core

import (
	"sort"
	"sync"

	"github.com/dkeye/meshcall/internal/domain"
	"github.com/rs/zerolog/log"
)

// memberSession implements MemberSession by pairing meta + transport.
type memberSession struct {
	meta *domain.Member
	conn SignalConnection
}

func NewMemberSession(meta *domain.Member, conn SignalConnection) MemberSession {
	return &memberSession{meta: meta, conn: conn}
}

func (m *memberSession) Meta() *domain.Member     { return m.meta }
func (m *memberSession) Signal() SignalConnection { return m.conn }

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room *domain.Room
	mu   sync.RWMutex
	byID map[domain.ParticipantID]MemberSession
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room: room,
		byID: make(map[domain.ParticipantID]MemberSession),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// MemberIDs returns a sorted snapshot.
func (r *roomImpl) MemberIDs() []domain.ParticipantID {
	r.mu.RLock()
	out := make([]domain.ParticipantID, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *roomImpl) AddMember(ms MemberSession) {
	id := ms.Meta().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.room.Name)).Str("id", string(id)).Msg("member added")
}

func (r *roomImpl) RemoveMember(id domain.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	log.Info().Str("module", "core.room").Str("room", string(r.room.Name)).Str("id", string(id)).Msg("member removed")
}

func (r *roomImpl) Broadcast(from domain.ParticipantID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, m := range r.byID {
		if id == from {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// SendTo delivers to a single member. SendTo is 0 when the member is gone.
func (r *roomImpl) SendTo(to domain.ParticipantID, data Frame) PublishResult {
	r.mu.RLock()
	m, ok := r.byID[to]
	r.mu.RUnlock()
	res := PublishResult{}
	if !ok {
		return res
	}
	if err := m.Signal().TrySend(data); err != nil {
		res.Dropped = append(res.Dropped, m)
		return res
	}
	res.SendTo = 1
	return res
}
