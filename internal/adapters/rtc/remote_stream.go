package rtc

import (
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
)

// RemoteStream groups the inbound tracks of one peer connection.
type RemoteStream struct {
	id string

	mu     sync.Mutex
	tracks []*webrtc.TrackRemote

	packets atomic.Uint64
}

func newRemoteStream(id string) *RemoteStream {
	return &RemoteStream{id: id}
}

func (s *RemoteStream) ID() string { return s.id }

func (s *RemoteStream) Tracks() []*webrtc.TrackRemote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*webrtc.TrackRemote(nil), s.tracks...)
}

// Packets counts RTP packets received across all tracks.
func (s *RemoteStream) Packets() uint64 { return s.packets.Load() }

func (s *RemoteStream) add(t *webrtc.TrackRemote) {
	s.mu.Lock()
	s.tracks = append(s.tracks, t)
	s.mu.Unlock()
}
