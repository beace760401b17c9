package core

import (
	"context"

	"github.com/dkeye/meshcall/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// StreamHandle is the opaque media handle handed to the UI collaborator.
type StreamHandle interface {
	ID() string
}

// LocalStream is the local capture as seen by a peer connection.
// Peers only read it; enable flags are mutated by the session controller.
type LocalStream interface {
	StreamHandle
	// Tracks returns the outgoing tracks of the given kind, in capture order.
	Tracks(kind domain.TrackKind) []webrtc.TrackLocal
}

// Capturer acquires raw capture tracks from a platform source.
type Capturer interface {
	Capture(ctx context.Context) ([]CapturedTrack, error)
}

// CapturedTrack is one encoded capture feed.
type CapturedTrack interface {
	Kind() domain.TrackKind
	Codec() webrtc.RTPCodecCapability
	// ReadSample blocks for the next encoded sample; it returns io.EOF after Close.
	ReadSample() (media.Sample, error)
	Close() error
}

// MediaManager owns the single local stream of a session.
type MediaManager interface {
	AcquireStream(ctx context.Context) (LocalStream, error)
	SetTrackEnabled(kind domain.TrackKind, enabled bool)
	SetAllEnabled(enabled bool)
	Release()
}
