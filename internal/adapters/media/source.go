package media

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Source is the local MediaSource. It implements core.LocalStream.
type Source struct {
	id     string
	tracks []*Track

	once sync.Once
	wg   sync.WaitGroup
}

func newSource(captured []core.CapturedTrack) (*Source, error) {
	s := &Source{id: "local-" + uuid.NewString()}
	for _, c := range captured {
		local, err := webrtc.NewTrackLocalStaticSample(c.Codec(), string(c.Kind())+"-"+uuid.NewString()[:8], s.id)
		if err != nil {
			return nil, err
		}
		t := &Track{kind: c.Kind(), local: local, captured: c}
		t.enabled.Store(true)
		s.tracks = append(s.tracks, t)
	}
	for _, t := range s.tracks {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			t.pump()
		}()
	}
	return s, nil
}

func (s *Source) ID() string { return s.id }

func (s *Source) Tracks(kind domain.TrackKind) []webrtc.TrackLocal {
	var out []webrtc.TrackLocal
	for _, t := range s.tracks {
		if t.kind == kind {
			out = append(out, t.local)
		}
	}
	return out
}

// LocalTracks exposes the tracks with their enable flags.
func (s *Source) LocalTracks() []*Track { return s.tracks }

func (s *Source) release() {
	s.once.Do(func() {
		for _, t := range s.tracks {
			if err := t.captured.Close(); err != nil {
				log.Warn().Err(err).Str("module", "media").Str("kind", string(t.kind)).Msg("close capture")
			}
		}
		s.wg.Wait()
	})
}

// Track is one outgoing track fed by a capture pump.
type Track struct {
	kind     domain.TrackKind
	local    *webrtc.TrackLocalStaticSample
	captured core.CapturedTrack
	enabled  atomic.Bool

	nCaptured atomic.Uint64
	nSent     atomic.Uint64
}

func (t *Track) Kind() domain.TrackKind                 { return t.kind }
func (t *Track) Local() *webrtc.TrackLocalStaticSample { return t.local }
func (t *Track) Enabled() bool                          { return t.enabled.Load() }
func (t *Track) SetEnabled(enabled bool)                { t.enabled.Store(enabled) }

// Captured counts samples read from the capturer.
func (t *Track) Captured() uint64 { return t.nCaptured.Load() }

// Sent counts samples handed to the outgoing track.
func (t *Track) Sent() uint64 { return t.nSent.Load() }

func (t *Track) pump() {
	for {
		sample, err := t.captured.ReadSample()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Str("module", "media").Str("kind", string(t.kind)).Msg("capture read")
			}
			return
		}
		t.nCaptured.Add(1)
		if !t.enabled.Load() {
			continue
		}
		if err := t.local.WriteSample(sample); err != nil {
			log.Debug().Err(err).Str("module", "media").Str("kind", string(t.kind)).Msg("write sample")
			continue
		}
		t.nSent.Add(1)
	}
}
