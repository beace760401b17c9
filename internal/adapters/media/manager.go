// Package media owns the local capture stream of a call session.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/rs/zerolog/log"
)

// Manager holds at most one Source at a time.
type Manager struct {
	capturer core.Capturer

	mu  sync.Mutex
	src *Source
}

var _ core.MediaManager = (*Manager)(nil)

func NewManager(capturer core.Capturer) *Manager {
	return &Manager{capturer: capturer}
}

// Acquire requests local capture. A source that is already held is returned as is.
func (m *Manager) Acquire(ctx context.Context) (*Source, error) {
	m.mu.Lock()
	if m.src != nil {
		src := m.src
		m.mu.Unlock()
		return src, nil
	}
	m.mu.Unlock()

	captured, err := m.capturer.Capture(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrMediaUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrMediaUnavailable, err)
		}
		log.Warn().Err(err).Str("module", "media").Msg("capture failed")
		return nil, err
	}
	if len(captured) == 0 {
		return nil, fmt.Errorf("%w: no tracks captured", domain.ErrMediaUnavailable)
	}

	src, err := newSource(captured)
	if err != nil {
		for _, c := range captured {
			_ = c.Close()
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.src != nil {
		// lost a race with a concurrent Acquire
		src.release()
		return m.src, nil
	}
	m.src = src
	log.Info().Str("module", "media").Str("stream", src.ID()).Int("tracks", len(src.tracks)).Msg("local stream acquired")
	return src, nil
}

// AcquireStream implements core.MediaManager.
func (m *Manager) AcquireStream(ctx context.Context) (core.LocalStream, error) {
	src, err := m.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Source returns the held source or nil.
func (m *Manager) Source() *Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

// SetTrackEnabled gates outgoing transmission of every track of kind.
// Capture keeps running. No-op without a source.
func (m *Manager) SetTrackEnabled(kind domain.TrackKind, enabled bool) {
	src := m.Source()
	if src == nil {
		return
	}
	for _, t := range src.tracks {
		if t.kind == kind {
			t.SetEnabled(enabled)
		}
	}
	log.Debug().Str("module", "media").Str("kind", string(kind)).Bool("enabled", enabled).Msg("track toggled")
}

// SetAllEnabled gates every track regardless of kind.
func (m *Manager) SetAllEnabled(enabled bool) {
	m.SetTrackEnabled(domain.TrackAudio, enabled)
	m.SetTrackEnabled(domain.TrackVideo, enabled)
}

// Release stops all tracks. Safe to call multiple times.
func (m *Manager) Release() {
	m.mu.Lock()
	src := m.src
	m.src = nil
	m.mu.Unlock()
	if src == nil {
		return
	}
	src.release()
	log.Info().Str("module", "media").Str("stream", src.ID()).Msg("local stream released")
}
