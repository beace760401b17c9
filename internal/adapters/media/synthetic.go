package media

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

var (
	opusSilence = []byte{0xf8, 0xff, 0xfe}
	// VP8 key frame tag, start code and a 16x16 size; enough for receivers to
	// detect the stream.
	vp8Placeholder = []byte{0x10, 0x02, 0x00, 0x9d, 0x01, 0x2a, 0x10, 0x00, 0x10, 0x00}
)

// SyntheticCapturer generates silent audio and a placeholder video feed.
// Used by headless participants and tests.
type SyntheticCapturer struct {
	Audio bool
	Video bool
}

func NewSyntheticCapturer() *SyntheticCapturer {
	return &SyntheticCapturer{Audio: true, Video: true}
}

func (c *SyntheticCapturer) Capture(ctx context.Context) ([]core.CapturedTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []core.CapturedTrack
	if c.Audio {
		out = append(out, newSyntheticTrack(domain.TrackAudio,
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			20*time.Millisecond, opusSilence))
	}
	if c.Video {
		out = append(out, newSyntheticTrack(domain.TrackVideo,
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
			33*time.Millisecond, vp8Placeholder))
	}
	return out, nil
}

type syntheticTrack struct {
	kind     domain.TrackKind
	codec    webrtc.RTPCodecCapability
	interval time.Duration
	frame    []byte

	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func newSyntheticTrack(kind domain.TrackKind, codec webrtc.RTPCodecCapability, interval time.Duration, frame []byte) *syntheticTrack {
	return &syntheticTrack{
		kind:     kind,
		codec:    codec,
		interval: interval,
		frame:    frame,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
	}
}

func (t *syntheticTrack) Kind() domain.TrackKind           { return t.kind }
func (t *syntheticTrack) Codec() webrtc.RTPCodecCapability { return t.codec }

func (t *syntheticTrack) ReadSample() (media.Sample, error) {
	select {
	case <-t.done:
		return media.Sample{}, io.EOF
	case <-t.ticker.C:
		return media.Sample{Data: t.frame, Duration: t.interval}, nil
	}
}

func (t *syntheticTrack) Close() error {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
	return nil
}
