//go:build mediadevices

package media

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"     // registers the camera adapter
	_ "github.com/pion/mediadevices/pkg/driver/microphone" // registers the microphone adapter
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

// DeviceCapturer captures camera and microphone through pion/mediadevices.
type DeviceCapturer struct {
	Width        int
	Height       int
	VideoBitRate int
}

func NewDeviceCapturer() *DeviceCapturer {
	return &DeviceCapturer{Width: 640, Height: 480, VideoBitRate: 500_000}
}

func (d *DeviceCapturer) Capture(ctx context.Context) ([]core.CapturedTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("%w: vp8 params: %v", domain.ErrMediaUnavailable, err)
	}
	vpxParams.BitRate = d.VideoBitRate
	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("%w: opus params: %v", domain.ErrMediaUnavailable, err)
	}
	selector := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)

	devices := mediadevices.EnumerateDevices()
	log.Info().Str("module", "media.device").Int("devices", len(devices)).Msg("enumerated capture devices")

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.Width = prop.Int(d.Width)
			c.Height = prop.Int(d.Height)
		},
		Audio: func(c *mediadevices.MediaTrackConstraints) {},
		Codec: selector,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaUnavailable, err)
	}

	var out []core.CapturedTrack
	for _, tr := range stream.GetTracks() {
		dt, err := newDeviceTrack(tr)
		if err != nil {
			for _, c := range out {
				_ = c.Close()
			}
			_ = tr.Close()
			return nil, fmt.Errorf("%w: %v", domain.ErrMediaUnavailable, err)
		}
		out = append(out, dt)
	}
	return out, nil
}

type deviceTrack struct {
	track     mediadevices.Track
	reader    mediadevices.EncodedReadCloser
	kind      domain.TrackKind
	codec     webrtc.RTPCodecCapability
	closeOnce sync.Once
}

func newDeviceTrack(tr mediadevices.Track) (*deviceTrack, error) {
	dt := &deviceTrack{track: tr}
	if tr.Kind() == webrtc.RTPCodecTypeAudio {
		dt.kind = domain.TrackAudio
		dt.codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
	} else {
		dt.kind = domain.TrackVideo
		dt.codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	}
	reader, err := tr.NewEncodedReader(dt.codec.MimeType)
	if err != nil {
		return nil, err
	}
	dt.reader = reader
	tr.OnEnded(func(err error) {
		log.Warn().Err(err).Str("module", "media.device").Str("track", tr.ID()).Msg("device track ended")
	})
	return dt, nil
}

func (t *deviceTrack) Kind() domain.TrackKind           { return t.kind }
func (t *deviceTrack) Codec() webrtc.RTPCodecCapability { return t.codec }

func (t *deviceTrack) ReadSample() (pionmedia.Sample, error) {
	buf, release, err := t.reader.Read()
	if err != nil {
		return pionmedia.Sample{}, io.EOF
	}
	defer release()
	data := append([]byte(nil), buf.Data...)
	dur := time.Duration(buf.Samples) * time.Second / time.Duration(t.codec.ClockRate)
	return pionmedia.Sample{Data: data, Duration: dur}, nil
}

func (t *deviceTrack) Close() error {
	var err error
	t.closeOnce.Do(func() {
		_ = t.reader.Close()
		err = t.track.Close()
	})
	return err
}
