//go:build !mediadevices

package media

import (
	"context"
	"fmt"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
)

// DeviceCapturer needs the mediadevices build tag; without it capture is
// reported as unavailable.
type DeviceCapturer struct {
	Width        int
	Height       int
	VideoBitRate int
}

func NewDeviceCapturer() *DeviceCapturer {
	return &DeviceCapturer{Width: 640, Height: 480, VideoBitRate: 500_000}
}

func (d *DeviceCapturer) Capture(context.Context) ([]core.CapturedTrack, error) {
	return nil, fmt.Errorf("%w: built without mediadevices support", domain.ErrMediaUnavailable)
}
